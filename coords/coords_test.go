package coords

import (
	"math"
	"testing"
)

func TestMultiplyOrder(t *testing.T) {
	m := Translate(10, 0).Multiply(Scale(2, 2))
	p := m.Transform(Point{X: 1, Y: 1})
	// Translation applies first, then the scale.
	if p.X != 22 || p.Y != 2 {
		t.Errorf("transformed point = (%v, %v), want (22, 2)", p.X, p.Y)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	m := Translate(5, -3).Multiply(Scale(2, 4)).Multiply(Rotate(math.Pi / 6))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}
	round := m.Multiply(inv)
	id := Identity()
	for i := range round {
		if math.Abs(round[i]-id[i]) > 1e-9 {
			t.Fatalf("m * m^-1 = %v, want identity", round)
		}
	}
}

func TestSingularInverseFails(t *testing.T) {
	if _, err := (Matrix{0, 0, 0, 0, 1, 1}).Inverse(); err == nil {
		t.Error("singular matrix inverted without error")
	}
}

func TestIsIdentity(t *testing.T) {
	if !Identity().IsIdentity() {
		t.Error("Identity() not recognized")
	}
	if Translate(1, 0).IsIdentity() {
		t.Error("translation recognized as identity")
	}
}
