package contentstream

import (
	"github.com/Marisada/krilla/coords"
	"github.com/Marisada/krilla/ir/semantic"
)

// GraphicsState mirrors the viewer-side state the emitted operators will
// produce, so the builder always knows the current transform and paint
// parameters.
type GraphicsState struct {
	CTM         coords.Matrix
	FillColor   semantic.Color
	StrokeColor semantic.Color
	FillAlpha   float64
	StrokeAlpha float64
	LineWidth   float64
}

func newGraphicsState() GraphicsState {
	return GraphicsState{
		CTM:         coords.Identity(),
		FillAlpha:   1,
		StrokeAlpha: 1,
		LineWidth:   1,
	}
}

// stateStack is the q/Q nesting. The bottom entry is the page default and
// is never popped.
type stateStack struct {
	states []GraphicsState
}

func newStateStack() *stateStack {
	return &stateStack{states: []GraphicsState{newGraphicsState()}}
}

func (s *stateStack) current() *GraphicsState {
	return &s.states[len(s.states)-1]
}

func (s *stateStack) push() {
	s.states = append(s.states, *s.current())
}

// pop restores the previous state; ok is false when only the page default
// remains.
func (s *stateStack) pop() bool {
	if len(s.states) == 1 {
		return false
	}
	s.states = s.states[:len(s.states)-1]
	return true
}

// depth reports how many saves are unmatched.
func (s *stateStack) depth() int {
	return len(s.states) - 1
}
