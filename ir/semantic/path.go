package semantic

// Path describes a graphics path made of subpaths.
type Path struct {
	Subpaths []Subpath
}

// Subpath describes a portion of a path.
type Subpath struct {
	Points []PathPoint
	Closed bool
}

// PathPoint identifies a path segment and its coordinates. For curves,
// Control1 and Control2 are the Bezier control points preceding (X, Y).
type PathPoint struct {
	X, Y                 float64
	Type                 PathPointType
	Control1X, Control1Y float64
	Control2X, Control2Y float64
}

// PathPointType enumerates path segment types.
type PathPointType int

const (
	PathMoveTo PathPointType = iota
	PathLineTo
	PathCurveTo
)

// RectPath builds a single-subpath rectangle, emitted with the re operator.
func RectPath(x, y, w, h float64) Path {
	return Path{Subpaths: []Subpath{{
		Points: []PathPoint{
			{X: x, Y: y, Type: PathMoveTo},
			{X: x + w, Y: y, Type: PathLineTo},
			{X: x + w, Y: y + h, Type: PathLineTo},
			{X: x, Y: y + h, Type: PathLineTo},
		},
		Closed: true,
	}}}
}
