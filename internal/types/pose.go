package types

import "math"

// Pose is a Cartesian robot pose: TCP position in millimeters plus
// orientation as a unit quaternion.
type Pose struct {
	Position    Vector3    `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Joints holds one position value per axis of a motion group, in radians.
type Joints []float64

// Distance returns the Cartesian distance between two positions.
func (v Vector3) Distance(o Vector3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// IsZero reports whether the pose is the zero value (no pose reported).
func (p Pose) IsZero() bool {
	return p.Position == Vector3{} && p.Orientation == Quaternion{}
}
