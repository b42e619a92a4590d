package execution

import "github.com/motionforge/motioncore/internal/types"

// MotionEvent is one feedback sample from the motion controller. The union is
// closed: only the three variants below implement it, so Process can match
// exhaustively and a new feedback kind fails to compile until every call site
// decides its handling.
type MotionEvent interface {
	// Pose returns the location carried by the event, or nil.
	Pose() *types.Pose

	motionEvent()
}

// RunningEvent reports that the trajectory is actively executing. A running
// trajectory is never at standstill, so the variant carries no flag.
type RunningEvent struct {
	Location *types.Pose
}

// EndedEvent reports that the controller has logically finished issuing the
// trajectory. Standstill tells whether the mechanism has also stopped.
type EndedEvent struct {
	Standstill bool
	Location   *types.Pose
}

// PausedByUserEvent reports that the controller registered a user-initiated
// pause. Standstill tells whether the mechanism has already stopped.
type PausedByUserEvent struct {
	Standstill bool
	Location   *types.Pose
}

func (e RunningEvent) Pose() *types.Pose      { return e.Location }
func (e EndedEvent) Pose() *types.Pose        { return e.Location }
func (e PausedByUserEvent) Pose() *types.Pose { return e.Location }

func (RunningEvent) motionEvent()      {}
func (EndedEvent) motionEvent()        {}
func (PausedByUserEvent) motionEvent() {}

// ProcessResult is the outcome of feeding one event to the machine. Location
// is the event's pose passed through verbatim so the caller can advance its
// trajectory cursor regardless of which transition occurred.
type ProcessResult struct {
	State    State
	Location *types.Pose
}
