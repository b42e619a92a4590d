package execution

type State string

const (
	StateIdle      State = "idle"
	StateExecuting State = "executing"
	StateEnding    State = "ending"
	StatePausing   State = "pausing"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// Terminal reports whether the state can never be left by any command or
// event. Completed is deliberately not terminal: a completed machine accepts
// Start again to re-run a trajectory.
func (s State) Terminal() bool {
	return s == StateError
}

// Settled reports whether the robot is physically at rest in this state, i.e.
// the trajectory is not moving and no standstill confirmation is pending.
func (s State) Settled() bool {
	switch s {
	case StateIdle, StatePaused, StateCompleted, StateError:
		return true
	default:
		return false
	}
}

type CommandCode string

const (
	CommandStart CommandCode = "start"
	CommandFail  CommandCode = "fail"
)

// Command is a caller-issued signal. Cause is only meaningful for Fail and
// records why the execution was aborted.
type Command struct {
	Code  CommandCode `json:"command"`
	Cause error       `json:"-"`
}

// Start begins or resumes execution.
func Start() Command {
	return Command{Code: CommandStart}
}

// Fail forces the machine into the unrecoverable Error state.
func Fail(cause error) Command {
	return Command{Code: CommandFail, Cause: cause}
}
