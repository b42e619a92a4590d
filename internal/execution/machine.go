package execution

import (
	"errors"
	"sync"
)

// ErrExecutionFailed is the recorded cause when Fail is sent without one.
var ErrExecutionFailed = errors.New("trajectory execution failed")

// Machine is the trajectory execution state machine. Send and Process are
// total functions: any command or event is accepted in any state, and calls
// that do not match the transition table leave the state unchanged instead of
// failing. Both entry points serialize on one mutex so commands and feedback
// events arriving from different goroutines are linearizable.
type Machine struct {
	mu    sync.Mutex
	state State
	cause error
}

// NewMachine returns a machine in the Idle state.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// Send applies a caller command and returns the resulting state.
//
// Start moves Idle, Paused, and Completed to Executing and is a no-op while
// the machine is executing, winding down, or in Error. Fail moves every
// non-Error state to Error; Error itself absorbs everything.
func (m *Machine) Send(cmd Command) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateError {
		return m.state
	}

	switch cmd.Code {
	case CommandStart:
		switch m.state {
		case StateIdle, StatePaused, StateCompleted:
			m.state = StateExecuting
		}
	case CommandFail:
		m.state = StateError
		m.cause = cmd.Cause
		if m.cause == nil {
			m.cause = ErrExecutionFailed
		}
	}

	return m.state
}

// Process applies one motion-controller feedback event. Events are only
// meaningful while the machine is Executing, Ending, or Pausing; anything
// received in another state is a stray from the stream and is ignored. The
// event's location is passed through either way.
func (m *Machine) Process(ev MotionEvent) ProcessResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateExecuting, StateEnding, StatePausing:
		m.state = m.apply(ev)
	}

	return ProcessResult{State: m.state, Location: ev.Pose()}
}

// apply evaluates the transition table for one event. Combinations outside
// the table (e.g. a Running event while Pausing) leave the state unchanged:
// a stream anomaly must never abort a trajectory, only an explicit Fail does.
func (m *Machine) apply(ev MotionEvent) State {
	switch ev := ev.(type) {
	case RunningEvent:
		if m.state == StateExecuting {
			return StateExecuting
		}
	case EndedEvent:
		switch {
		case ev.Standstill && (m.state == StateExecuting || m.state == StateEnding):
			return StateCompleted
		case !ev.Standstill && (m.state == StateExecuting || m.state == StateEnding):
			return StateEnding
		}
	case PausedByUserEvent:
		switch {
		case ev.Standstill && (m.state == StateExecuting || m.state == StatePausing):
			return StatePaused
		case !ev.Standstill && (m.state == StateExecuting || m.state == StatePausing):
			return StatePausing
		}
	}
	return m.state
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the recorded failure cause, or nil while the machine has not
// entered Error.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateError {
		return nil
	}
	return m.cause
}

func (m *Machine) IsCompleted() bool { return m.State() == StateCompleted }
func (m *Machine) IsPaused() bool    { return m.State() == StatePaused }
func (m *Machine) IsError() bool     { return m.State() == StateError }
