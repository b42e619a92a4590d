package execution

import (
	"errors"
	"sync"
	"testing"

	"github.com/motionforge/motioncore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMachineIsIdle(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, StateIdle, m.State())
	assert.NoError(t, m.Err())
}

func TestStartTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *Machine)
		want  State
	}{
		{name: "from idle", setup: func(m *Machine) {}, want: StateExecuting},
		{
			name: "from paused",
			setup: func(m *Machine) {
				m.Send(Start())
				m.Process(PausedByUserEvent{Standstill: true})
			},
			want: StateExecuting,
		},
		{
			name: "from completed",
			setup: func(m *Machine) {
				m.Send(Start())
				m.Process(EndedEvent{Standstill: true})
			},
			want: StateExecuting,
		},
		{
			name:  "no-op while executing",
			setup: func(m *Machine) { m.Send(Start()) },
			want:  StateExecuting,
		},
		{
			name: "no-op while ending",
			setup: func(m *Machine) {
				m.Send(Start())
				m.Process(EndedEvent{Standstill: false})
			},
			want: StateEnding,
		},
		{
			name: "no-op while pausing",
			setup: func(m *Machine) {
				m.Send(Start())
				m.Process(PausedByUserEvent{Standstill: false})
			},
			want: StatePausing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			tt.setup(m)
			assert.Equal(t, tt.want, m.Send(Start()))
		})
	}
}

func TestStartIsIdempotent(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, StateExecuting, m.Send(Start()))
	assert.Equal(t, StateExecuting, m.Send(Start()))
}

func TestFailPreemptsEveryNonTerminalState(t *testing.T) {
	setups := map[string]func(m *Machine){
		"idle":      func(m *Machine) {},
		"executing": func(m *Machine) { m.Send(Start()) },
		"ending": func(m *Machine) {
			m.Send(Start())
			m.Process(EndedEvent{Standstill: false})
		},
		"pausing": func(m *Machine) {
			m.Send(Start())
			m.Process(PausedByUserEvent{Standstill: false})
		},
		"paused": func(m *Machine) {
			m.Send(Start())
			m.Process(PausedByUserEvent{Standstill: true})
		},
		"completed": func(m *Machine) {
			m.Send(Start())
			m.Process(EndedEvent{Standstill: true})
		},
	}

	cause := errors.New("servo fault on axis 3")
	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			m := NewMachine()
			setup(m)
			assert.Equal(t, StateError, m.Send(Fail(cause)))
			assert.True(t, m.IsError())
			assert.Equal(t, cause, m.Err())
		})
	}
}

func TestFailWithoutCauseRecordsDefault(t *testing.T) {
	m := NewMachine()
	m.Send(Fail(nil))
	assert.ErrorIs(t, m.Err(), ErrExecutionFailed)
}

func TestErrorIsAbsorbing(t *testing.T) {
	cause := errors.New("emergency stop")
	m := NewMachine()
	m.Send(Start())
	m.Send(Fail(cause))

	assert.Equal(t, StateError, m.Send(Start()))
	assert.Equal(t, StateError, m.Send(Fail(errors.New("other"))))
	assert.Equal(t, StateError, m.Process(RunningEvent{}).State)
	assert.Equal(t, StateError, m.Process(EndedEvent{Standstill: true}).State)
	assert.Equal(t, StateError, m.Process(PausedByUserEvent{Standstill: true}).State)

	// The original cause survives later Fail commands.
	assert.Equal(t, cause, m.Err())
}

func TestEndingIsTransparentWaypoint(t *testing.T) {
	// Ended with standstill not yet reached, then confirmed.
	slow := NewMachine()
	slow.Send(Start())
	require.Equal(t, StateEnding, slow.Process(EndedEvent{Standstill: false}).State)
	require.Equal(t, StateEnding, slow.Process(EndedEvent{Standstill: false}).State)
	assert.Equal(t, StateCompleted, slow.Process(EndedEvent{Standstill: true}).State)

	// Ended with standstill already reached.
	fast := NewMachine()
	fast.Send(Start())
	assert.Equal(t, StateCompleted, fast.Process(EndedEvent{Standstill: true}).State)

	assert.Equal(t, slow.State(), fast.State())
}

func TestPauseResumeCycle(t *testing.T) {
	m := NewMachine()
	m.Send(Start())

	require.Equal(t, StatePausing, m.Process(PausedByUserEvent{Standstill: false}).State)
	require.Equal(t, StatePausing, m.Process(PausedByUserEvent{Standstill: false}).State)
	require.Equal(t, StatePaused, m.Process(PausedByUserEvent{Standstill: true}).State)
	assert.True(t, m.IsPaused())

	// Resume without passing through Idle.
	assert.Equal(t, StateExecuting, m.Send(Start()))
	assert.Equal(t, StateExecuting, m.Process(RunningEvent{}).State)
}

func TestCompletedIsResumable(t *testing.T) {
	m := NewMachine()
	m.Send(Start())
	m.Process(EndedEvent{Standstill: true})
	require.True(t, m.IsCompleted())

	assert.Equal(t, StateExecuting, m.Send(Start()))
	assert.Equal(t, StateExecuting, m.Process(RunningEvent{}).State)
}

func TestEventsBeforeStartAreIgnored(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, StateIdle, m.Process(RunningEvent{}).State)
	assert.Equal(t, StateIdle, m.Process(EndedEvent{Standstill: true}).State)
	assert.Equal(t, StateIdle, m.Process(PausedByUserEvent{Standstill: true}).State)
}

func TestStrayEventsAfterSettlingAreIgnored(t *testing.T) {
	// A late Ended event after the pause settled must not complete the
	// execution; the stream is allowed to trail behind the machine.
	m := NewMachine()
	m.Send(Start())
	m.Process(PausedByUserEvent{Standstill: true})
	require.Equal(t, StatePaused, m.State())

	assert.Equal(t, StatePaused, m.Process(EndedEvent{Standstill: true}).State)
	assert.Equal(t, StatePaused, m.Process(RunningEvent{}).State)
}

func TestRunningWhilePausingDoesNotResume(t *testing.T) {
	m := NewMachine()
	m.Send(Start())
	m.Process(PausedByUserEvent{Standstill: false})

	// Running while winding down to a pause is a stream anomaly, not a resume.
	assert.Equal(t, StatePausing, m.Process(RunningEvent{}).State)
	assert.Equal(t, StatePaused, m.Process(PausedByUserEvent{Standstill: true}).State)
}

func TestLocationPassThrough(t *testing.T) {
	pose := &types.Pose{Position: types.Vector3{X: 120.5, Y: -44, Z: 310}}

	m := NewMachine()
	m.Send(Start())

	res := m.Process(EndedEvent{Standstill: false, Location: pose})
	require.NotNil(t, res.Location)
	assert.Equal(t, pose, res.Location)

	// Events without a pose yield no location.
	res = m.Process(EndedEvent{Standstill: true})
	assert.Nil(t, res.Location)

	// Stray events still pass their pose through for cursor updates.
	res = m.Process(RunningEvent{Location: pose})
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, pose, res.Location)
}

func TestSendAndProcessAreLinearizable(t *testing.T) {
	m := NewMachine()
	m.Send(Start())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			m.Process(RunningEvent{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			m.Send(Start())
		}
	}()
	wg.Wait()

	assert.Equal(t, StateExecuting, m.State())

	// A Fail racing the event loop always wins and stays won.
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			m.Process(RunningEvent{})
		}
	}()
	go func() {
		defer wg.Done()
		m.Send(Fail(errors.New("abort")))
	}()
	wg.Wait()

	assert.Equal(t, StateError, m.State())
}

func TestSettled(t *testing.T) {
	assert.True(t, StateIdle.Settled())
	assert.True(t, StatePaused.Settled())
	assert.True(t, StateCompleted.Settled())
	assert.True(t, StateError.Settled())
	assert.False(t, StateExecuting.Settled())
	assert.False(t, StateEnding.Settled())
	assert.False(t, StatePausing.Settled())
}

func TestTerminal(t *testing.T) {
	for _, s := range []State{StateIdle, StateExecuting, StateEnding, StatePausing, StatePaused, StateCompleted} {
		assert.False(t, s.Terminal(), string(s))
	}
	assert.True(t, StateError.Terminal())
}
