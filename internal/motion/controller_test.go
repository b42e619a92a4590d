package motion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/motionforge/motioncore/internal/api/websocket"
	"github.com/motionforge/motioncore/internal/execution"
	"github.com/motionforge/motioncore/internal/storage"
	"github.com/motionforge/motioncore/internal/trajectory"
	"github.com/motionforge/motioncore/internal/types"
)

type fakeStore struct {
	mu      sync.Mutex
	created []*storage.Execution
	updated []*storage.Execution
	events  []*storage.ExecutionEvent
}

func (f *fakeStore) CreateExecution(_ context.Context, exec *storage.Execution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, exec)
	return nil
}

func (f *fakeStore) UpdateExecution(_ context.Context, exec *storage.Execution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, exec)
	return nil
}

func (f *fakeStore) CreateExecutionEvent(_ context.Context, event *storage.ExecutionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) lastEvent() *storage.ExecutionEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	return f.events[len(f.events)-1]
}

func (f *fakeStore) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs []websocket.Message
}

func (f *fakeBroadcaster) Broadcast(msg websocket.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeBroadcaster) all() []websocket.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]websocket.Message(nil), f.msgs...)
}

func (f *fakeBroadcaster) byType(t websocket.MessageType) []websocket.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []websocket.Message
	for _, m := range f.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

type fakeLink struct {
	mu       sync.Mutex
	commands []string
	startErr error
}

func (f *fakeLink) record(cmd string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
}

func (f *fakeLink) StartMotion(context.Context, []byte) error {
	f.record("start")
	return f.startErr
}
func (f *fakeLink) RequestPause(context.Context) error  { f.record("pause"); return nil }
func (f *fakeLink) RequestResume(context.Context) error { f.record("resume"); return nil }
func (f *fakeLink) Abort(context.Context) error         { f.record("abort"); return nil }

func (f *fakeLink) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

type fakeSource struct {
	events chan execution.MotionEvent
	once   sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan execution.MotionEvent, 16)}
}

func (f *fakeSource) Events() <-chan execution.MotionEvent { return f.events }
func (f *fakeSource) Stop()                                { f.once.Do(func() { close(f.events) }) }

func testTrajectory() *trajectory.Trajectory {
	return &trajectory.Trajectory{
		Name:        "pick-place",
		Version:     "1",
		MotionGroup: "arm-left",
		Waypoints: []trajectory.Waypoint{
			{Pose: &types.Pose{Position: types.Vector3{X: 0.5}}},
		},
	}
}

func newTestController(t *testing.T) (*Controller, *fakeStore, *fakeBroadcaster, *fakeLink, *fakeSource) {
	t.Helper()
	store := &fakeStore{}
	bc := &fakeBroadcaster{}
	link := &fakeLink{}
	source := newFakeSource()
	ctrl := NewController(zap.NewNop(), store, bc, link, source, "arm-left")
	return ctrl, store, bc, link, source
}

func TestStartTrajectory(t *testing.T) {
	ctrl, store, bc, link, _ := newTestController(t)

	trajID := uuid.New()
	execID, err := ctrl.StartTrajectory(context.Background(), testTrajectory(), trajID)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, execID)

	status := ctrl.Status()
	assert.Equal(t, execution.StateExecuting, status.State)
	assert.Equal(t, execID, status.ExecutionID)
	assert.Equal(t, trajID, status.TrajectoryID)

	require.Len(t, store.created, 1)
	assert.Equal(t, string(execution.StateExecuting), store.created[0].State)
	assert.Equal(t, []string{"start"}, link.sent())
	assert.Len(t, bc.byType(websocket.MessageTypeExecutionState), 1)
}

func TestStartTrajectoryWhileActive(t *testing.T) {
	ctrl, _, _, _, _ := newTestController(t)

	_, err := ctrl.StartTrajectory(context.Background(), testTrajectory(), uuid.New())
	require.NoError(t, err)

	_, err = ctrl.StartTrajectory(context.Background(), testTrajectory(), uuid.New())
	assert.ErrorIs(t, err, ErrExecutionInProgress)
}

func TestStartTrajectoryLinkRejected(t *testing.T) {
	ctrl, _, _, link, _ := newTestController(t)
	link.startErr = errors.New("controller offline")

	_, err := ctrl.StartTrajectory(context.Background(), testTrajectory(), uuid.New())
	require.Error(t, err)

	status := ctrl.Status()
	assert.Equal(t, execution.StateError, status.State)
	assert.Contains(t, status.Cause, "controller offline")
}

func TestPauseRequiresRunningExecution(t *testing.T) {
	ctrl, _, _, link, _ := newTestController(t)

	err := ctrl.Pause(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveExecution)

	_, err = ctrl.StartTrajectory(context.Background(), testTrajectory(), uuid.New())
	require.NoError(t, err)

	require.NoError(t, ctrl.Pause(context.Background()))
	assert.Equal(t, []string{"start", "pause"}, link.sent())

	// The machine only pauses once the controller confirms
	assert.Equal(t, execution.StateExecuting, ctrl.Status().State)
}

func TestFeedbackDrivesCompletion(t *testing.T) {
	ctrl, store, bc, _, source := newTestController(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { ctrl.Run(ctx); close(done) }()

	_, err := ctrl.StartTrajectory(ctx, testTrajectory(), uuid.New())
	require.NoError(t, err)

	pose := &types.Pose{Position: types.Vector3{X: 1.0}}
	source.events <- execution.RunningEvent{Location: pose}
	source.events <- execution.EndedEvent{Standstill: false, Location: pose}
	source.events <- execution.EndedEvent{Standstill: true, Location: pose}

	require.Eventually(t, func() bool {
		return ctrl.Status().State == execution.StateCompleted
	}, time.Second, 5*time.Millisecond)

	status := ctrl.Status()
	require.NotNil(t, status.Cursor)
	assert.Equal(t, 1.0, status.Cursor.Position.X)

	require.Eventually(t, func() bool {
		last := store.lastEvent()
		return last != nil && last.ToState == string(execution.StateCompleted)
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, string(execution.StateEnding), store.lastEvent().FromState)

	assert.NotEmpty(t, bc.byType(websocket.MessageTypeMotionProgress))
	require.Eventually(t, func() bool {
		return len(bc.byType(websocket.MessageTypeStandstill)) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestPauseResumeCycle(t *testing.T) {
	ctrl, _, bc, link, source := newTestController(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	_, err := ctrl.StartTrajectory(ctx, testTrajectory(), uuid.New())
	require.NoError(t, err)

	require.NoError(t, ctrl.Pause(ctx))
	source.events <- execution.PausedByUserEvent{Standstill: false}
	source.events <- execution.PausedByUserEvent{Standstill: true}

	require.Eventually(t, func() bool {
		return ctrl.Status().State == execution.StatePaused
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(bc.byType(websocket.MessageTypeStandstill)) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, ctrl.Resume(ctx))
	assert.Equal(t, execution.StateExecuting, ctrl.Status().State)
	assert.Equal(t, []string{"start", "pause", "resume"}, link.sent())
}

func TestResumeRequiresPausedOrCompleted(t *testing.T) {
	ctrl, _, _, _, _ := newTestController(t)

	err := ctrl.Resume(context.Background())
	assert.ErrorIs(t, err, ErrNotPausedOrDone)

	_, err = ctrl.StartTrajectory(context.Background(), testTrajectory(), uuid.New())
	require.NoError(t, err)

	err = ctrl.Resume(context.Background())
	assert.ErrorIs(t, err, ErrNotPausedOrDone)
}

func TestFailAbortsExecution(t *testing.T) {
	ctrl, store, _, link, _ := newTestController(t)

	err := ctrl.Fail(context.Background(), errors.New("estop"))
	assert.ErrorIs(t, err, ErrNoActiveExecution)

	_, err = ctrl.StartTrajectory(context.Background(), testTrajectory(), uuid.New())
	require.NoError(t, err)

	require.NoError(t, ctrl.Fail(context.Background(), errors.New("estop pressed")))

	status := ctrl.Status()
	assert.Equal(t, execution.StateError, status.State)
	assert.Equal(t, "estop pressed", status.Cause)
	assert.Contains(t, link.sent(), "abort")

	require.NotEmpty(t, store.updated)
	final := store.updated[len(store.updated)-1]
	assert.Equal(t, string(execution.StateError), final.State)
	assert.NotNil(t, final.CompletedAt)
}

func TestEventsWithoutExecutionIgnored(t *testing.T) {
	ctrl, store, bc, _, source := newTestController(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	source.events <- execution.EndedEvent{Standstill: true}
	source.events <- execution.RunningEvent{}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, execution.StateIdle, ctrl.Status().State)
	assert.Zero(t, store.eventCount())
	assert.Empty(t, bc.all())
}
