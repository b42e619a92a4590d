package motion

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/motionforge/motioncore/internal/api/websocket"
	"github.com/motionforge/motioncore/internal/execution"
	"github.com/motionforge/motioncore/internal/storage"
	"github.com/motionforge/motioncore/internal/trajectory"
	"github.com/motionforge/motioncore/internal/types"
)

var (
	ErrExecutionInProgress = fmt.Errorf("execution already in progress")
	ErrNoActiveExecution   = fmt.Errorf("no active execution")
	ErrNotPausedOrDone     = fmt.Errorf("execution is neither paused nor completed")
)

// Link sends commands to the physical motion controller. Confirmation of
// pause and completion arrives asynchronously on the feedback stream, not as
// the return value of these calls.
type Link interface {
	StartMotion(ctx context.Context, definition []byte) error
	RequestPause(ctx context.Context) error
	RequestResume(ctx context.Context) error
	Abort(ctx context.Context) error
}

// EventSource is the drained feedback stream of one motion group.
type EventSource interface {
	Events() <-chan execution.MotionEvent
	Stop()
}

// ExecutionStore persists executions and their state transitions.
type ExecutionStore interface {
	CreateExecution(ctx context.Context, exec *storage.Execution) error
	UpdateExecution(ctx context.Context, exec *storage.Execution) error
	CreateExecutionEvent(ctx context.Context, event *storage.ExecutionEvent) error
}

// Broadcaster pushes live updates to connected clients.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

// ExecutionStatus is a snapshot of the controller's current execution.
type ExecutionStatus struct {
	ExecutionID  uuid.UUID       `json:"execution_id,omitempty"`
	TrajectoryID uuid.UUID       `json:"trajectory_id,omitempty"`
	MotionGroup  string          `json:"motion_group"`
	State        execution.State `json:"state"`
	Cause        string          `json:"cause,omitempty"`
	Cursor       *types.Pose     `json:"cursor,omitempty"`
}

// Controller drives trajectory execution for one motion group. It owns the
// execution state machine, feeds it commands from callers and events from the
// feedback stream, and reconciles the two into one consistent lifecycle.
type Controller struct {
	logger      *zap.Logger
	store       ExecutionStore
	broadcaster Broadcaster
	link        Link
	source      EventSource
	motionGroup string

	mu      sync.RWMutex
	machine *execution.Machine
	execID  uuid.UUID
	trajID  uuid.UUID
	started time.Time
	cursor  *types.Pose
}

func NewController(
	logger *zap.Logger,
	store ExecutionStore,
	broadcaster Broadcaster,
	link Link,
	source EventSource,
	motionGroup string,
) *Controller {
	return &Controller{
		logger:      logger,
		store:       store,
		broadcaster: broadcaster,
		link:        link,
		source:      source,
		motionGroup: motionGroup,
		machine:     execution.NewMachine(),
	}
}

// Run drains the feedback stream until the context is cancelled or the
// stream ends. Events arriving while no execution is active are still fed to
// the machine, which ignores them.
func (c *Controller) Run(ctx context.Context) {
	c.logger.Info("Motion controller started",
		zap.String("motion_group", c.motionGroup))

	for {
		select {
		case <-ctx.Done():
			c.source.Stop()
			c.logger.Info("Motion controller stopped",
				zap.String("motion_group", c.motionGroup))
			return

		case ev, ok := <-c.source.Events():
			if !ok {
				c.logger.Warn("Feedback stream closed",
					zap.String("motion_group", c.motionGroup))
				return
			}
			c.handleEvent(ctx, ev)
		}
	}
}

// StartTrajectory begins a new execution of the given trajectory. Only one
// execution may be active per motion group; a paused or completed execution
// is superseded by the new one.
func (c *Controller) StartTrajectory(ctx context.Context, traj *trajectory.Trajectory, trajectoryID uuid.UUID) (uuid.UUID, error) {
	definition, err := traj.ToJSON()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to serialize trajectory: %w", err)
	}

	c.mu.Lock()
	if st := c.machine.State(); !st.Settled() {
		c.mu.Unlock()
		return uuid.Nil, ErrExecutionInProgress
	}

	machine := execution.NewMachine()
	state := machine.Send(execution.Start())

	execID := uuid.New()
	now := time.Now()
	c.machine = machine
	c.execID = execID
	c.trajID = trajectoryID
	c.started = now
	c.cursor = nil
	c.mu.Unlock()

	exec := &storage.Execution{
		ID:           execID,
		TrajectoryID: trajectoryID,
		MotionGroup:  c.motionGroup,
		State:        string(state),
		StartedAt:    now,
	}
	if err := c.store.CreateExecution(ctx, exec); err != nil {
		return uuid.Nil, fmt.Errorf("failed to persist execution: %w", err)
	}

	if err := c.link.StartMotion(ctx, definition); err != nil {
		c.Fail(ctx, fmt.Errorf("controller rejected start: %w", err))
		return execID, fmt.Errorf("failed to start motion: %w", err)
	}

	c.logger.Info("Trajectory execution started",
		zap.String("execution_id", execID.String()),
		zap.String("trajectory", traj.Name),
		zap.String("motion_group", c.motionGroup))

	c.broadcastState(string(execution.StateIdle), string(state), "")
	return execID, nil
}

// Pause asks the controller to bring the motion group to a controlled stop.
// The machine transitions when the PausedByUser event arrives on the
// feedback stream.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.RLock()
	state := c.machine.State()
	c.mu.RUnlock()

	if state != execution.StateExecuting {
		return ErrNoActiveExecution
	}

	if err := c.link.RequestPause(ctx); err != nil {
		return fmt.Errorf("failed to request pause: %w", err)
	}

	c.logger.Info("Pause requested",
		zap.String("motion_group", c.motionGroup))
	return nil
}

// Resume continues a paused execution, or re-runs a completed one, on the
// same machine.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	prev := c.machine.State()
	if prev != execution.StatePaused && prev != execution.StateCompleted {
		c.mu.Unlock()
		return ErrNotPausedOrDone
	}
	state := c.machine.Send(execution.Start())
	execID := c.execID
	c.mu.Unlock()

	if err := c.link.RequestResume(ctx); err != nil {
		c.Fail(ctx, fmt.Errorf("controller rejected resume: %w", err))
		return fmt.Errorf("failed to resume motion: %w", err)
	}

	c.persistTransition(ctx, execID, prev, state, "", nil)
	c.broadcastState(string(prev), string(state), "")

	c.logger.Info("Execution resumed",
		zap.String("execution_id", execID.String()),
		zap.String("motion_group", c.motionGroup))
	return nil
}

// Fail aborts the active execution and latches the machine into Error.
func (c *Controller) Fail(ctx context.Context, cause error) error {
	c.mu.Lock()
	if c.execID == uuid.Nil {
		c.mu.Unlock()
		return ErrNoActiveExecution
	}
	prev := c.machine.State()
	state := c.machine.Send(execution.Fail(cause))
	execID := c.execID
	err := c.machine.Err()
	c.mu.Unlock()

	c.link.Abort(ctx)

	causeMsg := ""
	if err != nil {
		causeMsg = err.Error()
	}
	if prev != state {
		c.persistTransition(ctx, execID, prev, state, causeMsg, nil)
		c.broadcastState(string(prev), string(state), causeMsg)
	}

	c.logger.Warn("Execution failed",
		zap.String("execution_id", execID.String()),
		zap.String("motion_group", c.motionGroup),
		zap.String("cause", causeMsg))
	return nil
}

// Status returns a snapshot of the controller's execution state.
func (c *Controller) Status() ExecutionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := ExecutionStatus{
		MotionGroup: c.motionGroup,
		State:       c.machine.State(),
		Cursor:      c.cursor,
	}
	if c.execID != uuid.Nil {
		status.ExecutionID = c.execID
		status.TrajectoryID = c.trajID
	}
	if err := c.machine.Err(); err != nil {
		status.Cause = err.Error()
	}
	return status
}

func (c *Controller) handleEvent(ctx context.Context, ev execution.MotionEvent) {
	c.mu.Lock()
	prev := c.machine.State()
	res := c.machine.Process(ev)
	if res.Location != nil {
		c.cursor = res.Location
	}
	execID := c.execID
	c.mu.Unlock()

	if execID == uuid.Nil {
		return
	}

	if res.Location != nil {
		c.broadcaster.Broadcast(websocket.NewMotionProgressMessage(
			execID.String(), c.motionGroup, res.Location))
	}

	if res.State == prev {
		return
	}

	c.persistTransition(ctx, execID, prev, res.State, "", res.Location)
	c.broadcastState(string(prev), string(res.State), "")

	if standstill(ev) && res.State.Settled() {
		c.broadcaster.Broadcast(websocket.NewStandstillMessage(
			execID.String(), c.motionGroup, string(res.State)))
	}

	c.logger.Info("Execution state changed",
		zap.String("execution_id", execID.String()),
		zap.String("from", string(prev)),
		zap.String("to", string(res.State)))
}

func (c *Controller) persistTransition(ctx context.Context, execID uuid.UUID, from, to execution.State, cause string, location *types.Pose) {
	var locJSON []byte
	if location != nil {
		locJSON, _ = json.Marshal(location)
	}

	c.mu.RLock()
	started := c.started
	trajID := c.trajID
	cursor := c.cursor
	c.mu.RUnlock()

	var cursorJSON []byte
	if cursor != nil {
		cursorJSON, _ = json.Marshal(cursor)
	}

	exec := &storage.Execution{
		ID:           execID,
		TrajectoryID: trajID,
		MotionGroup:  c.motionGroup,
		State:        string(to),
		Cause:        cause,
		Cursor:       cursorJSON,
		StartedAt:    started,
	}
	if to == execution.StateCompleted || to == execution.StateError {
		now := time.Now()
		exec.CompletedAt = &now
	}

	if err := c.store.UpdateExecution(ctx, exec); err != nil {
		c.logger.Error("Failed to persist execution state",
			zap.String("execution_id", execID.String()),
			zap.Error(err))
	}

	event := &storage.ExecutionEvent{
		ID:          uuid.New(),
		ExecutionID: execID,
		FromState:   string(from),
		ToState:     string(to),
		Location:    locJSON,
		Timestamp:   time.Now(),
	}
	if err := c.store.CreateExecutionEvent(ctx, event); err != nil {
		c.logger.Error("Failed to persist execution event",
			zap.String("execution_id", execID.String()),
			zap.Error(err))
	}
}

func (c *Controller) broadcastState(prev, state, cause string) {
	c.mu.RLock()
	execID := c.execID
	c.mu.RUnlock()

	c.broadcaster.Broadcast(websocket.NewExecutionStateMessage(
		execID.String(), c.motionGroup, state, prev, cause))
}

func standstill(ev execution.MotionEvent) bool {
	switch e := ev.(type) {
	case execution.EndedEvent:
		return e.Standstill
	case execution.PausedByUserEvent:
		return e.Standstill
	default:
		return false
	}
}
