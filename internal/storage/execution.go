package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateExecution records the start of a trajectory execution.
func (p *PostgresClient) CreateExecution(ctx context.Context, exec *Execution) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO executions (id, trajectory_id, motion_group, state, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`, exec.ID, exec.TrajectoryID, exec.MotionGroup, exec.State, exec.StartedAt)

	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

// UpdateExecution persists the current machine state, failure cause, and
// cursor of an execution.
func (p *PostgresClient) UpdateExecution(ctx context.Context, exec *Execution) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE executions
		SET state = $1, cause = $2, cursor = $3, completed_at = $4
		WHERE id = $5
	`, exec.State, exec.Cause, exec.Cursor, exec.CompletedAt, exec.ID)

	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	return nil
}

// GetExecution loads one execution record.
func (p *PostgresClient) GetExecution(ctx context.Context, executionID uuid.UUID) (*Execution, error) {
	var exec Execution
	err := p.pool.QueryRow(ctx, `
		SELECT id, trajectory_id, motion_group, state, cause, cursor, started_at, completed_at
		FROM executions
		WHERE id = $1
	`, executionID).Scan(
		&exec.ID, &exec.TrajectoryID, &exec.MotionGroup, &exec.State,
		&exec.Cause, &exec.Cursor, &exec.StartedAt, &exec.CompletedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("execution not found: %s", executionID)
		}
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	return &exec, nil
}

// CreateExecutionEvent appends one state change to the execution log.
func (p *PostgresClient) CreateExecutionEvent(ctx context.Context, event *ExecutionEvent) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO execution_events (id, execution_id, from_state, to_state, location, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ID, event.ExecutionID, event.FromState, event.ToState, event.Location, event.Timestamp)

	if err != nil {
		return fmt.Errorf("failed to create execution event: %w", err)
	}

	return nil
}

// GetExecutionEvents returns the state-change log of one execution in order.
func (p *PostgresClient) GetExecutionEvents(ctx context.Context, executionID uuid.UUID) ([]ExecutionEvent, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, execution_id, from_state, to_state, location, timestamp
		FROM execution_events
		WHERE execution_id = $1
		ORDER BY timestamp
	`, executionID)

	if err != nil {
		return nil, fmt.Errorf("failed to load execution events: %w", err)
	}
	defer rows.Close()

	var events []ExecutionEvent
	for rows.Next() {
		var ev ExecutionEvent
		err := rows.Scan(&ev.ID, &ev.ExecutionID, &ev.FromState, &ev.ToState, &ev.Location, &ev.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution event: %w", err)
		}
		events = append(events, ev)
	}

	return events, nil
}
