package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveTrajectory stores a trajectory definition.
func (p *PostgresClient) SaveTrajectory(ctx context.Context, tr *Trajectory) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO trajectories (name, motion_group, definition, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, tr.Name, tr.MotionGroup, tr.Definition, tr.Active).Scan(&tr.ID, &tr.CreatedAt, &tr.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert trajectory: %w", err)
	}

	return nil
}

// LoadTrajectory loads one trajectory by ID.
func (p *PostgresClient) LoadTrajectory(ctx context.Context, trajectoryID uuid.UUID) (*Trajectory, error) {
	var tr Trajectory
	err := p.pool.QueryRow(ctx, `
		SELECT id, name, motion_group, definition, active, created_at, updated_at
		FROM trajectories
		WHERE id = $1
	`, trajectoryID).Scan(
		&tr.ID,
		&tr.Name,
		&tr.MotionGroup,
		&tr.Definition,
		&tr.Active,
		&tr.CreatedAt,
		&tr.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("trajectory not found: %s", trajectoryID)
		}
		return nil, fmt.Errorf("failed to load trajectory: %w", err)
	}

	return &tr, nil
}

// ListTrajectories returns all stored trajectories, optionally filtered by
// motion group.
func (p *PostgresClient) ListTrajectories(ctx context.Context, motionGroup string) ([]*Trajectory, error) {
	query := `
		SELECT id, name, motion_group, definition, active, created_at, updated_at
		FROM trajectories
	`
	args := []any{}
	if motionGroup != "" {
		query += ` WHERE motion_group = $1`
		args = append(args, motionGroup)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trajectories: %w", err)
	}
	defer rows.Close()

	var trajectories []*Trajectory
	for rows.Next() {
		var tr Trajectory
		err := rows.Scan(
			&tr.ID, &tr.Name, &tr.MotionGroup, &tr.Definition,
			&tr.Active, &tr.CreatedAt, &tr.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trajectory: %w", err)
		}
		trajectories = append(trajectories, &tr)
	}

	return trajectories, nil
}

// UpdateTrajectory replaces the stored definition.
func (p *PostgresClient) UpdateTrajectory(ctx context.Context, tr *Trajectory) error {
	result, err := p.pool.Exec(ctx, `
		UPDATE trajectories
		SET name = $1, motion_group = $2, definition = $3, active = $4, updated_at = NOW()
		WHERE id = $5
	`, tr.Name, tr.MotionGroup, tr.Definition, tr.Active, tr.ID)

	if err != nil {
		return fmt.Errorf("failed to update trajectory: %w", err)
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

// DeleteTrajectory removes a trajectory.
func (p *PostgresClient) DeleteTrajectory(ctx context.Context, trajectoryID uuid.UUID) error {
	result, err := p.pool.Exec(ctx, `DELETE FROM trajectories WHERE id = $1`, trajectoryID)
	if err != nil {
		return fmt.Errorf("failed to delete trajectory: %w", err)
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}
