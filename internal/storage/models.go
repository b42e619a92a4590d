package storage

import (
	"time"

	"github.com/google/uuid"
)

type Trajectory struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	MotionGroup string    `json:"motion_group"`
	Definition  []byte    `json:"definition"` // JSONB
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Execution struct {
	ID           uuid.UUID  `json:"id"`
	TrajectoryID uuid.UUID  `json:"trajectory_id"`
	MotionGroup  string     `json:"motion_group"`
	State        string     `json:"state"`
	Cause        string     `json:"cause,omitempty"`
	Cursor       []byte     `json:"cursor,omitempty"` // JSONB, last reported pose
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type ExecutionEvent struct {
	ID          uuid.UUID `json:"id"`
	ExecutionID uuid.UUID `json:"execution_id"`
	FromState   string    `json:"from_state"`
	ToState     string    `json:"to_state"`
	Location    []byte    `json:"location,omitempty"` // JSONB
	Timestamp   time.Time `json:"timestamp"`
}

type User struct {
	ID                  uuid.UUID  `json:"id"`
	Username            string     `json:"username"`
	PasswordHash        string     `json:"-"` // Never expose in JSON
	Role                string     `json:"role"`
	CreatedAt           time.Time  `json:"created_at"`
	LastLoginAt         *time.Time `json:"last_login_at"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"locked_until,omitempty"`
}
