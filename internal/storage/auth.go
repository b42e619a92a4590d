package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetUserByUsername retrieves a user by username
func (p *PostgresClient) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := p.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role, created_at, last_login_at,
		       failed_login_attempts, locked_until
		FROM users
		WHERE username = $1
	`, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role,
		&user.CreatedAt, &user.LastLoginAt, &user.FailedLoginAttempts, &user.LockedUntil,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (p *PostgresClient) GetUserByID(ctx context.Context, userID uuid.UUID) (*User, error) {
	var user User
	err := p.pool.QueryRow(ctx, `
		SELECT id, username, role, created_at, last_login_at, failed_login_attempts, locked_until
		FROM users WHERE id = $1
	`, userID).Scan(
		&user.ID, &user.Username, &user.Role, &user.CreatedAt,
		&user.LastLoginAt, &user.FailedLoginAttempts, &user.LockedUntil,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateUser creates a new user
func (p *PostgresClient) CreateUser(ctx context.Context, username, passwordHash, role string) (*User, error) {
	var user User
	err := p.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, username, role, created_at, last_login_at, failed_login_attempts, locked_until
	`, username, passwordHash, role).Scan(
		&user.ID, &user.Username, &user.Role, &user.CreatedAt,
		&user.LastLoginAt, &user.FailedLoginAttempts, &user.LockedUntil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// UpdateLastLogin updates the last login timestamp
func (p *PostgresClient) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE users SET last_login_at = NOW() WHERE id = $1
	`, userID)
	return err
}

// IncrementFailedLoginAttempts increments failed login counter
func (p *PostgresClient) IncrementFailedLoginAttempts(ctx context.Context, userID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= 5 THEN NOW() + INTERVAL '15 minutes'
		        ELSE locked_until
		    END
		WHERE id = $1
	`, userID)
	return err
}

// ResetFailedLoginAttempts resets failed login counter
func (p *PostgresClient) ResetFailedLoginAttempts(ctx context.Context, userID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL
		WHERE id = $1
	`, userID)
	return err
}

// Refresh Token Methods
func (p *PostgresClient) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, tokenHash, expiresAt)
	return err
}

func (p *PostgresClient) GetRefreshToken(ctx context.Context, tokenHash string) (*uuid.UUID, error) {
	var userID uuid.UUID
	var expiresAt time.Time
	var revokedAt *time.Time

	err := p.pool.QueryRow(ctx, `
		SELECT user_id, expires_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`, tokenHash).Scan(&userID, &expiresAt, &revokedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("refresh token not found")
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if revokedAt != nil {
		return nil, fmt.Errorf("refresh token revoked")
	}

	if time.Now().After(expiresAt) {
		return nil, fmt.Errorf("refresh token expired")
	}

	return &userID, nil
}

func (p *PostgresClient) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW() WHERE token_hash = $1
	`, tokenHash)
	return err
}

// Auth Event Logging
func (p *PostgresClient) LogAuthEvent(ctx context.Context, eventType string, userID *uuid.UUID, ipAddress, userAgent string, success bool, reason string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO auth_events (event_type, user_id, ip_address, user_agent, success, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, eventType, userID, ipAddress, userAgent, success, reason)
	return err
}
