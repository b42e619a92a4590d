package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/motionforge/motioncore/internal/config"
	"github.com/motionforge/motioncore/internal/storage"
)

type Permission string

const (
	PermOperator   Permission = "operator"
	PermTechnician Permission = "technician"
	PermAdmin      Permission = "admin"
)

type Service struct {
	storage *storage.PostgresClient
	issuer  *TokenIssuer
}

func NewService(store *storage.PostgresClient, cfg config.AuthConfig) *Service {
	return &Service{
		storage: store,
		issuer:  NewTokenIssuer(cfg.GetJWTSecret(), cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
	}
}

// Login authenticates a user and returns an access/refresh token pair
func (s *Service) Login(ctx context.Context, username, password, ipAddress, userAgent string) (accessToken, refreshToken string, err error) {
	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		s.logAuthEvent(ctx, "user_login_failed", nil, ipAddress, userAgent, false, "user not found")
		return "", "", fmt.Errorf("invalid credentials")
	}

	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return "", "", fmt.Errorf("account locked until %v", user.LockedUntil)
	}

	valid, err := VerifyPassword(password, user.PasswordHash)
	if err != nil || !valid {
		s.storage.IncrementFailedLoginAttempts(ctx, user.ID)
		s.logAuthEvent(ctx, "user_login_failed", &user.ID, ipAddress, userAgent, false, "invalid password")
		return "", "", fmt.Errorf("invalid credentials")
	}

	s.storage.ResetFailedLoginAttempts(ctx, user.ID)

	accessToken, err = s.issuer.IssueAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err = s.issuer.IssueRefreshToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	tokenHash := hashRefreshToken(refreshToken)
	expiresAt := time.Now().Add(s.issuer.refreshTokenTTL)
	if err := s.storage.StoreRefreshToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	s.storage.UpdateLastLogin(ctx, user.ID)
	s.logAuthEvent(ctx, "user_login_success", &user.ID, ipAddress, userAgent, true, "")

	return accessToken, refreshToken, nil
}

// Refresh rotates a refresh token and returns a fresh token pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	tokenHash := hashRefreshToken(refreshToken)

	userID, err := s.storage.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}

	user, err := s.storage.GetUserByID(ctx, *userID)
	if err != nil {
		return "", "", fmt.Errorf("user not found: %w", err)
	}

	s.storage.RevokeRefreshToken(ctx, tokenHash)

	accessToken, err := s.issuer.IssueAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	newRefreshToken, err := s.issuer.IssueRefreshToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	newTokenHash := hashRefreshToken(newRefreshToken)
	expiresAt := time.Now().Add(s.issuer.refreshTokenTTL)
	if err := s.storage.StoreRefreshToken(ctx, user.ID, newTokenHash, expiresAt); err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return accessToken, newRefreshToken, nil
}

// Logout revokes a refresh token
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.storage.RevokeRefreshToken(ctx, hashRefreshToken(refreshToken))
}

// CreateUser creates a new user with a hashed password
func (s *Service) CreateUser(ctx context.Context, username, password, role string) (*storage.User, error) {
	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return s.storage.CreateUser(ctx, username, passwordHash, role)
}

// ValidateToken validates an access token and returns the caller's permissions
func (s *Service) ValidateToken(token string) ([]Permission, error) {
	claims, err := s.issuer.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	return s.roleToPermissions(claims.Role), nil
}

func (s *Service) roleToPermissions(role string) []Permission {
	switch role {
	case "admin":
		return []Permission{PermOperator, PermTechnician, PermAdmin}
	case "technician":
		return []Permission{PermOperator, PermTechnician}
	default:
		return []Permission{PermOperator}
	}
}

func hashRefreshToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func (s *Service) logAuthEvent(ctx context.Context, eventType string, userID *uuid.UUID, ip, userAgent string, success bool, reason string) {
	_ = s.storage.LogAuthEvent(ctx, eventType, userID, ip, userAgent, success, reason)
}
