package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidateAccessToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-key-for-unit-tests", time.Minute, time.Hour)
	userID := uuid.New()

	token, err := issuer.IssueAccessToken(userID, "operator1", "operator")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "operator1", claims.Username)
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, "motioncore", claims.Issuer)
}

func TestValidateAccessTokenWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Minute, time.Hour)
	other := NewTokenIssuer("secret-b", time.Minute, time.Hour)

	token, err := issuer.IssueAccessToken(uuid.New(), "tech1", "technician")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute, time.Hour)

	token, err := issuer.IssueAccessToken(uuid.New(), "admin1", "admin")
	require.NoError(t, err)

	_, err = issuer.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestIssueRefreshTokenRandomness(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute, time.Hour)

	t1, err := issuer.IssueRefreshToken()
	require.NoError(t, err)
	t2, err := issuer.IssueRefreshToken()
	require.NoError(t, err)

	assert.Len(t, t1, 64)
	assert.NotEqual(t, t1, t2)
}

func TestRoleToPermissions(t *testing.T) {
	s := &Service{}

	assert.Equal(t, []Permission{PermOperator, PermTechnician, PermAdmin}, s.roleToPermissions("admin"))
	assert.Equal(t, []Permission{PermOperator, PermTechnician}, s.roleToPermissions("technician"))
	assert.Equal(t, []Permission{PermOperator}, s.roleToPermissions("operator"))
	assert.Equal(t, []Permission{PermOperator}, s.roleToPermissions("unknown"))
}
