package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGenerateAccessToken(t *testing.T) {
	manager := NewManager("test-secret", 15*time.Minute, 24*time.Hour)
	userID := uuid.New()

	token, err := manager.GenerateAccessToken(userID, "student@example.com", "student", true)

	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestValidateToken_ValidToken(t *testing.T) {
	manager := NewManager("test-secret", 15*time.Minute, 24*time.Hour)
	userID := uuid.New()

	token, err := manager.GenerateAccessToken(userID, "teacher@example.com", "teacher", true)
	assert.NoError(t, err)

	claims, err := manager.ValidateToken(token)

	assert.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "teacher@example.com", claims.Email)
	assert.Equal(t, "teacher", claims.Role)
	assert.True(t, claims.Verified)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	manager := NewManager("test-secret", 15*time.Minute, 24*time.Hour)
	other := NewManager("other-secret", 15*time.Minute, 24*time.Hour)

	token, err := manager.GenerateAccessToken(uuid.New(), "a@example.com", "student", false)
	assert.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	manager := NewManager("test-secret", -time.Minute, 24*time.Hour)

	token, err := manager.GenerateAccessToken(uuid.New(), "a@example.com", "student", true)
	assert.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestGenerateRefreshToken(t *testing.T) {
	manager := NewManager("test-secret", 15*time.Minute, 24*time.Hour)
	userID := uuid.New()

	token, err := manager.GenerateRefreshToken(userID)
	assert.NoError(t, err)

	claims, err := manager.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Empty(t, claims.Role)
}
