package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-at-least-32-chars!!"

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "usdt-custody")
	userID := uuid.New()

	token, expiry, err := svc.Generate(userID, false)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.False(t, claims.IsAdmin)
}

func TestJWTTokenService_AdminClaim(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "usdt-custody")
	userID := uuid.New()

	token, _, err := svc.Generate(userID, true)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
}

func TestJWTTokenService_WrongSecret(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "usdt-custody")
	other := NewJWTTokenService("another-secret-key-of-enough-len!", time.Hour, "usdt-custody")

	token, _, err := svc.Generate(uuid.New(), false)
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_Expired(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, -time.Minute, "usdt-custody")

	token, _, err := svc.Generate(uuid.New(), false)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_Garbage(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "usdt-custody")

	_, err := svc.Validate("not.a.jwt")
	assert.Error(t, err)
}
