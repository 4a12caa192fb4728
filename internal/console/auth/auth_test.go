package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	pwd, err := NewPassword("hunter2")
	require.NoError(t, err)

	assert.True(t, CheckPassword("hunter2", pwd.String()))
	assert.False(t, CheckPassword("hunter3", pwd.String()))
}

func TestSignAndVerifyToken(t *testing.T) {
	secret := []byte("secret-key")

	token, err := SignToken(secret, "user-1", time.Now())
	require.NoError(t, err)

	userID, err := VerifyToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestVerifyTokenRejectsBadSecret(t *testing.T) {
	token, err := SignToken([]byte("secret-a"), "user-1", time.Now())
	require.NoError(t, err)

	_, err = VerifyToken([]byte("secret-b"), token)
	assert.Error(t, err)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	secret := []byte("secret-key")
	token, err := SignToken(secret, "user-1", time.Now().Add(-2*TokenLifetime))
	require.NoError(t, err)

	_, err = VerifyToken(secret, token)
	assert.Error(t, err)
}
