package utils

import (
	"testing"

	"funnelpulse/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	jwtSecret = []byte("test-secret")

	user := &models.User{ID: 42, Email: "analyst@example.com"}

	token, err := GenerateJWT(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "analyst@example.com", claims.Email)
	assert.Equal(t, "funnelpulse-api", claims.Issuer)
}

func TestValidateJWT_Garbage(t *testing.T) {
	jwtSecret = []byte("test-secret")

	_, err := ValidateJWT("not-a-token")
	assert.Error(t, err)
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	jwtSecret = []byte("secret-a")
	user := &models.User{ID: 1, Email: "a@example.com"}
	token, err := GenerateJWT(user)
	require.NoError(t, err)

	jwtSecret = []byte("secret-b")
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}
