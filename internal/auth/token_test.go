package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learning_assist/internal/models"
)

var testSecret = []byte("test-secret")

func testUser() *models.User {
	return &models.User{
		UserID:   "user-1",
		Email:    "teacher@example.com",
		UserType: "teacher",
	}
}

func TestGenerateAndVerifyToken(t *testing.T) {
	token, err := GenerateToken(testUser(), testSecret)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := VerifyToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "teacher@example.com", claims.Email)
	assert.Equal(t, "teacher", claims.UserType)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(testUser(), testSecret)
	require.NoError(t, err)

	_, err = VerifyToken(token, []byte("other-secret"))
	assert.Error(t, err)
}

func TestVerifyToken_Expired(t *testing.T) {
	claims := jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = VerifyToken(token, testSecret)
	assert.Error(t, err)
}

func TestVerifyToken_MissingUserID(t *testing.T) {
	claims := jwt.MapClaims{
		"email": "someone@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = VerifyToken(token, testSecret)
	assert.Error(t, err)
}

func TestVerifyToken_Garbage(t *testing.T) {
	_, err := VerifyToken("not-a-token", testSecret)
	assert.Error(t, err)
}
