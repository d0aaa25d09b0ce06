package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	authSvc := service.NewAuthService("test-secret", time.Hour)

	token, err := authSvc.GenerateToken(&models.User{ID: 42, Username: "cook"})
	require.NoError(t, err)

	claims, err := authSvc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "cook", claims.Username)
	assert.Equal(t, "42", claims.Subject)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := service.NewAuthService("one", time.Hour).GenerateToken(&models.User{ID: 1})
	require.NoError(t, err)

	_, err = service.NewAuthService("two", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	authSvc := service.NewAuthService("test-secret", time.Hour)
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	token, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = authSvc.ValidateToken(token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestValidateTokenRejectsOtherAlgorithms(t *testing.T) {
	authSvc := service.NewAuthService("test-secret", time.Hour)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": 1})
	token, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = authSvc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := service.NewAuthService("s", time.Hour).ValidateToken("not-a-token")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}
