package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_roundTrip(t *testing.T) {
	svc := NewJWTService("test-jwt-secret", time.Hour)
	userID := uuid.New()

	token, err := svc.SignAccessToken(userID, "+2348012345678")
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "+2348012345678", claims.PhoneNumber)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTService_rejectsOtherSecret(t *testing.T) {
	token, err := NewJWTService("one", time.Hour).SignAccessToken(uuid.New(), "+1")
	require.NoError(t, err)

	_, err = NewJWTService("two", time.Hour).VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_rejectsExpired(t *testing.T) {
	secret := []byte("test-jwt-secret")
	claims := &JWTClaims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = NewJWTService(string(secret), time.Hour).VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_rejectsGarbage(t *testing.T) {
	_, err := NewJWTService("s", 0).VerifyToken("mock-token-+2348012345678")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
