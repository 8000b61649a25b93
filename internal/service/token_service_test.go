package service

import (
	"testing"
	"time"

	"cutcoin-wallet/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-key-for-unit-tests"

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, 24*time.Hour, "cutcoin-wallet")

	for _, role := range []domain.OwnerType{domain.OwnerStudent, domain.OwnerMerchant} {
		t.Run(string(role), func(t *testing.T) {
			id := uuid.New()
			tokenStr, expiresAt, err := svc.Generate(id, role)
			require.NoError(t, err)
			assert.True(t, expiresAt.After(time.Now()))

			claims, err := svc.Validate(tokenStr)
			require.NoError(t, err)
			assert.Equal(t, id, claims.SubjectID)
			assert.Equal(t, role, claims.Role)
		})
	}
}

func TestJWTTokenService_ExpiredToken(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, -1*time.Hour, "cutcoin-wallet")

	tokenStr, _, err := svc.Generate(uuid.New(), domain.OwnerStudent)
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_InvalidSignature(t *testing.T) {
	svc1 := NewJWTTokenService("secret-1", time.Hour, "cutcoin-wallet")
	svc2 := NewJWTTokenService("secret-2", time.Hour, "cutcoin-wallet")

	tokenStr, _, err := svc1.Generate(uuid.New(), domain.OwnerStudent)
	require.NoError(t, err)

	_, err = svc2.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_WrongIssuer(t *testing.T) {
	other := NewJWTTokenService(testJWTSecret, time.Hour, "someone-else")
	tokenStr, _, err := other.Generate(uuid.New(), domain.OwnerStudent)
	require.NoError(t, err)

	_, err = NewJWTTokenService(testJWTSecret, time.Hour, "cutcoin-wallet").Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsUnknownRole(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": "admin",
		"iss":  "cutcoin-wallet",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	_, err = NewJWTTokenService(testJWTSecret, time.Hour, "cutcoin-wallet").Validate(tokenStr)
	assert.ErrorContains(t, err, "unknown role")
}

func TestJWTTokenService_RejectsNoneAlgorithm(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": "student",
		"iss":  "cutcoin-wallet",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTTokenService(testJWTSecret, time.Hour, "cutcoin-wallet").Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_InvalidTokenString(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "cutcoin-wallet")

	_, err := svc.Validate("not.a.valid.jwt")
	assert.Error(t, err)
	_, err = svc.Validate("")
	assert.Error(t, err)
}
