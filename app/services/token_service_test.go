package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestTokenService creates a token service for testing with a symmetric key
func createTestTokenService() (TokenService, error) {
	return NewTokenService(
		15*time.Minute,
		"leadforge-test",
		"leadforge-admin",
		false, // useRSAKeys
		"",    // privateKeyPEM
		"",    // publicKeyPEM
		"test-secret-key-for-jwt-signing-32-chars", // secretKey
	)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name           string
		accessTokenTTL time.Duration
		useRSAKeys     bool
		privateKeyPEM  string
		publicKeyPEM   string
		secretKey      string
		expectError    bool
	}{
		{
			name:           "valid symmetric key configuration",
			accessTokenTTL: 15 * time.Minute,
			secretKey:      "test-secret-key-for-jwt-signing-32-chars",
		},
		{
			name:           "missing secret key",
			accessTokenTTL: 15 * time.Minute,
			secretKey:      "",
			expectError:    true,
		},
		{
			name:           "RSA mode without keys",
			accessTokenTTL: 15 * time.Minute,
			useRSAKeys:     true,
			expectError:    true,
		},
		{
			name:           "RSA mode with malformed keys",
			accessTokenTTL: 15 * time.Minute,
			useRSAKeys:     true,
			privateKeyPEM:  "not-a-pem",
			publicKeyPEM:   "not-a-pem",
			expectError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewTokenService(
				tt.accessTokenTTL,
				"leadforge-test",
				"leadforge-admin",
				tt.useRSAKeys,
				tt.privateKeyPEM,
				tt.publicKeyPEM,
				tt.secretKey,
			)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestGenerateAndValidateAdminToken(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	token, err := svc.GenerateAdminToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.AdminID)
	assert.Equal(t, "access", claims.TokenType)
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestGenerateAdminTokenUniqueIDs(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	first, err := svc.GenerateAdminToken(1)
	require.NoError(t, err)
	second, err := svc.GenerateAdminToken(1)
	require.NoError(t, err)

	firstClaims, err := svc.ValidateAdminToken(first)
	require.NoError(t, err)
	secondClaims, err := svc.ValidateAdminToken(second)
	require.NoError(t, err)

	assert.NotEqual(t, firstClaims.TokenID, secondClaims.TokenID)
}

func TestValidateAdminTokenExpired(t *testing.T) {
	svc, err := NewTokenService(
		-time.Hour,
		"leadforge-test",
		"leadforge-admin",
		false,
		"",
		"",
		"test-secret-key-for-jwt-signing-32-chars",
	)
	require.NoError(t, err)

	token, err := svc.GenerateAdminToken(7)
	require.NoError(t, err)

	_, err = svc.ValidateAdminToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateAdminTokenInvalid(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	t.Run("Garbage", func(t *testing.T) {
		_, err := svc.ValidateAdminToken("not.a.token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other, err := NewTokenService(
			15*time.Minute,
			"leadforge-test",
			"leadforge-admin",
			false,
			"",
			"",
			"a-completely-different-signing-secret-key",
		)
		require.NoError(t, err)

		token, err := other.GenerateAdminToken(7)
		require.NoError(t, err)

		_, err = svc.ValidateAdminToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("Tampered", func(t *testing.T) {
		token, err := svc.GenerateAdminToken(7)
		require.NoError(t, err)

		_, err = svc.ValidateAdminToken(token + "x")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
