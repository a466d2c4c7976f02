package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/fieldops/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	userID := uuid.New()
	email := "tec@example.com"

	token, err := jwtService.GenerateToken(userID, email, "user")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, email, claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "fieldops", claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestJWTService_ValidateToken(t *testing.T) {
	userID := uuid.New()
	email := "tec@example.com"

	valid := auth.NewJWTService("test-secret", 24*time.Hour)
	token, err := valid.GenerateToken(userID, email, "admin")
	require.NoError(t, err)

	expired, err := auth.NewJWTService("test-secret", -time.Minute).GenerateToken(userID, email, "user")
	require.NoError(t, err)

	foreign, err := auth.NewJWTService("secret-2", 24*time.Hour).GenerateToken(userID, email, "user")
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"expired", expired, auth.ErrExpiredToken},
		{"tampered", token + "tampered", auth.ErrInvalidToken},
		{"different secret", foreign, auth.ErrInvalidToken},
		{"malformed", "not-a-valid-jwt", auth.ErrInvalidToken},
		{"empty", "", auth.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := valid.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestJWTService_PlatformRoles(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", time.Hour)

	for _, role := range []string{"user", "admin"} {
		t.Run(role, func(t *testing.T) {
			token, err := jwtService.GenerateToken(uuid.New(), "x@example.com", role)
			require.NoError(t, err)

			claims, err := jwtService.ValidateToken(token)
			require.NoError(t, err)
			assert.Equal(t, role, claims.Role)
		})
	}
}
