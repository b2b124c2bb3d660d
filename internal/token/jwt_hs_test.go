package token

import (
	"context"
	"testing"
	"time"

	"pickup-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestHSProvider_RoundTrip(t *testing.T) {
	p := NewHSProvider("secret", "auth-service", "pickup-service")
	uid := uuid.New()

	raw, exp, err := p.SignAccess(context.Background(), uid, models.RoleOperator, time.Minute)
	require.NoError(t, err)

	claims, err := p.ParseAndValidateAccess(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, uid, claims.UserID)
	require.Equal(t, models.RoleOperator, claims.Role)
	require.WithinDuration(t, exp, claims.Exp, time.Second)
}

func TestHSProvider_Rejects(t *testing.T) {
	ctx := context.Background()
	p := NewHSProvider("secret", "auth-service", "pickup-service")
	uid := uuid.New()

	other := NewHSProvider("other-secret", "auth-service", "pickup-service")
	raw, _, err := other.SignAccess(ctx, uid, models.RoleMarketer, time.Minute)
	require.NoError(t, err)
	_, err = p.ParseAndValidateAccess(ctx, raw)
	require.Error(t, err, "wrong secret")

	wrongAud := NewHSProvider("secret", "auth-service", "someone-else")
	raw, _, err = wrongAud.SignAccess(ctx, uid, models.RoleMarketer, time.Minute)
	require.NoError(t, err)
	_, err = p.ParseAndValidateAccess(ctx, raw)
	require.Error(t, err, "wrong audience")

	raw, _, err = p.SignAccess(ctx, uid, models.Role("ROLE_ROOT"), time.Minute)
	require.NoError(t, err)
	_, err = p.ParseAndValidateAccess(ctx, raw)
	require.Error(t, err, "unknown role")

	raw, _, err = p.SignAccess(ctx, uid, models.RoleMarketer, time.Minute)
	require.NoError(t, err)
	p.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = p.ParseAndValidateAccess(ctx, raw)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestHSProvider_RejectsOtherAlgorithms(t *testing.T) {
	p := NewHSProvider("secret", "auth-service", "pickup-service")
	claims := customClaims{
		Sub:  uuid.NewString(),
		Role: string(models.RoleOperator),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "auth-service",
			Audience:  []string{"pickup-service"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = p.ParseAndValidateAccess(context.Background(), raw)
	require.Error(t, err)
}
