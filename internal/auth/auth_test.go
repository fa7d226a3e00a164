package auth

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/repository/memory"
)

func TestTokenRoundTripAndExpiry(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return now }

	token, expires, err := tm.GenerateToken(&domain.User{ID: "u1", Role: domain.RoleEngineer})
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Minute), expires)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, domain.RoleEngineer, claims.Role)

	now = now.Add(11 * time.Minute)
	_, err = tm.ParseToken(token)
	assert.Error(t, err)

	_, err = NewTokenManager("other", 10).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenRejectsForeignIssuerAndAlgorithm(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	claims := Claims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(foreign)
	assert.Error(t, err)

	claims.Issuer = TokenIssuer
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(hs512)
	assert.Error(t, err)

	claims.ExpiresAt = nil
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(noExpiry)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestCredentialCipher(t *testing.T) {
	cipher, err := NewCredentialCipher("k")
	require.NoError(t, err)

	sealed, err := cipher.Seal("asset-1", domain.AssetCredentials{Username: "admin", Password: "p@ss"})
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "p@ss")

	creds, err := cipher.Open("asset-1", sealed)
	require.NoError(t, err)
	assert.Equal(t, "p@ss", creds.Password)

	_, err = cipher.Open("asset-2", sealed)
	assert.ErrorIs(t, err, ErrSealedData)

	other, _ := NewCredentialCipher("k2")
	_, err = other.Open("asset-1", sealed)
	assert.ErrorIs(t, err, ErrSealedData)

	_, err = NewCredentialCipher("")
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter22"))
	assert.Error(t, ComparePassword(hash, "wrong"))

	hash, err = HashPassword("hunter22", 99)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter22"))
}

func TestPasswordPolicyAndTemporaryPasswords(t *testing.T) {
	assert.NoError(t, CheckPassword("eight888"))
	assert.ErrorIs(t, CheckPassword("short"), ErrPasswordPolicy)
	assert.ErrorIs(t, CheckPassword(strings.Repeat("x", MaxPasswordLength+1)), ErrPasswordPolicy)

	first, err := TemporaryPassword()
	require.NoError(t, err)
	second, err := TemporaryPassword()
	require.NoError(t, err)
	assert.Len(t, first, 16)
	assert.NotEqual(t, first, second)
	assert.NoError(t, CheckPassword(first))
	assert.NotContains(t, first, "0")
	assert.NotContains(t, first, "O")
}

func TestMiddlewareAndRoleGuard(t *testing.T) {
	users := memory.NewUserRepository()
	ctx := context.Background()
	require.NoError(t, users.Create(ctx, &domain.User{ID: "eng", Email: "e@x", Role: domain.RoleEngineer, Active: true}))
	require.NoError(t, users.Create(ctx, &domain.User{ID: "gone", Email: "g@x", Role: domain.RoleAdmin, Active: false}))

	tm := NewTokenManager("secret", 10)
	mw := NewAuthMiddleware(tm, users)

	app := fiber.New()
	app.Get("/me", mw.Handle, RequireAnyRole(), func(c *fiber.Ctx) error {
		user, _ := PrincipalFromContext(c)
		return c.SendString(user.ID)
	})
	app.Get("/admin", mw.Handle, RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error { return c.SendStatus(204) })

	call := func(path, token string) int {
		req := httptest.NewRequest("GET", path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	engToken, _, _ := tm.GenerateToken(&domain.User{ID: "eng", Role: domain.RoleEngineer})
	goneToken, _, _ := tm.GenerateToken(&domain.User{ID: "gone", Role: domain.RoleAdmin})

	assert.Equal(t, 200, call("/me", engToken))
	assert.Equal(t, 200, call("/me?access_token="+engToken, ""))
	assert.Equal(t, 403, call("/admin", engToken))
	assert.NotEqual(t, 200, call("/me", ""))
	assert.NotEqual(t, 200, call("/me", goneToken))
}
