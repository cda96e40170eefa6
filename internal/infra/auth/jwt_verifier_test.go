package auth

import (
	"context"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(userID uuid.UUID, role string) Claims {
	return Claims{
		Email: "asha@example.com",
		Role:  role,
		StandardClaims: jwt.StandardClaims{
			Subject:   userID.String(),
			Audience:  "authenticated",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
}

func TestJWTVerifier(t *testing.T) {
	verifier, err := NewJWTVerifier(testSecret, "authenticated", "service_role")
	require.NoError(t, err)
	userID := uuid.New()

	testCases := []struct {
		name      string
		token     func() string
		expectErr bool
		check     func(t *testing.T, identity *Identity)
	}{
		{
			name: "valid user token",
			token: func() string {
				return signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(userID, "authenticated"))
			},
			check: func(t *testing.T, identity *Identity) {
				require.Equal(t, userID, identity.UserID)
				require.Equal(t, "asha@example.com", identity.Email)
				require.False(t, IsAdmin(identity))
				require.True(t, BelongsTo(identity, userID))
				require.False(t, BelongsTo(identity, uuid.New()))
			},
		},
		{
			name: "admin role",
			token: func() string {
				return signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(userID, "service_role"))
			},
			check: func(t *testing.T, identity *Identity) {
				require.True(t, IsAdmin(identity))
			},
		},
		{
			name: "expired",
			token: func() string {
				c := validClaims(userID, "authenticated")
				c.ExpiresAt = time.Now().Add(-time.Minute).Unix()
				return signToken(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			expectErr: true,
		},
		{
			name: "wrong secret",
			token: func() string {
				return signToken(t, jwt.SigningMethodHS256, []byte("another-secret"), validClaims(userID, "authenticated"))
			},
			expectErr: true,
		},
		{
			name: "wrong audience",
			token: func() string {
				c := validClaims(userID, "authenticated")
				c.Audience = "anon"
				return signToken(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			expectErr: true,
		},
		{
			name: "subject not uuid",
			token: func() string {
				c := validClaims(userID, "authenticated")
				c.Subject = "user-1"
				return signToken(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			expectErr: true,
		},
		{
			name: "none algorithm",
			token: func() string {
				return signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims(userID, "authenticated"))
			},
			expectErr: true,
		},
		{
			name:      "garbage",
			token:     func() string { return "not-a-token" },
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			identity, err := verifier.Verify(tc.token())
			if tc.expectErr {
				require.ErrorIs(t, err, ErrInvalidToken)
				require.Nil(t, identity)
				return
			}
			require.NoError(t, err)
			tc.check(t, identity)
		})
	}
}

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	_, err := NewJWTVerifier("", "authenticated", "service_role")
	require.ErrorIs(t, err, ErrMissingKey)
}

func TestIdentityContext(t *testing.T) {
	require.Nil(t, IdentityFromContext(context.Background()))
	require.False(t, IsAuthenticated(nil))

	identity := &Identity{UserID: uuid.New()}
	ctx := WithIdentity(context.Background(), identity)
	require.Same(t, identity, IdentityFromContext(ctx))
	require.True(t, IsAuthenticated(identity))
}
