package auth

import (
	"errors"
	"fmt"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingKey   = errors.New("jwt secret is empty")
)

type IVerifier interface {
	Verify(token string) (*Identity, error)
}

// Claims 身分提供者簽發的 access token
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.StandardClaims
}

// JWTVerifier 以共用 secret 驗證 HS256 token
type JWTVerifier struct {
	secret    []byte
	audience  string
	adminRole string
}

func NewJWTVerifier(secret, audience, adminRole string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, ErrMissingKey
	}
	return &JWTVerifier{
		secret:    []byte(secret),
		audience:  audience,
		adminRole: adminRole,
	}, nil
}

func (v *JWTVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, token.Header["alg"])
	}
	return v.secret, nil
}

// Verify 驗證簽章、過期時間與 audience，sub 必須是 uuid
func (v *JWTVerifier) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}

	return &Identity{
		UserID: userID,
		Email:  claims.Email,
		Role:   claims.Role,
		Admin:  v.adminRole != "" && claims.Role == v.adminRole,
	}, nil
}

var _ IVerifier = (*JWTVerifier)(nil)
