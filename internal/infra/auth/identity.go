package auth

import (
	"context"

	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/google/uuid"
)

// Identity token 解析後的呼叫者身分，本服務不保存任何 session
type Identity struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	Admin  bool      `json:"-"`
}

func IsAuthenticated(identity *Identity) bool {
	return identity != nil && identity.UserID != uuid.Nil
}

// BelongsTo 資源擁有者是否為呼叫者
func BelongsTo(identity *Identity, ownerID uuid.UUID) bool {
	return IsAuthenticated(identity) && identity.UserID == ownerID
}

func IsAdmin(identity *Identity) bool {
	return IsAuthenticated(identity) && identity.Admin
}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, constants.AuthorizationPayloadKey, identity)
}

// IdentityFromContext 沒有身分時回傳 nil
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(constants.AuthorizationPayloadKey).(*Identity)
	return identity
}
