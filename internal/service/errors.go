package service

import (
	"errors"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
)

// requireIdentity 未登入回傳 Unauthorized
func requireIdentity(identity *auth.Identity) error {
	if !auth.IsAuthenticated(identity) {
		return apperr.Unauthorized(apperr.MsgUnauthorized)
	}
	return nil
}

// mapRepoErr 將 repository sentinel 轉成 apperr，resource 用於 NotFound 訊息
func mapRepoErr(err error, resource string) error {
	if err == nil {
		return nil
	}
	if apperr.As(err).Kind != apperr.KindInternal {
		return err
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return apperr.NotFound(resource)
	case errors.Is(err, db.ErrStockNotEnough):
		return apperr.Validation("quantity", apperr.MsgInsufficientStock)
	case errors.Is(err, db.ErrDuplicate):
		return apperr.Conflict(resource + " already exists")
	case errors.Is(err, db.ErrStaleState):
		return apperr.Conflict(resource + " was modified concurrently")
	}
	return apperr.Internal(err)
}
