package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 資料不存在
	ErrNotFound = errors.New("record not found")
	// ErrStockNotEnough 商品庫存不足
	ErrStockNotEnough = errors.New("product stock not enough")
	// ErrDuplicate 違反唯一鍵
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleState 條件更新沒有命中，資料已被其他請求修改
	ErrStaleState = errors.New("stale state")
	// ErrStoreNotConfigured 指定的資料庫沒有設定
	ErrStoreNotConfigured = errors.New("store not configured")
)

// translate 將 gorm 錯誤轉成 repo sentinel，保留原始錯誤
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}
	return err
}
