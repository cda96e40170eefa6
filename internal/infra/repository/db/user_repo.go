package db

import (
	"context"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileUpdate nil 欄位不更新
type ProfileUpdate struct {
	FullName  *string
	Phone     *string
	AvatarURL *string
}

func (u ProfileUpdate) columns() map[string]any {
	cols := map[string]any{}
	if u.FullName != nil {
		cols["full_name"] = *u.FullName
	}
	if u.Phone != nil {
		cols["phone"] = *u.Phone
	}
	if u.AvatarURL != nil {
		cols["avatar_url"] = *u.AvatarURL
	}
	return cols
}

type IUserRepository interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*model.UserProfile, error)
	// CreateProfileIfNotExists 冪等
	CreateProfileIfNotExists(ctx context.Context, profile *model.UserProfile) error
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) error

	ListAddresses(ctx context.Context, userID uuid.UUID) ([]model.Address, error)
	GetAddress(ctx context.Context, id uuid.UUID) (*model.Address, error)
	CreateAddress(ctx context.Context, address *model.Address) error
	UpdateAddress(ctx context.Context, address *model.Address) error
	DeleteAddress(ctx context.Context, userID, id uuid.UUID) error
	// ClearDefaultAddresses 取消使用者在 types 中的預設地址，except 除外
	ClearDefaultAddresses(ctx context.Context, userID uuid.UUID, types []model.AddressType, except uuid.UUID) error

	ExecTx(ctx context.Context, fn func(IUserRepository) error) error
}

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) ExecTx(ctx context.Context, fn func(IUserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UserRepo{db: tx})
	})
}

func (r *UserRepo) GetProfile(ctx context.Context, id uuid.UUID) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *UserRepo) CreateProfileIfNotExists(ctx context.Context, profile *model.UserProfile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(profile).Error
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) error {
	cols := update.columns()
	if len(cols) == 0 {
		return nil
	}
	cols["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).Model(&model.UserProfile{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAddresses 預設地址在前
func (r *UserRepo) ListAddresses(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	var addresses []model.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at ASC").
		Find(&addresses).Error
	return addresses, err
}

func (r *UserRepo) GetAddress(ctx context.Context, id uuid.UUID) (*model.Address, error) {
	var address model.Address
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&address).Error; err != nil {
		return nil, translate(err)
	}
	return &address, nil
}

func (r *UserRepo) CreateAddress(ctx context.Context, address *model.Address) error {
	return translate(r.db.WithContext(ctx).Create(address).Error)
}

func (r *UserRepo) UpdateAddress(ctx context.Context, address *model.Address) error {
	result := r.db.WithContext(ctx).Model(address).
		Where("user_id = ?", address.UserID).
		Select("type", "is_default", "full_name", "phone", "address_line1", "address_line2",
			"city", "state", "postal_code", "country", "updated_at").
		Updates(address)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) DeleteAddress(ctx context.Context, userID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Address{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) ClearDefaultAddresses(ctx context.Context, userID uuid.UUID, types []model.AddressType, except uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Address{}).
		Where("user_id = ? AND is_default = ? AND type IN ? AND id <> ?", userID, true, types, except).
		Updates(map[string]any{
			"is_default": false,
			"updated_at": time.Now().UTC(),
		}).Error
}

var _ IUserRepository = (*UserRepo)(nil)
