package service

import (
	"context"
	"errors"
	"strings"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/google/uuid"
)

type UpdateProfileRequest struct {
	FullName  *string `json:"full_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type AddressRequest struct {
	Type         model.AddressType `json:"type"`
	IsDefault    bool              `json:"is_default"`
	FullName     string            `json:"full_name"`
	Phone        string            `json:"phone"`
	AddressLine1 string            `json:"address_line1"`
	AddressLine2 string            `json:"address_line2"`
	City         string            `json:"city"`
	State        string            `json:"state"`
	PostalCode   string            `json:"postal_code"`
	Country      string            `json:"country"`
}

func (r AddressRequest) validate() error {
	if r.Type != "" && !r.Type.IsValid() {
		return apperr.Validation("type", "Invalid address type")
	}
	snapshot := model.AddressSnapshot{
		FullName:     r.FullName,
		AddressLine1: r.AddressLine1,
		City:         r.City,
		PostalCode:   r.PostalCode,
		Country:      r.Country,
	}
	if missing := snapshot.MissingField(); missing != "" {
		return apperr.Validation(missing, apperr.MsgMissingFields)
	}
	return nil
}

func (r AddressRequest) apply(a *model.Address) {
	a.Type = r.Type
	if a.Type == "" {
		a.Type = model.AddressTypeShipping
	}
	a.IsDefault = r.IsDefault
	a.FullName = strings.TrimSpace(r.FullName)
	a.Phone = strings.TrimSpace(r.Phone)
	a.AddressLine1 = strings.TrimSpace(r.AddressLine1)
	a.AddressLine2 = strings.TrimSpace(r.AddressLine2)
	a.City = strings.TrimSpace(r.City)
	a.State = strings.TrimSpace(r.State)
	a.PostalCode = strings.TrimSpace(r.PostalCode)
	a.Country = strings.TrimSpace(r.Country)
}

// IUserService 個人資料與地址簿
// 錯誤:
//   - apperr.KindUnauthorized 401: 未登入
//   - apperr.KindValidation 400: 地址欄位缺少
//   - apperr.KindNotFound 404: 地址不存在或不屬於呼叫者
type IUserService interface {
	GetProfile(ctx context.Context, identity *auth.Identity) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, identity *auth.Identity, req UpdateProfileRequest) (*model.UserProfile, error)
	ListAddresses(ctx context.Context, identity *auth.Identity) ([]model.Address, error)
	CreateAddress(ctx context.Context, identity *auth.Identity, req AddressRequest) (*model.Address, error)
	UpdateAddress(ctx context.Context, identity *auth.Identity, id uuid.UUID, req AddressRequest) (*model.Address, error)
	DeleteAddress(ctx context.Context, identity *auth.Identity, id uuid.UUID) error
}

type UserService struct {
	users db.IUserRepository
}

func NewUserService(users db.IUserRepository) *UserService {
	if users == nil {
		panic("user service missing required dependency user repository")
	}
	return &UserService{users: users}
}

// ensureProfile 第一次存取時以 token 內容建立 profile
func (s *UserService) ensureProfile(ctx context.Context, identity *auth.Identity) (*model.UserProfile, error) {
	profile, err := s.users.GetProfile(ctx, identity.UserID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, apperr.Internalf(err, "get profile")
	}

	profile = &model.UserProfile{
		BaseModel: model.BaseModel{ID: identity.UserID},
		Email:     identity.Email,
	}
	if err := s.users.CreateProfileIfNotExists(ctx, profile); err != nil {
		return nil, apperr.Internalf(err, "create profile")
	}
	// 並行建立時以資料庫內容為準
	profile, err = s.users.GetProfile(ctx, identity.UserID)
	if err != nil {
		return nil, apperr.Internalf(err, "get profile")
	}
	return profile, nil
}

func (s *UserService) GetProfile(ctx context.Context, identity *auth.Identity) (*model.UserProfile, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	return s.ensureProfile(ctx, identity)
}

func (s *UserService) UpdateProfile(ctx context.Context, identity *auth.Identity, req UpdateProfileRequest) (*model.UserProfile, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if _, err := s.ensureProfile(ctx, identity); err != nil {
		return nil, err
	}
	err := s.users.UpdateProfile(ctx, identity.UserID, db.ProfileUpdate{
		FullName:  req.FullName,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return nil, mapRepoErr(err, "profile")
	}
	return s.ensureProfile(ctx, identity)
}

func (s *UserService) ListAddresses(ctx context.Context, identity *auth.Identity) ([]model.Address, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	addresses, err := s.users.ListAddresses(ctx, identity.UserID)
	if err != nil {
		return nil, apperr.Internalf(err, "list addresses")
	}
	return nonNil(addresses), nil
}

// CreateAddress 設為預設時同一交易內取消其他重疊類型的預設
func (s *UserService) CreateAddress(ctx context.Context, identity *auth.Identity, req AddressRequest) (*model.Address, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := s.ensureProfile(ctx, identity); err != nil {
		return nil, err
	}

	address := &model.Address{UserID: identity.UserID}
	req.apply(address)

	err := s.users.ExecTx(ctx, func(repo db.IUserRepository) error {
		if err := repo.CreateAddress(ctx, address); err != nil {
			return err
		}
		if address.IsDefault {
			return repo.ClearDefaultAddresses(ctx, identity.UserID, address.Type.OverlappingTypes(), address.ID)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internalf(err, "create address")
	}
	return address, nil
}

func (s *UserService) UpdateAddress(ctx context.Context, identity *auth.Identity, id uuid.UUID, req AddressRequest) (*model.Address, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	var address *model.Address
	err := s.users.ExecTx(ctx, func(repo db.IUserRepository) error {
		existing, err := repo.GetAddress(ctx, id)
		if err != nil {
			return err
		}
		if !auth.BelongsTo(identity, existing.UserID) {
			return db.ErrNotFound
		}
		req.apply(existing)
		if err := repo.UpdateAddress(ctx, existing); err != nil {
			return err
		}
		if existing.IsDefault {
			if err := repo.ClearDefaultAddresses(ctx, identity.UserID, existing.Type.OverlappingTypes(), existing.ID); err != nil {
				return err
			}
		}
		address = existing
		return nil
	})
	if err != nil {
		return nil, mapRepoErr(err, "address")
	}
	return address, nil
}

func (s *UserService) DeleteAddress(ctx context.Context, identity *auth.Identity, id uuid.UUID) error {
	if err := requireIdentity(identity); err != nil {
		return err
	}
	if err := s.users.DeleteAddress(ctx, identity.UserID, id); err != nil {
		return mapRepoErr(err, "address")
	}
	return nil
}

var _ IUserService = (*UserService)(nil)
