package memdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/google/uuid"
)

// Users 記憶體版 users store
type Users struct {
	txMu      sync.Mutex
	mu        sync.Mutex
	profiles  map[uuid.UUID]model.UserProfile
	addresses map[uuid.UUID]model.Address
	clock     time.Time
}

func NewUsers() *Users {
	return &Users{
		profiles:  map[uuid.UUID]model.UserProfile{},
		addresses: map[uuid.UUID]model.Address{},
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (u *Users) tick() time.Time {
	u.clock = u.clock.Add(time.Second)
	return u.clock
}

func (u *Users) ExecTx(ctx context.Context, fn func(db.IUserRepository) error) error {
	u.txMu.Lock()
	defer u.txMu.Unlock()

	u.mu.Lock()
	addresses := make(map[uuid.UUID]model.Address, len(u.addresses))
	for k, v := range u.addresses {
		addresses[k] = v
	}
	profiles := make(map[uuid.UUID]model.UserProfile, len(u.profiles))
	for k, v := range u.profiles {
		profiles[k] = v
	}
	u.mu.Unlock()

	if err := fn(&usersTx{Users: u}); err != nil {
		u.mu.Lock()
		u.addresses, u.profiles = addresses, profiles
		u.mu.Unlock()
		return err
	}
	return nil
}

type usersTx struct {
	*Users
}

func (t *usersTx) ExecTx(ctx context.Context, fn func(db.IUserRepository) error) error {
	return fn(t)
}

func (u *Users) GetProfile(ctx context.Context, id uuid.UUID) (*model.UserProfile, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.profiles[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

func (u *Users) CreateProfileIfNotExists(ctx context.Context, profile *model.UserProfile) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.profiles[profile.ID]; ok {
		return nil
	}
	now := u.tick()
	profile.CreatedAt, profile.UpdatedAt = now, now
	u.profiles[profile.ID] = *profile
	return nil
}

func (u *Users) UpdateProfile(ctx context.Context, id uuid.UUID, update db.ProfileUpdate) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.profiles[id]
	if !ok {
		return db.ErrNotFound
	}
	if update.FullName != nil {
		p.FullName = *update.FullName
	}
	if update.Phone != nil {
		p.Phone = *update.Phone
	}
	if update.AvatarURL != nil {
		p.AvatarURL = *update.AvatarURL
	}
	p.UpdatedAt = u.tick()
	u.profiles[id] = p
	return nil
}

func (u *Users) ListAddresses(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]model.Address, 0)
	for _, a := range u.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (u *Users) GetAddress(ctx context.Context, id uuid.UUID) (*model.Address, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	a, ok := u.addresses[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &a, nil
}

func (u *Users) CreateAddress(ctx context.Context, address *model.Address) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.profiles[address.UserID]; !ok {
		return db.ErrNotFound
	}
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}
	now := u.tick()
	address.CreatedAt, address.UpdatedAt = now, now
	u.addresses[address.ID] = *address
	return nil
}

func (u *Users) UpdateAddress(ctx context.Context, address *model.Address) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	existing, ok := u.addresses[address.ID]
	if !ok || existing.UserID != address.UserID {
		return db.ErrNotFound
	}
	address.CreatedAt = existing.CreatedAt
	address.UpdatedAt = u.tick()
	u.addresses[address.ID] = *address
	return nil
}

func (u *Users) DeleteAddress(ctx context.Context, userID, id uuid.UUID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	existing, ok := u.addresses[id]
	if !ok || existing.UserID != userID {
		return db.ErrNotFound
	}
	delete(u.addresses, id)
	return nil
}

func (u *Users) ClearDefaultAddresses(ctx context.Context, userID uuid.UUID, types []model.AddressType, except uuid.UUID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for id, a := range u.addresses {
		if a.UserID != userID || id == except || !a.IsDefault {
			continue
		}
		for _, t := range types {
			if a.Type == t {
				a.IsDefault = false
				u.addresses[id] = a
				break
			}
		}
	}
	return nil
}

var _ db.IUserRepository = (*Users)(nil)
