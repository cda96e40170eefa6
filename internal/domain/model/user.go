package model

import (
	"github.com/google/uuid"
)

// UserProfile ID 與身分提供者的 subject 相同
type UserProfile struct {
	BaseModel
	Email     string `gorm:"type:varchar(255)" json:"email"`
	FullName  string `gorm:"type:varchar(255)" json:"full_name"`
	Phone     string `gorm:"type:varchar(32)" json:"phone"`
	AvatarURL string `gorm:"type:varchar(512)" json:"avatar_url,omitempty"`
}

type AddressType string

const (
	AddressTypeShipping AddressType = "shipping"
	AddressTypeBilling  AddressType = "billing"
	AddressTypeBoth     AddressType = "both"
)

func (t AddressType) IsValid() bool {
	return t == AddressTypeShipping || t == AddressTypeBilling || t == AddressTypeBoth
}

// Overlaps 兩種地址類型是否會互相影響 default 設定
func (t AddressType) Overlaps(other AddressType) bool {
	return t == other || t == AddressTypeBoth || other == AddressTypeBoth
}

// OverlappingTypes 與 t 共用 default 的地址類型
func (t AddressType) OverlappingTypes() []AddressType {
	if t == AddressTypeBoth {
		return []AddressType{AddressTypeShipping, AddressTypeBilling, AddressTypeBoth}
	}
	return []AddressType{t, AddressTypeBoth}
}

type Address struct {
	BaseModel
	UserID       uuid.UUID   `gorm:"not null;index;type:varchar(36)" json:"user_id"`
	Type         AddressType `gorm:"not null;type:varchar(10)" json:"type"`
	IsDefault    bool        `gorm:"not null;default:false" json:"is_default"`
	FullName     string      `gorm:"not null;type:varchar(255)" json:"full_name"`
	Phone        string      `gorm:"type:varchar(32)" json:"phone"`
	AddressLine1 string      `gorm:"column:address_line1;not null;type:varchar(255)" json:"address_line1"`
	AddressLine2 string      `gorm:"column:address_line2;type:varchar(255)" json:"address_line2,omitempty"`
	City         string      `gorm:"not null;type:varchar(100)" json:"city"`
	State        string      `gorm:"type:varchar(100)" json:"state"`
	PostalCode   string      `gorm:"not null;type:varchar(20)" json:"postal_code"`
	Country      string      `gorm:"not null;type:varchar(100)" json:"country"`
}

func (Address) TableName() string {
	return "user_addresses"
}

func (a *Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		FullName:     a.FullName,
		Phone:        a.Phone,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
	}
}
