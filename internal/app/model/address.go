package model

import "time"

type AddressType string

const (
	AddressTypeShipping AddressType = "shipping"
	AddressTypeBilling  AddressType = "billing"
	AddressTypeBoth     AddressType = "both"
)

func (t AddressType) Valid() bool {
	switch t {
	case AddressTypeShipping, AddressTypeBilling, AddressTypeBoth:
		return true
	}
	return false
}

type UserAddress struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserID       uint        `gorm:"not null;index" json:"user_id"`
	AddressLine1 string      `gorm:"size:255;not null" json:"address_line1"`
	AddressLine2 string      `gorm:"size:255" json:"address_line2"`
	City         string      `gorm:"size:100;not null" json:"city"`
	State        string      `gorm:"size:100" json:"state"`
	PostalCode   string      `gorm:"size:20;not null" json:"postal_code"`
	Country      string      `gorm:"size:2;not null;default:'US'" json:"country"` // ISO 3166-1 alpha-2
	AddressType  AddressType `gorm:"type:varchar(20);default:'both'" json:"address_type"`
	IsDefault    bool        `gorm:"default:false" json:"is_default"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (UserAddress) TableName() string {
	return "user_addresses"
}
