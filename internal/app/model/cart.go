package model

import "time"

// Cart belongs to exactly one of a user or an anonymous session.
type Cart struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	SessionID *string   `gorm:"size:64;index" json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Cart) TableName() string {
	return "carts"
}

type CartItem struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	CartID          uint      `gorm:"not null;index" json:"cart_id"`
	ProductID       uint      `gorm:"not null;index" json:"product_id"`
	VariantID       *uint     `gorm:"index" json:"variant_id,omitempty"`
	Quantity        int       `gorm:"not null;default:1" json:"quantity"`
	PriceAtAddition Money     `gorm:"type:decimal(10,2);not null" json:"price_at_addition"` // base product price when last added
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Product *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Variant *ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// SameLine reports whether the item is for the given product and variant.
func (i *CartItem) SameLine(productID uint, variantID *uint) bool {
	if i.ProductID != productID {
		return false
	}
	if i.VariantID == nil || variantID == nil {
		return i.VariantID == nil && variantID == nil
	}
	return *i.VariantID == *variantID
}
