package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	CategoryID         *uint          `gorm:"index" json:"category_id,omitempty"`
	Name               string         `gorm:"not null" json:"name"`
	Slug               string         `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	SKU                string         `gorm:"column:sku;size:80;uniqueIndex;not null" json:"sku"`
	Description        string         `gorm:"type:text" json:"description"`
	Brand              string         `gorm:"size:80" json:"brand"`   // device manufacturer, e.g. Apple
	Price              Money          `gorm:"type:decimal(10,2);not null" json:"price"`
	DiscountPercentage int            `gorm:"default:0" json:"discount_percentage"` // 0..100
	StockQuantity      int            `gorm:"default:0" json:"stock_quantity"`
	ImageURL           string         `json:"image_url"`
	IsFeatured         bool           `gorm:"default:false" json:"is_featured"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	Category *Category       `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"category,omitempty"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variants,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// SalePrice is the catalog price after the product discount.
func (p *Product) SalePrice() Money {
	return p.Price.ApplyDiscount(p.DiscountPercentage)
}

type ProductVariant struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	ProductID       uint      `gorm:"not null;index" json:"product_id"`
	Name            string    `gorm:"size:120;not null" json:"name"` // e.g. "Black", "OEM grade"
	SKU             string    `gorm:"column:sku;size:80" json:"sku"`
	PriceAdjustment Money     `gorm:"type:decimal(10,2);not null;default:0" json:"price_adjustment"`
	StockQuantity   int       `gorm:"default:0" json:"stock_quantity"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}
