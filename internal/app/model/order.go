package model

import "time"

type OrderStatus string
type PaymentStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"

	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var (
	OrderStatuses   = []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled}
	PaymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded}
)

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further status change is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s PaymentStatus) Valid() bool {
	for _, v := range PaymentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type Order struct {
	ID                uint          `gorm:"primarykey" json:"id"`
	UserID            *uint         `gorm:"index" json:"user_id,omitempty"` // nil for guest checkout
	OrderNumber       string        `gorm:"size:40;uniqueIndex;not null" json:"order_number"`
	Status            OrderStatus   `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	TotalAmount       Money         `gorm:"type:decimal(12,2);not null" json:"total_amount"` // items + shipping
	ShippingAddressID *uint         `json:"shipping_address_id,omitempty"`
	BillingAddressID  *uint         `json:"billing_address_id,omitempty"`
	ShippingMethod    string        `gorm:"size:50" json:"shipping_method"`
	ShippingCost      Money         `gorm:"type:decimal(10,2);not null;default:0" json:"shipping_cost"`
	PaymentMethod     string        `gorm:"size:50" json:"payment_method"`
	PaymentStatus     PaymentStatus `gorm:"type:varchar(20);default:'pending';index" json:"payment_status"`
	PaymentReference  string        `gorm:"size:255;index" json:"payment_reference,omitempty"` // Stripe checkout session id
	Notes             string        `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`

	User            *User        `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	Items           []OrderItem  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	ShippingAddress *UserAddress `gorm:"foreignKey:ShippingAddressID;constraint:OnDelete:SET NULL" json:"shipping_address,omitempty"`
	BillingAddress  *UserAddress `gorm:"foreignKey:BillingAddressID;constraint:OnDelete:SET NULL" json:"billing_address,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is an immutable snapshot of a purchased line.
type OrderItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	VariantID   *uint     `gorm:"index" json:"variant_id,omitempty"`
	ProductName string    `gorm:"not null" json:"product_name"`
	VariantName string    `json:"variant_name,omitempty"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	Price       Money     `gorm:"type:decimal(10,2);not null" json:"price"`
	TotalPrice  Money     `gorm:"type:decimal(12,2);not null" json:"total_price"` // price × quantity
	CreatedAt   time.Time `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// OrderStatistics is an aggregate over all orders.
type OrderStatistics struct {
	TotalOrders     int64            `json:"total_orders"`
	TotalRevenue    Money            `json:"total_revenue"` // paid orders only
	ByStatus        map[string]int64 `json:"by_status"`
	ByPaymentStatus map[string]int64 `json:"by_payment_status"`
}
