package repository

import (
	"context"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository

	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	// FindByIDForUpdate loads the order with its items and locks the row
	// until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Order, error)
	List(ctx context.Context, page Page) ([]model.Order, int64, error)
	ListByUser(ctx context.Context, userID uint, page Page) ([]model.Order, int64, error)
	ListRecent(ctx context.Context, limit int) ([]model.Order, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Order, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	CountByUser(ctx context.Context, userID uint) (int64, error)
	GetStatistics(ctx context.Context) (*model.OrderStatistics, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &orderRepository{db: tx}
}

func (r *orderRepository) preloadOrder(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id ASC")
		}).
		Preload("ShippingAddress").
		Preload("BillingAddress")
}

// Create inserts the order together with its items.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id":      order.UserID,
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount.String(),
	})

	err := r.db.WithContext(ctx).
		Omit("User", "ShippingAddress", "BillingAddress").
		Create(order).Error
	if err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id":      order.UserID,
			"order_number": order.OrderNumber,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"items":        len(order.Items),
	})
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := r.preloadOrder(ctx).First(&order, id).Error; err != nil {
		logger.Debug("Order not found by ID", map[string]interface{}{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	logger.Debug("Finding order by number in database", map[string]interface{}{
		"order_number": orderNumber,
	})

	var order model.Order
	err := r.preloadOrder(ctx).
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, id).Error
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("id ASC").
		Find(&order.Items).Error; err != nil {
		logger.Error("Failed to load order items", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, page Page) ([]model.Order, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&model.Order{}), page)
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uint, page Page) ([]model.Order, int64, error) {
	logger.Debug("Listing orders of user", map[string]interface{}{
		"user_id": userID,
		"page":    page.Page,
	})
	query := r.db.WithContext(ctx).Model(&model.Order{}).Where("user_id = ?", userID)
	return r.list(ctx, query, page)
}

func (r *orderRepository) list(ctx context.Context, query *gorm.DB, page Page) ([]model.Order, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count orders", err)
		return nil, 0, err
	}

	page = page.Normalize()
	var orders []model.Order
	err := query.
		Preload("Items").
		Order("created_at DESC").Order("id DESC").
		Limit(page.Limit).
		Offset(page.offset()).
		Find(&orders).Error
	if err != nil {
		logger.Error("Failed to list orders", err)
		return nil, 0, err
	}

	logger.Debug("Orders listed", map[string]interface{}{
		"count": len(orders),
		"total": total,
	})
	return orders, total, nil
}

func (r *orderRepository) ListRecent(ctx context.Context, limit int) ([]model.Order, error) {
	if limit < 1 || limit > maxPageSize {
		limit = 10
	}

	var orders []model.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		logger.Error("Failed to list recent orders", err, map[string]interface{}{
			"limit": limit,
		})
		return nil, err
	}
	return orders, nil
}

// ListBetween returns orders created in [from, to), oldest first.
func (r *orderRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").Order("id ASC").
		Find(&orders).Error
	if err != nil {
		logger.Error("Failed to list orders in range", err, map[string]interface{}{
			"from": from,
			"to":   to,
		})
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	logger.Debug("Updating order in database", map[string]interface{}{
		"order_id": id,
		"fields":   fields,
	})

	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		logger.Error("Failed to update order in database", result.Error, map[string]interface{}{
			"order_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *orderRepository) GetStatistics(ctx context.Context) (*model.OrderStatistics, error) {
	logger.Debug("Computing order statistics in database")

	stats := &model.OrderStatistics{
		TotalRevenue:    model.ZeroMoney(),
		ByStatus:        make(map[string]int64, len(model.OrderStatuses)),
		ByPaymentStatus: make(map[string]int64, len(model.PaymentStatuses)),
	}
	for _, s := range model.OrderStatuses {
		stats.ByStatus[string(s)] = 0
	}
	for _, s := range model.PaymentStatuses {
		stats.ByPaymentStatus[string(s)] = 0
	}

	base := r.db.WithContext(ctx).Model(&model.Order{})

	if err := base.Session(&gorm.Session{}).Count(&stats.TotalOrders).Error; err != nil {
		logger.Error("Failed to count orders", err)
		return nil, err
	}

	var revenue struct {
		Revenue model.Money
	}
	if err := base.Session(&gorm.Session{}).
		Select("COALESCE(SUM(total_amount), 0) AS revenue").
		Where("payment_status = ?", model.PaymentStatusPaid).
		Scan(&revenue).Error; err != nil {
		logger.Error("Failed to sum order revenue", err)
		return nil, err
	}
	stats.TotalRevenue = revenue.Revenue

	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := base.Session(&gorm.Session{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		logger.Error("Failed to count orders by status", err)
		return nil, err
	}
	for _, sc := range statusCounts {
		stats.ByStatus[sc.Status] = sc.Count
	}

	var paymentCounts []struct {
		PaymentStatus string
		Count         int64
	}
	if err := base.Session(&gorm.Session{}).
		Select("payment_status, COUNT(*) AS count").
		Group("payment_status").
		Scan(&paymentCounts).Error; err != nil {
		logger.Error("Failed to count orders by payment status", err)
		return nil, err
	}
	for _, pc := range paymentCounts {
		stats.ByPaymentStatus[pc.PaymentStatus] = pc.Count
	}

	logger.Debug("Order statistics computed", map[string]interface{}{
		"total_orders":  stats.TotalOrders,
		"total_revenue": stats.TotalRevenue.String(),
	})
	return stats, nil
}
