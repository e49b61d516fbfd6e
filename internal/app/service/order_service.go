package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/repository"
	apperrors "github.com/mdtstech/nexus-techhub-backend/internal/errors"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"github.com/mdtstech/nexus-techhub-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyOrder           = errors.New("order has no items")
	ErrInvalidOrderInput    = errors.New("invalid order input")
	ErrInvalidOrderStatus   = errors.New("invalid order status")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
	ErrOrderNumberExhausted = errors.New("could not allocate a unique order number")
)

const (
	orderStatisticsKey = "orders:statistics"
	orderStatisticsTTL = time.Minute
	defaultNumberTries = 5
)

type OrderLineInput struct {
	ProductID uint  `json:"product_id" binding:"required"`
	VariantID *uint `json:"variant_id"`
	Quantity  int   `json:"quantity" binding:"required"`
}

// CreateOrderInput describes a new order. When Items is empty the lines are
// taken from CartID.
type CreateOrderInput struct {
	UserID            *uint
	Items             []OrderLineInput
	CartID            *uint
	ShippingAddressID *uint
	BillingAddressID  *uint
	ShippingMethod    string
	ShippingCost      model.Money
	PaymentMethod     string
	Notes             string
}

type OrderList struct {
	Orders []model.Order `json:"orders"`
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

// OrderNotifier is told about every status or payment change.
type OrderNotifier interface {
	NotifyOrderStatus(order *model.Order)
}

// StatisticsCache stores JSON snapshots. Implementations must treat a
// missing key as a miss, not an error.
type StatisticsCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*model.Order, error)
	GetOrderByID(ctx context.Context, id uint) (*model.Order, error)
	GetOrderByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	// GetOrderForUser hides orders of other users behind ErrOrderNotFound.
	GetOrderForUser(ctx context.Context, userID, id uint) (*model.Order, error)
	ListOrders(ctx context.Context, page, limit int) (*OrderList, error)
	ListUserOrders(ctx context.Context, userID uint, page, limit int) (*OrderList, error)
	ListRecentOrders(ctx context.Context, limit int) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uint, status model.OrderStatus, notes *string) (*model.Order, error)
	UpdatePaymentStatus(ctx context.Context, id uint, status model.PaymentStatus, paymentMethod *string) (*model.Order, error)
	RecordPayment(ctx context.Context, orderNumber string, status model.PaymentStatus, reference string) (*model.Order, error)
	CancelOrder(ctx context.Context, id uint, reason string) (*model.Order, error)
	GetOrderStatistics(ctx context.Context) (*model.OrderStatistics, error)
	ExportOrders(ctx context.Context, from, to time.Time) ([]byte, error)
}

type OrderServiceOption func(*orderService)

func WithOrderNotifier(n OrderNotifier) OrderServiceOption {
	return func(s *orderService) { s.notifier = n }
}

func WithStatisticsCache(c StatisticsCache) OrderServiceOption {
	return func(s *orderService) { s.cache = c }
}

func WithOrderNumberAttempts(n int) OrderServiceOption {
	return func(s *orderService) {
		if n > 0 {
			s.numberAttempts = n
		}
	}
}

// WithOrderNumberGenerator replaces the order number source.
func WithOrderNumberGenerator(gen func(time.Time) string) OrderServiceOption {
	return func(s *orderService) { s.newOrderNumber = gen }
}

type orderService struct {
	db             *gorm.DB
	orderRepo      repository.OrderRepository
	cartRepo       repository.CartRepository
	productRepo    repository.ProductRepository
	addressRepo    repository.AddressRepository
	notifier       OrderNotifier
	cache          StatisticsCache
	numberAttempts int
	newOrderNumber func(time.Time) string
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	addressRepo repository.AddressRepository,
	opts ...OrderServiceOption,
) OrderService {
	s := &orderService{
		db:             db,
		orderRepo:      orderRepo,
		cartRepo:       cartRepo,
		productRepo:    productRepo,
		addressRepo:    addressRepo,
		numberAttempts: defaultNumberTries,
		newOrderNumber: util.GenerateOrderNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder inserts the order with its line snapshots and takes the stock
// in one transaction. A clash on order_number retries with a fresh number.
func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*model.Order, error) {
	logger.Info("Creating order", map[string]interface{}{
		"user_id": input.UserID,
		"cart_id": input.CartID,
		"lines":   len(input.Items),
	})

	if input.ShippingCost.IsNegative() {
		return nil, ErrInvalidOrderInput
	}

	for attempt := 1; attempt <= s.numberAttempts; attempt++ {
		number := s.newOrderNumber(time.Now())

		var order *model.Order
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			order, err = s.createOrderTx(ctx, tx, number, input)
			return err
		})
		if err == nil {
			logger.Info("Order created", map[string]interface{}{
				"order_id":     order.ID,
				"order_number": order.OrderNumber,
				"total_amount": order.TotalAmount.String(),
			})
			s.invalidateStatistics(ctx)
			return s.GetOrderByID(ctx, order.ID)
		}

		if apperrors.IsUniqueViolation(err) {
			logger.Warn("Order number collision, retrying", map[string]interface{}{
				"order_number": number,
				"attempt":      attempt,
			})
			continue
		}

		if isOrderDomainError(err) {
			logger.Warn("Order rejected", map[string]interface{}{
				"user_id": input.UserID,
				"reason":  err.Error(),
			})
		} else {
			logger.Error("Failed to create order", err, map[string]interface{}{
				"user_id": input.UserID,
			})
		}
		return nil, err
	}

	logger.Error("Order number attempts exhausted", ErrOrderNumberExhausted, map[string]interface{}{
		"attempts": s.numberAttempts,
	})
	return nil, ErrOrderNumberExhausted
}

func (s *orderService) createOrderTx(ctx context.Context, tx *gorm.DB, number string, input CreateOrderInput) (*model.Order, error) {
	orders := s.orderRepo.WithTx(tx)
	carts := s.cartRepo.WithTx(tx)
	products := s.productRepo.WithTx(tx)
	addresses := s.addressRepo.WithTx(tx)

	lines := input.Items
	if len(lines) == 0 && input.CartID != nil {
		items, err := carts.FindItems(ctx, *input.CartID)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			lines = append(lines, OrderLineInput{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
			})
		}
	}
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	for _, addressID := range []*uint{input.ShippingAddressID, input.BillingAddressID} {
		if addressID == nil {
			continue
		}
		if input.UserID == nil {
			return nil, ErrAddressNotFound
		}
		if _, err := addresses.FindByUserAndID(ctx, *input.UserID, *addressID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAddressNotFound
			}
			return nil, err
		}
	}

	order := &model.Order{
		UserID:            input.UserID,
		OrderNumber:       number,
		Status:            model.OrderStatusPending,
		PaymentStatus:     model.PaymentStatusPending,
		ShippingAddressID: input.ShippingAddressID,
		BillingAddressID:  input.BillingAddressID,
		ShippingMethod:    input.ShippingMethod,
		ShippingCost:      model.NewMoney(input.ShippingCost.Decimal),
		PaymentMethod:     input.PaymentMethod,
		Notes:             input.Notes,
	}

	total := model.ZeroMoney()
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}

		product, err := products.FindByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}

		item := model.OrderItem{
			ProductID:   product.ID,
			VariantID:   line.VariantID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
		}
		price := product.SalePrice()
		if line.VariantID != nil {
			variant, err := products.FindVariant(ctx, product.ID, *line.VariantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrVariantNotFound
				}
				return nil, err
			}
			price = price.Add(variant.PriceAdjustment)
			item.VariantName = variant.Name
		}
		item.Price = price
		item.TotalPrice = price.Mul(line.Quantity)
		total = total.Add(item.TotalPrice)
		order.Items = append(order.Items, item)
	}
	order.TotalAmount = total.Add(order.ShippingCost)

	if err := orders.Create(ctx, order); err != nil {
		return nil, err
	}

	for _, line := range lines {
		ok, err := products.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Warn("Insufficient product stock", map[string]interface{}{
				"product_id": line.ProductID,
				"quantity":   line.Quantity,
			})
			return nil, ErrInsufficientStock
		}
		if line.VariantID != nil {
			ok, err := products.DecrementVariantStock(ctx, *line.VariantID, line.Quantity)
			if err != nil {
				return nil, err
			}
			if !ok {
				logger.Warn("Insufficient variant stock", map[string]interface{}{
					"variant_id": *line.VariantID,
					"quantity":   line.Quantity,
				})
				return nil, ErrInsufficientStock
			}
		}
	}

	if input.CartID != nil {
		if _, err := carts.DeleteItems(ctx, *input.CartID); err != nil {
			return nil, err
		}
		if err := carts.Touch(ctx, *input.CartID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return order, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, id uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		logger.Error("Failed to fetch order", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}
	return order, nil
}

func (s *orderService) GetOrderByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	order, err := s.orderRepo.FindByOrderNumber(ctx, strings.TrimSpace(orderNumber))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		logger.Error("Failed to fetch order by number", err, map[string]interface{}{
			"order_number": orderNumber,
		})
		return nil, err
	}
	return order, nil
}

func (s *orderService) GetOrderForUser(ctx context.Context, userID, id uint) (*model.Order, error) {
	order, err := s.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID == nil || *order.UserID != userID {
		logger.Warn("Order requested by non-owner", map[string]interface{}{
			"order_id": id,
			"user_id":  userID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, page, limit int) (*OrderList, error) {
	p := repository.Page{Page: page, Limit: limit}.Normalize()
	orders, total, err := s.orderRepo.List(ctx, p)
	if err != nil {
		return nil, err
	}
	return newOrderList(orders, total, p), nil
}

func (s *orderService) ListUserOrders(ctx context.Context, userID uint, page, limit int) (*OrderList, error) {
	p := repository.Page{Page: page, Limit: limit}.Normalize()
	orders, total, err := s.orderRepo.ListByUser(ctx, userID, p)
	if err != nil {
		logger.Error("Failed to list user orders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return newOrderList(orders, total, p), nil
}

func (s *orderService) ListRecentOrders(ctx context.Context, limit int) ([]model.Order, error) {
	orders, err := s.orderRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// UpdateOrderStatus moves the order along the fulfilment flow. Cancelling is
// only possible through CancelOrder so that stock is restored.
func (s *orderService) UpdateOrderStatus(ctx context.Context, id uint, status model.OrderStatus, notes *string) (*model.Order, error) {
	logger.Info("Updating order status", map[string]interface{}{
		"order_id": id,
		"status":   status,
	})

	if !status.Valid() {
		return nil, ErrInvalidOrderStatus
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orderRepo.WithTx(tx)
		order, err := orders.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if status == model.OrderStatusCancelled || !IsValidOrderTransition(order.Status, status) {
			return orderTransitionError(order.Status, status)
		}

		fields := map[string]interface{}{"status": status}
		if notes != nil {
			fields["notes"] = *notes
		}
		return orders.UpdateFields(ctx, id, fields)
	})
	if err != nil {
		s.logRejection("Cannot update order status", err, id)
		return nil, err
	}

	return s.afterChange(ctx, id)
}

func (s *orderService) UpdatePaymentStatus(ctx context.Context, id uint, status model.PaymentStatus, paymentMethod *string) (*model.Order, error) {
	logger.Info("Updating payment status", map[string]interface{}{
		"order_id":       id,
		"payment_status": status,
	})

	extra := map[string]interface{}{}
	if paymentMethod != nil {
		extra["payment_method"] = *paymentMethod
	}
	return s.applyPaymentStatus(ctx, id, status, extra)
}

// RecordPayment applies a payment outcome reported by the payment provider.
// The reference is stored only when the transition is accepted.
func (s *orderService) RecordPayment(ctx context.Context, orderNumber string, status model.PaymentStatus, reference string) (*model.Order, error) {
	order, err := s.GetOrderByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	extra := map[string]interface{}{}
	if reference != "" {
		extra["payment_reference"] = reference
	}
	return s.applyPaymentStatus(ctx, order.ID, status, extra)
}

func (s *orderService) applyPaymentStatus(ctx context.Context, id uint, status model.PaymentStatus, extra map[string]interface{}) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidPaymentStatus
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orderRepo.WithTx(tx)
		order, err := orders.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if !IsValidPaymentTransition(order.PaymentStatus, status) {
			return paymentTransitionError(order.PaymentStatus, status)
		}

		fields := map[string]interface{}{"payment_status": status}
		for k, v := range extra {
			fields[k] = v
		}
		return orders.UpdateFields(ctx, id, fields)
	})
	if err != nil {
		s.logRejection("Cannot update payment status", err, id)
		return nil, err
	}

	return s.afterChange(ctx, id)
}

// CancelOrder restores stock for every line and marks the order cancelled.
// payment_status is left as is; refunds are a separate step.
func (s *orderService) CancelOrder(ctx context.Context, id uint, reason string) (*model.Order, error) {
	logger.Info("Cancelling order", map[string]interface{}{
		"order_id": id,
		"reason":   reason,
	})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orderRepo.WithTx(tx)
		products := s.productRepo.WithTx(tx)

		order, err := orders.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.Status.Terminal() {
			return orderTransitionError(order.Status, model.OrderStatusCancelled)
		}

		for _, item := range order.Items {
			if err := products.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			if item.VariantID != nil {
				if err := products.RestoreVariantStock(ctx, *item.VariantID, item.Quantity); err != nil {
					return err
				}
			}
		}

		fields := map[string]interface{}{"status": model.OrderStatusCancelled}
		if reason = strings.TrimSpace(reason); reason != "" {
			note := "Cancellation reason: " + reason
			if order.Notes != "" {
				note = order.Notes + "\n" + note
			}
			fields["notes"] = note
		}
		return orders.UpdateFields(ctx, id, fields)
	})
	if err != nil {
		s.logRejection("Cannot cancel order", err, id)
		return nil, err
	}

	logger.Info("Order cancelled", map[string]interface{}{
		"order_id": id,
	})
	return s.afterChange(ctx, id)
}

func (s *orderService) GetOrderStatistics(ctx context.Context) (*model.OrderStatistics, error) {
	if s.cache != nil {
		var cached model.OrderStatistics
		hit, err := s.cache.GetJSON(ctx, orderStatisticsKey, &cached)
		if err != nil {
			logger.Warn("Order statistics cache read failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else if hit {
			return &cached, nil
		}
	}

	stats, err := s.orderRepo.GetStatistics(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, orderStatisticsKey, stats, orderStatisticsTTL); err != nil {
			logger.Warn("Order statistics cache write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return stats, nil
}

func (s *orderService) afterChange(ctx context.Context, id uint) (*model.Order, error) {
	s.invalidateStatistics(ctx)

	order, err := s.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifyOrderStatus(order)
	}
	return order, nil
}

func (s *orderService) invalidateStatistics(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, orderStatisticsKey); err != nil {
		logger.Warn("Failed to invalidate order statistics cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *orderService) logRejection(msg string, err error, orderID uint) {
	if isOrderDomainError(err) {
		logger.Warn(msg, map[string]interface{}{
			"order_id": orderID,
			"reason":   err.Error(),
		})
		return
	}
	logger.Error(msg, err, map[string]interface{}{
		"order_id": orderID,
	})
}

func newOrderList(orders []model.Order, total int64, page repository.Page) *OrderList {
	if orders == nil {
		orders = []model.Order{}
	}
	return &OrderList{
		Orders: orders,
		Total:  total,
		Page:   page.Page,
		Limit:  page.Limit,
	}
}

func isOrderDomainError(err error) bool {
	for _, target := range []error{
		ErrOrderNotFound,
		ErrEmptyOrder,
		ErrInvalidQuantity,
		ErrInvalidOrderInput,
		ErrProductNotFound,
		ErrVariantNotFound,
		ErrInsufficientStock,
		ErrAddressNotFound,
		ErrInvalidStatusTransition,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
