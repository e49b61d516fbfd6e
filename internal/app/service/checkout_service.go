package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/repository"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"github.com/mdtstech/nexus-techhub-backend/pkg/payment/stripe"
	"gorm.io/gorm"
)

var (
	ErrPaymentUnavailable = errors.New("payment provider is not configured")
	ErrPaymentProvider    = errors.New("payment provider error")
)

const paymentMethodStripe = "stripe"

// PaymentGateway is the hosted checkout provider.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutSessionRequest) (*stripe.CheckoutSession, error)
	ParseWebhook(signature string, body []byte, now time.Time) (*stripe.WebhookEvent, error)
}

type CheckoutItemInput struct {
	ProductID uint  `json:"product_id" binding:"required"`
	VariantID *uint `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

type CheckoutInput struct {
	UserID     uint
	Email      string
	Items      []CheckoutItemInput `json:"items"`
	SuccessURL string              `json:"successUrl"`
	CancelURL  string              `json:"cancelUrl"`
}

type CheckoutSessionResult struct {
	SessionID   string      `json:"sessionId"`
	URL         string      `json:"url"`
	OrderID     uint        `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	Total       model.Money `json:"total"`
}

type CheckoutService interface {
	CreateSession(ctx context.Context, input CheckoutInput) (*CheckoutSessionResult, error)
	// HandleWebhook applies a signed provider event to its order. Events that
	// do not concern an order are acknowledged and ignored.
	HandleWebhook(ctx context.Context, signature string, body []byte) (*stripe.WebhookEvent, error)
}

type checkoutService struct {
	productRepo repository.ProductRepository
	orders      OrderService
	gateway     PaymentGateway
	now         func() time.Time
}

// NewCheckoutService wires checkout. gateway may be nil when payments are not
// configured; every call then fails with ErrPaymentUnavailable.
func NewCheckoutService(productRepo repository.ProductRepository, orders OrderService, gateway PaymentGateway) CheckoutService {
	return &checkoutService{
		productRepo: productRepo,
		orders:      orders,
		gateway:     gateway,
		now:         time.Now,
	}
}

// CreateSession validates the lines, places a pending order that holds the
// stock, then opens a hosted checkout for it. If the provider call fails the
// order is cancelled again so the stock is released.
func (s *checkoutService) CreateSession(ctx context.Context, input CheckoutInput) (*CheckoutSessionResult, error) {
	logger.Info("Creating checkout session", map[string]interface{}{
		"user_id": input.UserID,
		"lines":   len(input.Items),
	})

	if s.gateway == nil {
		return nil, ErrPaymentUnavailable
	}

	lineItems, err := s.priceLines(ctx, input.Items)
	if err != nil {
		logger.Warn("Checkout rejected", map[string]interface{}{
			"user_id": input.UserID,
			"reason":  err.Error(),
		})
		return nil, err
	}

	lines := make([]OrderLineInput, 0, len(input.Items))
	for _, item := range input.Items {
		lines = append(lines, OrderLineInput{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	userID := input.UserID
	order, err := s.orders.CreateOrder(ctx, CreateOrderInput{
		UserID:        &userID,
		Items:         lines,
		PaymentMethod: paymentMethodStripe,
	})
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, stripe.CheckoutSessionRequest{
		OrderNumber:   order.OrderNumber,
		CustomerEmail: input.Email,
		Items:         lineItems,
		SuccessURL:    input.SuccessURL,
		CancelURL:     input.CancelURL,
	})
	if err != nil {
		logger.Error("Failed to create checkout session", err, map[string]interface{}{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
		})
		if _, cancelErr := s.orders.CancelOrder(ctx, order.ID, "checkout session could not be created"); cancelErr != nil {
			logger.Error("Failed to release stock for abandoned checkout", cancelErr, map[string]interface{}{
				"order_id": order.ID,
			})
		}
		if errors.Is(err, stripe.ErrInvalidRequest) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOrderInput, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	if _, err := s.orders.RecordPayment(ctx, order.OrderNumber, model.PaymentStatusPending, session.ID); err != nil {
		return nil, err
	}

	logger.Info("Checkout session ready", map[string]interface{}{
		"order_id":   order.ID,
		"session_id": session.ID,
		"total":      order.TotalAmount.String(),
	})
	return &CheckoutSessionResult{
		SessionID:   session.ID,
		URL:         session.URL,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Total:       order.TotalAmount,
	}, nil
}

// priceLines checks each requested line against the catalog and returns the
// provider line items at the current sale price.
func (s *checkoutService) priceLines(ctx context.Context, items []CheckoutItemInput) ([]stripe.LineItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	lineItems := make([]stripe.LineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}

		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
		if product.StockQuantity < item.Quantity {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, product.Name)
		}

		name := product.Name
		price := product.SalePrice()
		if item.VariantID != nil {
			variant, err := s.productRepo.FindVariant(ctx, product.ID, *item.VariantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrVariantNotFound
				}
				return nil, err
			}
			if variant.StockQuantity < item.Quantity {
				return nil, fmt.Errorf("%w: %s (%s)", ErrInsufficientStock, product.Name, variant.Name)
			}
			name = fmt.Sprintf("%s (%s)", product.Name, variant.Name)
			price = price.Add(variant.PriceAdjustment)
		}

		lineItems = append(lineItems, stripe.LineItem{
			Name:       name,
			UnitAmount: price.Decimal,
			Quantity:   item.Quantity,
		})
	}
	return lineItems, nil
}

func (s *checkoutService) HandleWebhook(ctx context.Context, signature string, body []byte) (*stripe.WebhookEvent, error) {
	if s.gateway == nil {
		return nil, ErrPaymentUnavailable
	}

	event, err := s.gateway.ParseWebhook(signature, body, s.now())
	if err != nil {
		logger.Warn("Rejected payment webhook", map[string]interface{}{
			"reason": err.Error(),
		})
		return nil, err
	}

	fields := map[string]interface{}{
		"event_id":     event.ID,
		"event_type":   event.Type,
		"order_number": event.OrderNumber,
		"outcome":      event.Outcome,
	}

	var status model.PaymentStatus
	switch event.Outcome {
	case stripe.OutcomePaid:
		status = model.PaymentStatusPaid
	case stripe.OutcomeFailed:
		status = model.PaymentStatusFailed
	default:
		logger.Debug("Ignoring payment webhook", fields)
		return event, nil
	}
	if event.OrderNumber == "" {
		logger.Warn("Payment webhook without order number", fields)
		return event, nil
	}

	order, err := s.orders.RecordPayment(ctx, event.OrderNumber, status, event.Reference())
	if err != nil {
		// Redelivered or out-of-order events must not make the provider retry forever.
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrInvalidStatusTransition) {
			fields["reason"] = err.Error()
			logger.Warn("Payment webhook not applied", fields)
			return event, nil
		}
		logger.Error("Failed to apply payment webhook", err, fields)
		return nil, err
	}

	if status == model.PaymentStatusFailed && order.Status == model.OrderStatusPending {
		if _, err := s.orders.CancelOrder(ctx, order.ID, "payment "+event.Type); err != nil {
			logger.Error("Failed to cancel unpaid order", err, fields)
			return nil, err
		}
	}

	logger.Info("Payment webhook applied", fields)
	return event, nil
}
