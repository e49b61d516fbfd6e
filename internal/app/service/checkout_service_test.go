package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/pkg/payment/stripe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	requests []stripe.CheckoutSessionRequest
	err      error
	client   *stripe.Client
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req stripe.CheckoutSessionRequest) (*stripe.CheckoutSession, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &stripe.CheckoutSession{
		ID:  "cs_test_" + req.OrderNumber,
		URL: "https://checkout.stripe.com/c/pay/cs_test_" + req.OrderNumber,
	}, nil
}

func (g *fakeGateway) ParseWebhook(signature string, body []byte, now time.Time) (*stripe.WebhookEvent, error) {
	return g.client.ParseWebhook(signature, body, now)
}

const checkoutWebhookSecret = "whsec_checkout"

func setupCheckoutTest(t *testing.T) (CheckoutService, *testRepos, *fakeGateway, OrderService) {
	t.Helper()
	repos := setupServiceTest(t)
	client, err := stripe.NewClient(stripe.Config{
		SecretKey:     "sk_test",
		WebhookSecret: checkoutWebhookSecret,
		SuccessURL:    "https://shop.example.com/success",
		CancelURL:     "https://shop.example.com/cart",
	})
	require.NoError(t, err)

	gateway := &fakeGateway{client: client}
	orders := repos.orderService()
	return NewCheckoutService(repos.products, orders, gateway), repos, gateway, orders
}

func TestCheckoutService_CreateSession(t *testing.T) {
	svc, repos, gateway, orders := setupCheckoutTest(t)
	ctx := context.Background()

	user := createUser(t, repos.db, "checkout@example.com")
	screen := createProduct(t, repos.db, "SCR", "50.00", 5)
	require.NoError(t, repos.db.Model(screen).Update("discount_percentage", 10).Error)
	cable := createProduct(t, repos.db, "CBL", "5.00", 5)
	red := createVariant(t, repos.db, cable.ID, "Red", "1.50", 5)

	result, err := svc.CreateSession(ctx, CheckoutInput{
		UserID: user.ID,
		Email:  user.Email,
		Items: []CheckoutItemInput{
			{ProductID: screen.ID, Quantity: 1},
			{ProductID: cable.ID, VariantID: &red.ID, Quantity: 2},
		},
		SuccessURL: "https://shop.example.com/thanks",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_"+result.OrderNumber, result.SessionID)
	assert.NotEmpty(t, result.URL)
	assert.Equal(t, "58.00", result.Total.String())

	require.Len(t, gateway.requests, 1)
	req := gateway.requests[0]
	assert.Equal(t, "https://shop.example.com/thanks", req.SuccessURL)
	require.Len(t, req.Items, 2)
	assert.Equal(t, "45.00", req.Items[0].UnitAmount.StringFixed(2))
	assert.Equal(t, "Product CBL (Red)", req.Items[1].Name)
	assert.Equal(t, "6.50", req.Items[1].UnitAmount.StringFixed(2))
	assert.Equal(t, 2, req.Items[1].Quantity)

	order, err := orders.GetOrderByID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, result.SessionID, order.PaymentReference)
	assert.Equal(t, "stripe", order.PaymentMethod)
	assert.Equal(t, 4, stockOf(t, repos.db, screen.ID))
}

func TestCheckoutService_CreateSession_Validation(t *testing.T) {
	svc, repos, gateway, _ := setupCheckoutTest(t)
	ctx := context.Background()

	product := createProduct(t, repos.db, "P", "10.00", 2)
	variant := createVariant(t, repos.db, product.ID, "Mini", "0.00", 1)

	tests := []struct {
		name    string
		items   []CheckoutItemInput
		wantErr error
	}{
		{"empty", nil, ErrEmptyOrder},
		{"zero quantity", []CheckoutItemInput{{ProductID: product.ID, Quantity: 0}}, ErrInvalidQuantity},
		{"unknown product", []CheckoutItemInput{{ProductID: 999, Quantity: 1}}, ErrProductNotFound},
		{"unknown variant", []CheckoutItemInput{{ProductID: product.ID, VariantID: uintPtr(999), Quantity: 1}}, ErrVariantNotFound},
		{"product stock", []CheckoutItemInput{{ProductID: product.ID, Quantity: 3}}, ErrInsufficientStock},
		{"variant stock", []CheckoutItemInput{{ProductID: product.ID, VariantID: &variant.ID, Quantity: 2}}, ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSession(ctx, CheckoutInput{UserID: 1, Items: tt.items})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, gateway.requests)
	assert.Zero(t, countRows(t, repos, &model.Order{}))
}

func TestCheckoutService_CreateSession_ProviderFailureReleasesStock(t *testing.T) {
	svc, repos, gateway, orders := setupCheckoutTest(t)
	ctx := context.Background()

	user := createUser(t, repos.db, "fail@example.com")
	product := createProduct(t, repos.db, "P", "10.00", 4)
	gateway.err = errors.New("connection reset")

	_, err := svc.CreateSession(ctx, CheckoutInput{
		UserID: user.ID,
		Items:  []CheckoutItemInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.ErrorIs(t, err, ErrPaymentProvider)
	assert.Equal(t, 4, stockOf(t, repos.db, product.ID))

	list, err := orders.ListUserOrders(ctx, user.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, model.OrderStatusCancelled, list.Orders[0].Status)
}

func TestCheckoutService_WithoutGateway(t *testing.T) {
	repos := setupServiceTest(t)
	svc := NewCheckoutService(repos.products, repos.orderService(), nil)

	_, err := svc.CreateSession(context.Background(), CheckoutInput{UserID: 1})
	assert.ErrorIs(t, err, ErrPaymentUnavailable)
	_, err = svc.HandleWebhook(context.Background(), "", []byte("{}"))
	assert.ErrorIs(t, err, ErrPaymentUnavailable)
}

func signedEvent(t *testing.T, eventType, orderNumber string) (string, []byte) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":   "evt_" + eventType,
		"type": eventType,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object":         "checkout.session",
				"id":             "cs_test_" + orderNumber,
				"payment_status": "paid",
				"currency":       "usd",
				"amount_total":   1000,
				"metadata":       map[string]string{stripe.MetadataOrderNumber: orderNumber},
			},
		},
	})
	require.NoError(t, err)
	return stripe.SignPayload(checkoutWebhookSecret, body, time.Now()), body
}

func TestCheckoutService_HandleWebhook_Paid(t *testing.T) {
	svc, repos, _, orders := setupCheckoutTest(t)
	ctx := context.Background()

	user := createUser(t, repos.db, "hook@example.com")
	product := createProduct(t, repos.db, "P", "10.00", 4)
	result, err := svc.CreateSession(ctx, CheckoutInput{
		UserID: user.ID,
		Items:  []CheckoutItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	sig, body := signedEvent(t, stripe.EventCheckoutCompleted, result.OrderNumber)
	event, err := svc.HandleWebhook(ctx, sig, body)
	require.NoError(t, err)
	assert.Equal(t, stripe.OutcomePaid, event.Outcome)

	order, err := orders.GetOrderByID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, order.PaymentStatus)

	// Redelivery and late expiry are acknowledged without changes.
	_, err = svc.HandleWebhook(ctx, sig, body)
	require.NoError(t, err)
	sig, body = signedEvent(t, stripe.EventCheckoutExpired, result.OrderNumber)
	_, err = svc.HandleWebhook(ctx, sig, body)
	require.NoError(t, err)

	order, err = orders.GetOrderByID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, model.OrderStatusPending, order.Status)
}

func TestCheckoutService_HandleWebhook_ExpiredCancelsOrder(t *testing.T) {
	svc, repos, _, orders := setupCheckoutTest(t)
	ctx := context.Background()

	user := createUser(t, repos.db, "expired@example.com")
	product := createProduct(t, repos.db, "P", "10.00", 4)
	result, err := svc.CreateSession(ctx, CheckoutInput{
		UserID: user.ID,
		Items:  []CheckoutItemInput{{ProductID: product.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stockOf(t, repos.db, product.ID))

	sig, body := signedEvent(t, stripe.EventCheckoutExpired, result.OrderNumber)
	_, err = svc.HandleWebhook(ctx, sig, body)
	require.NoError(t, err)

	order, err := orders.GetOrderByID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, order.PaymentStatus)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)
	assert.Equal(t, 4, stockOf(t, repos.db, product.ID))
}

func signedIntentFailure(t *testing.T, orderNumber string) (string, []byte) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":   "evt_pi_failed",
		"type": stripe.EventPaymentIntentFailed,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object":   "payment_intent",
				"id":       "pi_declined",
				"currency": "usd",
				"amount":   1000,
				"metadata": map[string]string{stripe.MetadataOrderNumber: orderNumber},
			},
		},
	})
	require.NoError(t, err)
	return stripe.SignPayload(checkoutWebhookSecret, body, time.Now()), body
}

func TestCheckoutService_HandleWebhook_DeclineThenSuccess(t *testing.T) {
	svc, repos, _, orders := setupCheckoutTest(t)
	ctx := context.Background()

	user := createUser(t, repos.db, "retry@example.com")
	product := createProduct(t, repos.db, "P", "10.00", 5)
	result, err := svc.CreateSession(ctx, CheckoutInput{
		UserID: user.ID,
		Items:  []CheckoutItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	sig, body := signedIntentFailure(t, result.OrderNumber)
	event, err := svc.HandleWebhook(ctx, sig, body)
	require.NoError(t, err)
	assert.Equal(t, stripe.OutcomePending, event.Outcome)

	order, err := orders.GetOrderByID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, 4, stockOf(t, repos.db, product.ID))

	sig, body = signedEvent(t, stripe.EventCheckoutCompleted, result.OrderNumber)
	_, err = svc.HandleWebhook(ctx, sig, body)
	require.NoError(t, err)

	order, err = orders.GetOrderByID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, 4, stockOf(t, repos.db, product.ID))
}

func TestCheckoutService_HandleWebhook_Rejections(t *testing.T) {
	svc, _, _, _ := setupCheckoutTest(t)
	ctx := context.Background()

	_, body := signedEvent(t, stripe.EventCheckoutCompleted, "NTH-1")
	_, err := svc.HandleWebhook(ctx, "t=1,v1=deadbeef", body)
	assert.ErrorIs(t, err, stripe.ErrSignatureInvalid)

	// Unknown orders are acknowledged so the provider stops retrying.
	sig, body := signedEvent(t, stripe.EventCheckoutCompleted, "NTH-UNKNOWN")
	event, err := svc.HandleWebhook(ctx, sig, body)
	require.NoError(t, err)
	assert.Equal(t, "NTH-UNKNOWN", event.OrderNumber)
}
