package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	orders []model.Order
}

func (n *recordingNotifier) NotifyOrderStatus(order *model.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, *order)
}

type memoryCache struct {
	data    map[string][]byte
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
	}
	c.deletes++
	return nil
}

func sequenceNumbers(numbers ...string) func(time.Time) string {
	i := 0
	return func(time.Time) string {
		n := numbers[i%len(numbers)]
		i++
		return n
	}
}

func countRows(t *testing.T, repos *testRepos, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, repos.db.Model(model).Count(&n).Error)
	return n
}

func TestOrderService_CreateOrder(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService()
	ctx := context.Background()

	user := createUser(t, repos.db, "buyer@example.com")
	screen := createProduct(t, repos.db, "SCREEN", "100.00", 10)
	require.NoError(t, repos.db.Model(screen).Update("discount_percentage", 10).Error)
	cable := createProduct(t, repos.db, "CABLE", "5.00", 10)
	black := createVariant(t, repos.db, cable.ID, "Black", "1.50", 4)

	order, err := svc.CreateOrder(ctx, CreateOrderInput{
		UserID: &user.ID,
		Items: []OrderLineInput{
			{ProductID: screen.ID, Quantity: 1},
			{ProductID: cable.ID, VariantID: &black.ID, Quantity: 2},
		},
		ShippingMethod: "standard",
		ShippingCost:   model.MustMoney("4.99"),
		PaymentMethod:  "card",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, order.OrderNumber)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.PaymentStatusPending, order.PaymentStatus)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "90.00", order.Items[0].Price.String())
	assert.Equal(t, "6.50", order.Items[1].Price.String())
	assert.Equal(t, "13.00", order.Items[1].TotalPrice.String())
	assert.Equal(t, "Black", order.Items[1].VariantName)
	assert.Equal(t, "107.99", order.TotalAmount.String())

	assert.Equal(t, 9, stockOf(t, repos.db, screen.ID))
	assert.Equal(t, 8, stockOf(t, repos.db, cable.ID))
	assert.Equal(t, 2, variantStockOf(t, repos.db, black.ID))
}

func TestOrderService_CreateOrder_FromCartClearsItems(t *testing.T) {
	repos := setupServiceTest(t)
	carts := repos.cartService()
	svc := repos.orderService()
	ctx := context.Background()

	user := createUser(t, repos.db, "cart-order@example.com")
	product := createProduct(t, repos.db, "P", "12.00", 5)
	cart, err := carts.CreateCart(ctx, CartOwner{UserID: user.ID})
	require.NoError(t, err)
	_, err = carts.AddItemToCart(ctx, cart.ID, product.ID, 2, nil)
	require.NoError(t, err)

	order, err := svc.CreateOrder(ctx, CreateOrderInput{UserID: &user.ID, CartID: &cart.ID})
	require.NoError(t, err)
	assert.Equal(t, "24.00", order.TotalAmount.String())

	view, err := carts.GetCart(ctx, CartOwner{UserID: user.ID})
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Empty(t, view.Items)
}

func TestOrderService_CreateOrder_Rejections(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService()
	ctx := context.Background()

	user := createUser(t, repos.db, "rej@example.com")
	other := createUser(t, repos.db, "other@example.com")
	product := createProduct(t, repos.db, "P", "1.00", 5)
	addr := &model.UserAddress{UserID: other.ID, AddressLine1: "1 Main", City: "Austin", PostalCode: "78701", Country: "US", AddressType: model.AddressTypeBoth}
	require.NoError(t, repos.db.Create(addr).Error)

	tests := []struct {
		name    string
		input   CreateOrderInput
		wantErr error
	}{
		{"no lines", CreateOrderInput{UserID: &user.ID}, ErrEmptyOrder},
		{"zero quantity", CreateOrderInput{UserID: &user.ID, Items: []OrderLineInput{{ProductID: product.ID}}}, ErrInvalidQuantity},
		{"unknown product", CreateOrderInput{UserID: &user.ID, Items: []OrderLineInput{{ProductID: 999, Quantity: 1}}}, ErrProductNotFound},
		{"negative shipping", CreateOrderInput{UserID: &user.ID, Items: []OrderLineInput{{ProductID: product.ID, Quantity: 1}}, ShippingCost: model.MustMoney("-1")}, ErrInvalidOrderInput},
		{"foreign address", CreateOrderInput{UserID: &user.ID, Items: []OrderLineInput{{ProductID: product.ID, Quantity: 1}}, ShippingAddressID: &addr.ID}, ErrAddressNotFound},
		{"insufficient stock", CreateOrderInput{UserID: &user.ID, Items: []OrderLineInput{{ProductID: product.ID, Quantity: 6}}}, ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Zero(t, countRows(t, repos, &model.Order{}))
	assert.Equal(t, 5, stockOf(t, repos.db, product.ID))
}

func TestOrderService_CreateOrder_RollsBackOnSecondLine(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService()
	ctx := context.Background()

	user := createUser(t, repos.db, "atomic@example.com")
	first := createProduct(t, repos.db, "FIRST", "10.00", 10)
	second := createProduct(t, repos.db, "SECOND", "10.00", 1)

	_, err := svc.CreateOrder(ctx, CreateOrderInput{
		UserID: &user.ID,
		Items: []OrderLineInput{
			{ProductID: first.ID, Quantity: 3},
			{ProductID: second.ID, Quantity: 2},
		},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	assert.Zero(t, countRows(t, repos, &model.Order{}))
	assert.Zero(t, countRows(t, repos, &model.OrderItem{}))
	assert.Equal(t, 10, stockOf(t, repos.db, first.ID))
	assert.Equal(t, 1, stockOf(t, repos.db, second.ID))
}

func TestOrderService_CreateOrder_VariantStockRollsBack(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService()
	ctx := context.Background()

	product := createProduct(t, repos.db, "V", "10.00", 10)
	variant := createVariant(t, repos.db, product.ID, "Silver", "0.00", 1)

	_, err := svc.CreateOrder(ctx, CreateOrderInput{
		Items: []OrderLineInput{{ProductID: product.ID, VariantID: &variant.ID, Quantity: 2}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 10, stockOf(t, repos.db, product.ID))
	assert.Equal(t, 1, variantStockOf(t, repos.db, variant.ID))
}

func TestOrderService_CreateOrder_RetriesOrderNumber(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService(WithOrderNumberGenerator(sequenceNumbers("NTH-DUP", "NTH-DUP", "NTH-FRESH")))
	ctx := context.Background()

	product := createProduct(t, repos.db, "P", "1.00", 10)
	line := []OrderLineInput{{ProductID: product.ID, Quantity: 1}}

	first, err := svc.CreateOrder(ctx, CreateOrderInput{Items: line})
	require.NoError(t, err)
	assert.Equal(t, "NTH-DUP", first.OrderNumber)

	second, err := svc.CreateOrder(ctx, CreateOrderInput{Items: line})
	require.NoError(t, err)
	assert.Equal(t, "NTH-FRESH", second.OrderNumber)

	// The failed attempt left no stock change behind.
	assert.Equal(t, 8, stockOf(t, repos.db, product.ID))
}

func TestOrderService_CreateOrder_NumberAttemptsExhausted(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService(
		WithOrderNumberGenerator(sequenceNumbers("NTH-SAME")),
		WithOrderNumberAttempts(3),
	)
	ctx := context.Background()

	product := createProduct(t, repos.db, "P", "1.00", 10)
	line := []OrderLineInput{{ProductID: product.ID, Quantity: 1}}

	_, err := svc.CreateOrder(ctx, CreateOrderInput{Items: line})
	require.NoError(t, err)

	_, err = svc.CreateOrder(ctx, CreateOrderInput{Items: line})
	assert.ErrorIs(t, err, ErrOrderNumberExhausted)
	assert.Equal(t, int64(1), countRows(t, repos, &model.Order{}))
}

func createSimpleOrder(t *testing.T, svc OrderService, userID *uint, productID uint, qty int) *model.Order {
	t.Helper()
	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID: userID,
		Items:  []OrderLineInput{{ProductID: productID, Quantity: qty}},
	})
	require.NoError(t, err)
	return order
}

func TestOrderService_CancelOrder_RestoresStock(t *testing.T) {
	repos := setupServiceTest(t)
	notifier := &recordingNotifier{}
	svc := repos.orderService(WithOrderNotifier(notifier))
	ctx := context.Background()

	product := createProduct(t, repos.db, "P", "8.00", 10)
	variant := createVariant(t, repos.db, product.ID, "Large", "2.00", 6)
	order, err := svc.CreateOrder(ctx, CreateOrderInput{
		Items: []OrderLineInput{
			{ProductID: product.ID, Quantity: 3},
			{ProductID: product.ID, VariantID: &variant.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, stockOf(t, repos.db, product.ID))
	assert.Equal(t, 4, variantStockOf(t, repos.db, variant.ID))

	_, err = svc.UpdatePaymentStatus(ctx, order.ID, model.PaymentStatusPaid, nil)
	require.NoError(t, err)

	cancelled, err := svc.CancelOrder(ctx, order.ID, "customer changed mind")
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, model.PaymentStatusPaid, cancelled.PaymentStatus)
	assert.Contains(t, cancelled.Notes, "Cancellation reason: customer changed mind")
	assert.Equal(t, 10, stockOf(t, repos.db, product.ID))
	assert.Equal(t, 6, variantStockOf(t, repos.db, variant.ID))

	_, err = svc.CancelOrder(ctx, order.ID, "again")
	var transition *InvalidTransitionError
	require.True(t, errors.As(err, &transition))
	assert.Equal(t, "order", transition.Kind)
	assert.Equal(t, 10, stockOf(t, repos.db, product.ID))

	require.Len(t, notifier.orders, 2)
	assert.Equal(t, model.OrderStatusCancelled, notifier.orders[1].Status)
}

func TestOrderService_CancelOrder_DeletedProduct(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService()
	ctx := context.Background()

	product := createProduct(t, repos.db, "GONE", "3.00", 4)
	order := createSimpleOrder(t, svc, nil, product.ID, 1)
	require.NoError(t, repos.products.Delete(ctx, product.ID))

	_, err := svc.CancelOrder(ctx, order.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 4, stockOf(t, repos.db, product.ID))
}

func TestOrderService_UpdateOrderStatus_Transitions(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService()
	ctx := context.Background()

	product := createProduct(t, repos.db, "P", "1.00", 10)
	order := createSimpleOrder(t, svc, nil, product.ID, 1)

	_, err := svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusShipped, nil)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatus("lost"), nil)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusCancelled, nil)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	note := "packed"
	for _, next := range []model.OrderStatus{model.OrderStatusProcessing, model.OrderStatusProcessing, model.OrderStatusShipped, model.OrderStatusDelivered} {
		updated, err := svc.UpdateOrderStatus(ctx, order.ID, next, &note)
		require.NoError(t, err, "to %s", next)
		assert.Equal(t, next, updated.Status)
	}

	_, err = svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusProcessing, nil)
	var transition *InvalidTransitionError
	require.True(t, errors.As(err, &transition))
	assert.Equal(t, string(model.OrderStatusDelivered), transition.From)
	assert.Equal(t, string(model.OrderStatusProcessing), transition.To)

	_, err = svc.UpdateOrderStatus(ctx, 9999, model.OrderStatusProcessing, nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_UpdatePaymentStatus_Transitions(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService()
	ctx := context.Background()

	product := createProduct(t, repos.db, "P", "1.00", 10)
	order := createSimpleOrder(t, svc, nil, product.ID, 1)

	_, err := svc.UpdatePaymentStatus(ctx, order.ID, model.PaymentStatusRefunded, nil)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	method := "stripe"
	paid, err := svc.UpdatePaymentStatus(ctx, order.ID, model.PaymentStatusPaid, &method)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, "stripe", paid.PaymentMethod)
	assert.Equal(t, model.OrderStatusPending, paid.Status)

	_, err = svc.UpdatePaymentStatus(ctx, order.ID, model.PaymentStatusFailed, nil)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = svc.UpdatePaymentStatus(ctx, order.ID, model.PaymentStatus("bounced"), nil)
	assert.ErrorIs(t, err, ErrInvalidPaymentStatus)
}

func TestOrderTransitionTables(t *testing.T) {
	assert.True(t, IsValidOrderTransition(model.OrderStatusPending, model.OrderStatusProcessing))
	assert.True(t, IsValidOrderTransition(model.OrderStatusShipped, model.OrderStatusCancelled))
	assert.True(t, IsValidOrderTransition(model.OrderStatusDelivered, model.OrderStatusDelivered))
	assert.False(t, IsValidOrderTransition(model.OrderStatusDelivered, model.OrderStatusCancelled))
	assert.False(t, IsValidOrderTransition(model.OrderStatusCancelled, model.OrderStatusPending))
	assert.False(t, IsValidOrderTransition(model.OrderStatusPending, "unknown"))

	assert.True(t, IsValidPaymentTransition(model.PaymentStatusPending, model.PaymentStatusFailed))
	assert.True(t, IsValidPaymentTransition(model.PaymentStatusPaid, model.PaymentStatusRefunded))
	assert.False(t, IsValidPaymentTransition(model.PaymentStatusFailed, model.PaymentStatusPaid))
	assert.False(t, IsValidPaymentTransition(model.PaymentStatusRefunded, model.PaymentStatusPending))
}

func TestOrderService_RecordPayment(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService()
	ctx := context.Background()

	product := createProduct(t, repos.db, "P", "1.00", 10)
	order := createSimpleOrder(t, svc, nil, product.ID, 1)

	updated, err := svc.RecordPayment(ctx, order.OrderNumber, model.PaymentStatusPaid, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, updated.PaymentStatus)
	assert.Equal(t, "cs_test_1", updated.PaymentReference)

	_, err = svc.RecordPayment(ctx, order.OrderNumber, model.PaymentStatusFailed, "pi_other")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	stored, err := svc.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, "cs_test_1", stored.PaymentReference)

	_, err = svc.RecordPayment(ctx, "NTH-NOPE", model.PaymentStatusPaid, "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_GetOrderForUser(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService()
	ctx := context.Background()

	owner := createUser(t, repos.db, "owner@example.com")
	stranger := createUser(t, repos.db, "stranger@example.com")
	product := createProduct(t, repos.db, "P", "1.00", 10)
	order := createSimpleOrder(t, svc, &owner.ID, product.ID, 1)

	found, err := svc.GetOrderForUser(ctx, owner.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, found.OrderNumber)

	_, err = svc.GetOrderForUser(ctx, stranger.ID, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	byNumber, err := svc.GetOrderByOrderNumber(ctx, " "+order.OrderNumber+" ")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)
}

func TestOrderService_ListUserOrders(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService()
	ctx := context.Background()

	user := createUser(t, repos.db, "list@example.com")
	product := createProduct(t, repos.db, "P", "1.00", 50)
	for i := 0; i < 3; i++ {
		createSimpleOrder(t, svc, &user.ID, product.ID, 1)
	}
	createSimpleOrder(t, svc, nil, product.ID, 1)

	list, err := svc.ListUserOrders(ctx, user.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	assert.Len(t, list.Orders, 2)
	assert.Equal(t, 2, list.Limit)

	all, err := svc.ListOrders(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Total)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 20, all.Limit)

	recent, err := svc.ListRecentOrders(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestOrderService_Statistics_CachedAndInvalidated(t *testing.T) {
	repos := setupServiceTest(t)
	cache := newMemoryCache()
	svc := repos.orderService(WithStatisticsCache(cache))
	ctx := context.Background()

	product := createProduct(t, repos.db, "P", "10.00", 50)
	paid := createSimpleOrder(t, svc, nil, product.ID, 2)
	createSimpleOrder(t, svc, nil, product.ID, 1)
	_, err := svc.UpdatePaymentStatus(ctx, paid.ID, model.PaymentStatusPaid, nil)
	require.NoError(t, err)

	stats, err := svc.GetOrderStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalOrders)
	assert.Equal(t, "20.00", stats.TotalRevenue.String())
	assert.Equal(t, int64(2), stats.ByStatus[string(model.OrderStatusPending)])
	assert.Equal(t, int64(1), stats.ByPaymentStatus[string(model.PaymentStatusPaid)])
	assert.Contains(t, cache.data, orderStatisticsKey)

	createSimpleOrder(t, svc, nil, product.ID, 1)
	assert.NotContains(t, cache.data, orderStatisticsKey)

	stats, err = svc.GetOrderStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalOrders)
}

func TestOrderService_ExportOrders(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService()
	ctx := context.Background()

	product := createProduct(t, repos.db, "P", "2.00", 50)
	for i := 0; i < 3; i++ {
		createSimpleOrder(t, svc, nil, product.ID, i+1)
	}

	from := time.Now().Add(-time.Hour)
	data, err := svc.ExportOrders(ctx, from, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// xlsx files are zip archives.
	assert.Equal(t, "PK", string(data[:2]))

	_, err = svc.ExportOrders(ctx, from, from)
	assert.ErrorIs(t, err, ErrInvalidOrderInput)
}

func TestOrderService_ConcurrentStockDecrement(t *testing.T) {
	repos := setupServiceTest(t)
	svc := repos.orderService()
	ctx := context.Background()

	product := createProduct(t, repos.db, "HOT", "1.00", 3)

	var wg sync.WaitGroup
	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreateOrder(ctx, CreateOrderInput{
				Items: []OrderLineInput{{ProductID: product.ID, Quantity: 1}},
				Notes: fmt.Sprintf("buyer %d", i),
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientStock)
	}
	assert.Equal(t, 3, succeeded)
	assert.Zero(t, stockOf(t, repos.db, product.ID))
}
