package controller

import (
	"net/http"
	"testing"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guestSession = "guest-session-0001"

func mountCart(e *testEnv) {
	ctrl := NewCartController(e.carts)
	cart := e.router.Group("/cart", e.auth.OptionalAuthenticate(), middleware.GuestSession())
	cart.GET("", ctrl.GetCart)
	cart.DELETE("", ctrl.ClearCart)
	cart.POST("/items", ctrl.AddItem)
	cart.PUT("/items/:id", ctrl.UpdateItem)
	cart.DELETE("/items/:id", ctrl.RemoveItem)
	cart.POST("/merge", e.auth.Authenticate(), ctrl.MergeCart)
}

func TestCartController_GuestAddAndRead(t *testing.T) {
	e := setupControllerTest(t)
	mountCart(e)
	phone := e.createProduct(t, "PHN-1", "10.00", 10)
	phoneCase := e.createProduct(t, "CASE-1", "6.50", 10)

	w := e.do(t, request{method: http.MethodPost, path: "/cart/items", session: guestSession,
		body: map[string]interface{}{"product_id": phone.ID, "quantity": 2}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, guestSession, w.Header().Get(middleware.SessionIDHeader))

	w = e.do(t, request{method: http.MethodPost, path: "/cart/items", session: guestSession,
		body: map[string]interface{}{"product_id": phoneCase.ID, "quantity": 1}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, request{method: http.MethodGet, path: "/cart", session: guestSession})
	require.Equal(t, http.StatusOK, w.Code)

	var body cartBody
	decode(t, w, &body)
	assert.Equal(t, guestSession, body.Cart.SessionID)
	assert.Nil(t, body.Cart.UserID)
	assert.Equal(t, "26.50", body.Cart.Subtotal)
	assert.Equal(t, 3, body.Cart.ItemCount)
	assert.Len(t, body.Cart.Items, 2)
}

func TestCartController_EmptyCartIsNotCreated(t *testing.T) {
	e := setupControllerTest(t)
	mountCart(e)

	w := e.do(t, request{method: http.MethodGet, path: "/cart", session: guestSession})
	require.Equal(t, http.StatusOK, w.Code)

	var body cartBody
	decode(t, w, &body)
	assert.Zero(t, body.Cart.ID)
	assert.Equal(t, "0.00", body.Cart.Subtotal)
	assert.Empty(t, body.Cart.Items)

	var count int64
	require.NoError(t, e.db.Model(&model.Cart{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCartController_IssuesSessionWhenMissing(t *testing.T) {
	e := setupControllerTest(t)
	mountCart(e)

	w := e.do(t, request{method: http.MethodGet, path: "/cart"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get(middleware.SessionIDHeader), 36)
}

func TestCartController_AddItemRejections(t *testing.T) {
	e := setupControllerTest(t)
	mountCart(e)
	product := e.createProduct(t, "PHN-1", "10.00", 10)

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   string
	}{
		{"unknown product", map[string]interface{}{"product_id": 999, "quantity": 1}, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"unknown variant", map[string]interface{}{"product_id": product.ID, "variant_id": 999, "quantity": 1}, http.StatusNotFound, "VARIANT_NOT_FOUND"},
		{"negative quantity", map[string]interface{}{"product_id": product.ID, "quantity": -1}, http.StatusBadRequest, "CART_INVALID_QUANTITY"},
		{"missing product", map[string]interface{}{"quantity": 1}, http.StatusBadRequest, "VALIDATION_INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, request{method: http.MethodPost, path: "/cart/items", session: guestSession, body: tt.body})
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestCartController_UpdateRemoveAndClear(t *testing.T) {
	e := setupControllerTest(t)
	mountCart(e)
	a := e.createProduct(t, "A", "5.00", 10)
	b := e.createProduct(t, "B", "7.00", 10)

	e.do(t, request{method: http.MethodPost, path: "/cart/items", session: guestSession,
		body: map[string]interface{}{"product_id": a.ID, "quantity": 1}})
	w := e.do(t, request{method: http.MethodPost, path: "/cart/items", session: guestSession,
		body: map[string]interface{}{"product_id": b.ID, "quantity": 1}})
	var body cartBody
	decode(t, w, &body)
	require.Len(t, body.Cart.Items, 2)
	itemA := body.Cart.Items[0].ID
	itemB := body.Cart.Items[1].ID

	w = e.do(t, request{method: http.MethodPut, path: pathf("/cart/items/%d", itemA), session: guestSession,
		body: map[string]interface{}{"quantity": 4}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &body)
	assert.Equal(t, "27.00", body.Cart.Subtotal)

	w = e.do(t, request{method: http.MethodPut, path: pathf("/cart/items/%d", itemA), session: guestSession,
		body: map[string]interface{}{"quantity": 0}})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	assert.Len(t, body.Cart.Items, 1)

	w = e.do(t, request{method: http.MethodDelete, path: pathf("/cart/items/%d", itemA), session: guestSession})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CART_ITEM_NOT_FOUND", errorCode(t, w))

	w = e.do(t, request{method: http.MethodDelete, path: "/cart", session: guestSession})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	assert.Empty(t, body.Cart.Items)
	assert.NotZero(t, body.Cart.ID, "clearing keeps the cart")

	w = e.do(t, request{method: http.MethodDelete, path: pathf("/cart/items/%d", itemB), session: guestSession})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartController_ItemsOfAnotherCartAreHidden(t *testing.T) {
	e := setupControllerTest(t)
	mountCart(e)
	product := e.createProduct(t, "A", "5.00", 10)

	w := e.do(t, request{method: http.MethodPost, path: "/cart/items", session: guestSession,
		body: map[string]interface{}{"product_id": product.ID, "quantity": 1}})
	var body cartBody
	decode(t, w, &body)
	itemID := body.Cart.Items[0].ID

	e.do(t, request{method: http.MethodPost, path: "/cart/items", session: "another-guest-0002",
		body: map[string]interface{}{"product_id": product.ID, "quantity": 1}})
	w = e.do(t, request{method: http.MethodDelete, path: pathf("/cart/items/%d", itemID), session: "another-guest-0002"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartController_MergeOnSignIn(t *testing.T) {
	e := setupControllerTest(t)
	mountCart(e)
	user := e.createUser(t, "buyer@example.com", model.RoleUser)
	a := e.createProduct(t, "A", "5.00", 10)
	b := e.createProduct(t, "B", "7.00", 10)
	token := bearer(t, user)

	e.do(t, request{method: http.MethodPost, path: "/cart/items", auth: token,
		body: map[string]interface{}{"product_id": a.ID, "quantity": 2}})
	e.do(t, request{method: http.MethodPost, path: "/cart/items", session: guestSession,
		body: map[string]interface{}{"product_id": a.ID, "quantity": 3}})
	e.do(t, request{method: http.MethodPost, path: "/cart/items", session: guestSession,
		body: map[string]interface{}{"product_id": b.ID, "quantity": 1}})

	w := e.do(t, request{method: http.MethodPost, path: "/cart/merge", auth: token, session: guestSession})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body cartBody
	decode(t, w, &body)
	require.NotNil(t, body.Cart.UserID)
	assert.Equal(t, user.ID, *body.Cart.UserID)
	quantities := map[uint]int{}
	for _, item := range body.Cart.Items {
		quantities[item.ProductID] = item.Quantity
	}
	assert.Equal(t, map[uint]int{a.ID: 5, b.ID: 1}, quantities)

	w = e.do(t, request{method: http.MethodGet, path: "/cart", session: guestSession})
	decode(t, w, &body)
	assert.Zero(t, body.Cart.ID, "guest cart is gone after the merge")
}

func TestCartController_MergeRequiresAuthentication(t *testing.T) {
	e := setupControllerTest(t)
	mountCart(e)

	w := e.do(t, request{method: http.MethodPost, path: "/cart/merge", session: guestSession})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
