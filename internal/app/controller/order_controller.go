package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/service"
	apperrors "github.com/mdtstech/nexus-techhub-backend/internal/errors"
	"github.com/mdtstech/nexus-techhub-backend/internal/middleware"
)

type OrderController struct {
	orderService service.OrderService
	cartService  service.CartService
}

func NewOrderController(orderService service.OrderService, cartService service.CartService) *OrderController {
	return &OrderController{
		orderService: orderService,
		cartService:  cartService,
	}
}

// CreateOrderRequest places an order from explicit items, or from the
// caller's cart when items is empty.
type CreateOrderRequest struct {
	Items             []service.OrderLineInput `json:"items"`
	ShippingAddressID *uint                    `json:"shipping_address_id"`
	BillingAddressID  *uint                    `json:"billing_address_id"`
	ShippingMethod    string                   `json:"shipping_method"`
	ShippingCost      model.Money              `json:"shipping_cost"`
	PaymentMethod     string                   `json:"payment_method"`
	Notes             string                   `json:"notes"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CreateOrder POST /api/v1/orders
func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	if req.ShippingCost.IsNegative() {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "shipping_cost must not be negative")
		return
	}

	input := service.CreateOrderInput{
		UserID:            &userID,
		Items:             req.Items,
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
		ShippingMethod:    req.ShippingMethod,
		ShippingCost:      req.ShippingCost,
		PaymentMethod:     req.PaymentMethod,
		Notes:             req.Notes,
	}

	ctx := c.Request.Context()
	if len(req.Items) == 0 {
		cart, err := ctrl.cartService.GetCart(ctx, service.CartOwner{UserID: userID})
		if err != nil {
			respondServiceError(c, err, "load cart")
			return
		}
		if cart == nil || len(cart.Items) == 0 {
			respondServiceError(c, service.ErrEmptyOrder, "create order")
			return
		}
		input.CartID = &cart.ID
	}

	order, err := ctrl.orderService.CreateOrder(ctx, input)
	if err != nil {
		respondServiceError(c, err, "create order")
		return
	}

	log.Info("Order placed", map[string]interface{}{
		"user_id":      userID,
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount.String(),
	})
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// ListOrders GET /api/v1/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)

	orders, err := ctrl.orderService.ListUserOrders(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondServiceError(c, err, "list orders")
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrder GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrderForUser(c.Request.Context(), userID, id)
	if err != nil {
		respondServiceError(c, err, "fetch order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// GetOrderByNumber GET /api/v1/orders/number/:number
func (ctrl *OrderController) GetOrderByNumber(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrderByOrderNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondServiceError(c, err, "fetch order")
		return
	}
	if order.UserID == nil || *order.UserID != userID {
		respondServiceError(c, service.ErrOrderNotFound, "fetch order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// CancelOrder lets customers withdraw orders that have not been picked up
// for fulfilment yet.
// POST /api/v1/orders/:id/cancel
func (ctrl *OrderController) CancelOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	order, err := ctrl.orderService.GetOrderForUser(ctx, userID, id)
	if err != nil {
		respondServiceError(c, err, "cancel order")
		return
	}
	if order.Status != model.OrderStatusPending {
		respondServiceError(c, &service.InvalidTransitionError{
			Kind: "order",
			From: string(order.Status),
			To:   string(model.OrderStatusCancelled),
		}, "cancel order")
		return
	}

	order, err = ctrl.orderService.CancelOrder(ctx, id, req.Reason)
	if err != nil {
		respondServiceError(c, err, "cancel order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
