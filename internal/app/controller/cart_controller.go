package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/service"
	"github.com/mdtstech/nexus-techhub-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddCartItemRequest struct {
	ProductID uint  `json:"product_id" binding:"required"`
	VariantID *uint `json:"variant_id"`
	Quantity  int   `json:"quantity" binding:"required"`
}

type UpdateCartItemRequest struct {
	// Zero or less removes the line.
	Quantity *int `json:"quantity" binding:"required"`
}

// cartOwner resolves the caller: a signed-in user, else the guest session.
func cartOwner(c *gin.Context) service.CartOwner {
	if userID, ok := middleware.GetUserID(c); ok {
		return service.CartOwner{UserID: userID}
	}
	return service.CartOwner{SessionID: middleware.GetSessionID(c)}
}

func emptyCart(owner service.CartOwner) *service.CartView {
	view := &service.CartView{
		Items:    []service.CartItemView{},
		Subtotal: model.ZeroMoney(),
	}
	if owner.UserID != 0 {
		view.UserID = &owner.UserID
	} else if owner.SessionID != "" {
		view.SessionID = &owner.SessionID
	}
	return view
}

// GetCart returns the caller's cart, or an empty one when none exists yet.
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	owner := cartOwner(c)

	cart, err := ctrl.cartService.GetCart(c.Request.Context(), owner)
	if err != nil {
		respondServiceError(c, err, "fetch cart")
		return
	}
	if cart == nil {
		cart = emptyCart(owner)
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// AddItem creates the cart on first use.
// POST /api/v1/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	owner := cartOwner(c)

	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	ctx := c.Request.Context()
	cart, err := ctrl.cartService.GetOrCreateCart(ctx, owner)
	if err != nil {
		respondServiceError(c, err, "load cart")
		return
	}

	cart, err = ctrl.cartService.AddItemToCart(ctx, cart.ID, req.ProductID, req.Quantity, req.VariantID)
	if err != nil {
		respondServiceError(c, err, "add item to cart")
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"cart_id":    cart.ID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// UpdateItem sets a line's quantity.
// PUT /api/v1/cart/items/:id
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	ctx := c.Request.Context()
	cartID, err := ctrl.existingCartID(ctx, cartOwner(c))
	if err != nil {
		respondServiceError(c, err, "update cart item")
		return
	}

	cart, err := ctrl.cartService.UpdateCartItem(ctx, cartID, itemID, *req.Quantity)
	if err != nil {
		respondServiceError(c, err, "update cart item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// RemoveItem DELETE /api/v1/cart/items/:id
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	cartID, err := ctrl.existingCartID(ctx, cartOwner(c))
	if err != nil {
		respondServiceError(c, err, "remove cart item")
		return
	}

	cart, err := ctrl.cartService.RemoveCartItem(ctx, cartID, itemID)
	if err != nil {
		respondServiceError(c, err, "remove cart item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// ClearCart DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	owner := cartOwner(c)
	ctx := c.Request.Context()

	cart, err := ctrl.cartService.GetCart(ctx, owner)
	if err != nil {
		respondServiceError(c, err, "clear cart")
		return
	}
	if cart == nil {
		c.JSON(http.StatusOK, gin.H{"cart": emptyCart(owner)})
		return
	}

	cart, err = ctrl.cartService.ClearCart(ctx, cart.ID)
	if err != nil {
		respondServiceError(c, err, "clear cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// MergeCart folds the X-Session-ID guest cart into the signed-in user's cart.
// POST /api/v1/cart/merge
func (ctrl *CartController) MergeCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	sessionID := middleware.GetSessionID(c)

	cart, err := ctrl.cartService.TransferCart(c.Request.Context(), sessionID, userID)
	if err != nil {
		respondServiceError(c, err, "merge cart")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Guest cart merged", map[string]interface{}{
		"user_id": userID,
		"cart_id": cart.ID,
	})
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

func (ctrl *CartController) existingCartID(ctx context.Context, owner service.CartOwner) (uint, error) {
	cart, err := ctrl.cartService.GetCart(ctx, owner)
	if err != nil {
		return 0, err
	}
	if cart == nil {
		return 0, service.ErrCartItemNotFound
	}
	return cart.ID, nil
}
