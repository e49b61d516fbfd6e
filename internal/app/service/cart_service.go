package service

import (
	"context"
	"errors"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/repository"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrCartOwnerRequired = errors.New("exactly one of user id or session id is required")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
)

// CartOwner identifies a cart by user or by anonymous session. Exactly one
// of the two must be set.
type CartOwner struct {
	UserID    uint
	SessionID string
}

func (o CartOwner) valid() bool {
	return (o.UserID != 0) != (o.SessionID != "")
}

func (o CartOwner) fields() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    o.UserID,
		"session_id": o.SessionID,
	}
}

type CartItemView struct {
	ID              uint        `json:"id"`
	ProductID       uint        `json:"product_id"`
	VariantID       *uint       `json:"variant_id,omitempty"`
	ProductName     string      `json:"product_name"`
	VariantName     string      `json:"variant_name,omitempty"`
	SKU             string      `json:"sku"`
	ImageURL        string      `json:"image_url,omitempty"`
	Quantity        int         `json:"quantity"`
	PriceAtAddition model.Money `json:"price_at_addition"`
	UnitPrice       model.Money `json:"unit_price"`
	Total           model.Money `json:"total"`
	// Discount fields mirror what checkout charges for the line.
	DiscountPercentage int         `json:"discount_percentage"`
	SaleUnitPrice      model.Money `json:"sale_unit_price"`
	SaleTotal          model.Money `json:"sale_total"`
	StockQuantity      int         `json:"stock_quantity"`
}

type CartView struct {
	ID        uint           `json:"id"`
	UserID    *uint          `json:"user_id,omitempty"`
	SessionID *string        `json:"session_id,omitempty"`
	Items     []CartItemView `json:"items"`
	Subtotal  model.Money    `json:"subtotal"`
	Discount  model.Money    `json:"discount"`
	Total     model.Money    `json:"total"`
	ItemCount int            `json:"item_count"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type CartService interface {
	// GetCart returns nil, nil when the owner has no cart yet.
	GetCart(ctx context.Context, owner CartOwner) (*CartView, error)
	CreateCart(ctx context.Context, owner CartOwner) (*CartView, error)
	GetOrCreateCart(ctx context.Context, owner CartOwner) (*CartView, error)
	AddItemToCart(ctx context.Context, cartID, productID uint, quantity int, variantID *uint) (*CartView, error)
	UpdateCartItem(ctx context.Context, cartID, itemID uint, quantity int) (*CartView, error)
	RemoveCartItem(ctx context.Context, cartID, itemID uint) (*CartView, error)
	ClearCart(ctx context.Context, cartID uint) (*CartView, error)
	TransferCart(ctx context.Context, sessionID string, userID uint) (*CartView, error)
	PurgeStaleGuestCarts(ctx context.Context, olderThan time.Duration) (int64, error)
}

type cartService struct {
	db          *gorm.DB
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(
	db *gorm.DB,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
) CartService {
	return &cartService{
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) findLatest(ctx context.Context, repo repository.CartRepository, owner CartOwner) (*model.Cart, error) {
	if owner.UserID != 0 {
		return repo.FindLatestByUserID(ctx, owner.UserID)
	}
	return repo.FindLatestBySessionID(ctx, owner.SessionID)
}

func (s *cartService) GetCart(ctx context.Context, owner CartOwner) (*CartView, error) {
	if !owner.valid() {
		logger.Warn("Cannot fetch cart: invalid owner", owner.fields())
		return nil, ErrCartOwnerRequired
	}

	logger.Debug("Fetching cart", owner.fields())

	cart, err := s.findLatest(ctx, s.cartRepo, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error("Failed to fetch cart", err, owner.fields())
		return nil, err
	}
	return s.buildView(ctx, s.cartRepo, cart)
}

func (s *cartService) CreateCart(ctx context.Context, owner CartOwner) (*CartView, error) {
	if !owner.valid() {
		logger.Warn("Cannot create cart: invalid owner", owner.fields())
		return nil, ErrCartOwnerRequired
	}

	cart := newCart(owner)
	if err := s.cartRepo.Create(ctx, cart); err != nil {
		logger.Error("Failed to create cart", err, owner.fields())
		return nil, err
	}

	logger.Info("Cart created", map[string]interface{}{
		"cart_id":    cart.ID,
		"user_id":    owner.UserID,
		"session_id": owner.SessionID,
	})
	return emptyView(cart), nil
}

func (s *cartService) GetOrCreateCart(ctx context.Context, owner CartOwner) (*CartView, error) {
	view, err := s.GetCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	if view != nil {
		return view, nil
	}
	return s.CreateCart(ctx, owner)
}

func (s *cartService) AddItemToCart(ctx context.Context, cartID, productID uint, quantity int, variantID *uint) (*CartView, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
		"variant_id": variantID,
		"quantity":   quantity,
	})

	if quantity <= 0 {
		logger.Warn("Cannot add to cart: invalid quantity", map[string]interface{}{
			"cart_id":  cartID,
			"quantity": quantity,
		})
		return nil, ErrInvalidQuantity
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := s.cartRepo.WithTx(tx)
		products := s.productRepo.WithTx(tx)

		if _, err := carts.FindByID(ctx, cartID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartNotFound
			}
			return err
		}

		product, err := products.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		if variantID != nil {
			if _, err := products.FindVariant(ctx, productID, *variantID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrVariantNotFound
				}
				return err
			}
		}

		existing, err := carts.FindItemByLine(ctx, cartID, productID, variantID)
		switch {
		case err == nil:
			existing.Quantity += quantity
			existing.PriceAtAddition = product.Price
			if err := carts.UpdateItem(ctx, existing); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item := &model.CartItem{
				CartID:          cartID,
				ProductID:       productID,
				VariantID:       variantID,
				Quantity:        quantity,
				PriceAtAddition: product.Price,
			}
			if err := carts.CreateItem(ctx, item); err != nil {
				return err
			}
		default:
			return err
		}

		return carts.Touch(ctx, cartID)
	})
	if err != nil {
		if isCartDomainError(err) {
			logger.Warn("Cannot add to cart", map[string]interface{}{
				"cart_id":    cartID,
				"product_id": productID,
				"variant_id": variantID,
				"reason":     err.Error(),
			})
		} else {
			logger.Error("Failed to add item to cart", err, map[string]interface{}{
				"cart_id":    cartID,
				"product_id": productID,
			})
		}
		return nil, err
	}

	logger.Info("Item added to cart", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
	})
	return s.viewByID(ctx, cartID)
}

// UpdateCartItem sets the item quantity; zero or less removes the item.
func (s *cartService) UpdateCartItem(ctx context.Context, cartID, itemID uint, quantity int) (*CartView, error) {
	logger.Info("Updating cart item", map[string]interface{}{
		"cart_id":      cartID,
		"cart_item_id": itemID,
		"quantity":     quantity,
	})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := s.cartRepo.WithTx(tx)

		item, err := carts.FindItem(ctx, cartID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartItemNotFound
			}
			return err
		}

		if quantity <= 0 {
			if err := carts.DeleteItem(ctx, item.ID); err != nil {
				return err
			}
		} else {
			item.Quantity = quantity
			if err := carts.UpdateItem(ctx, item); err != nil {
				return err
			}
		}
		return carts.Touch(ctx, cartID)
	})
	if err != nil {
		if errors.Is(err, ErrCartItemNotFound) {
			logger.Warn("Cart item not found", map[string]interface{}{
				"cart_id":      cartID,
				"cart_item_id": itemID,
			})
		} else {
			logger.Error("Failed to update cart item", err, map[string]interface{}{
				"cart_id":      cartID,
				"cart_item_id": itemID,
			})
		}
		return nil, err
	}

	return s.viewByID(ctx, cartID)
}

func (s *cartService) RemoveCartItem(ctx context.Context, cartID, itemID uint) (*CartView, error) {
	return s.UpdateCartItem(ctx, cartID, itemID, 0)
}

// ClearCart deletes every item but keeps the cart row.
func (s *cartService) ClearCart(ctx context.Context, cartID uint) (*CartView, error) {
	logger.Info("Clearing cart", map[string]interface{}{
		"cart_id": cartID,
	})

	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := s.cartRepo.WithTx(tx)
		if _, err := carts.FindByID(ctx, cartID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartNotFound
			}
			return err
		}

		n, err := carts.DeleteItems(ctx, cartID)
		if err != nil {
			return err
		}
		removed = n
		return carts.Touch(ctx, cartID)
	})
	if err != nil {
		if !errors.Is(err, ErrCartNotFound) {
			logger.Error("Failed to clear cart", err, map[string]interface{}{
				"cart_id": cartID,
			})
		}
		return nil, err
	}

	logger.Info("Cart cleared", map[string]interface{}{
		"cart_id": cartID,
		"removed": removed,
	})
	return s.viewByID(ctx, cartID)
}

// TransferCart folds the session cart into the user's cart. Quantities of
// matching lines are summed and the user row keeps its own snapshot price;
// lines only present in the session cart move across with their snapshot.
func (s *cartService) TransferCart(ctx context.Context, sessionID string, userID uint) (*CartView, error) {
	logger.Info("Transferring guest cart", map[string]interface{}{
		"session_id": sessionID,
		"user_id":    userID,
	})

	if sessionID == "" || userID == 0 {
		return nil, ErrCartOwnerRequired
	}

	var userCart *model.Cart
	merged, moved := 0, 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := s.cartRepo.WithTx(tx)

		var err error
		userCart, err = carts.FindLatestByUserID(ctx, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if userCart == nil {
			userCart = newCart(CartOwner{UserID: userID})
			if err := carts.Create(ctx, userCart); err != nil {
				return err
			}
		}

		sessionCart, err := carts.FindLatestBySessionID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		sessionItems, err := carts.FindItems(ctx, sessionCart.ID)
		if err != nil {
			return err
		}

		for i := range sessionItems {
			item := sessionItems[i]
			existing, err := carts.FindItemByLine(ctx, userCart.ID, item.ProductID, item.VariantID)
			switch {
			case err == nil:
				existing.Quantity += item.Quantity
				if err := carts.UpdateItem(ctx, existing); err != nil {
					return err
				}
				if err := carts.DeleteItem(ctx, item.ID); err != nil {
					return err
				}
				merged++
			case errors.Is(err, gorm.ErrRecordNotFound):
				item.CartID = userCart.ID
				if err := carts.UpdateItem(ctx, &item); err != nil {
					return err
				}
				moved++
			default:
				return err
			}
		}

		if err := carts.Delete(ctx, sessionCart.ID); err != nil {
			return err
		}
		return carts.Touch(ctx, userCart.ID)
	})
	if err != nil {
		logger.Error("Failed to transfer guest cart", err, map[string]interface{}{
			"session_id": sessionID,
			"user_id":    userID,
		})
		return nil, err
	}

	logger.Info("Guest cart transferred", map[string]interface{}{
		"user_id": userID,
		"cart_id": userCart.ID,
		"merged":  merged,
		"moved":   moved,
	})
	return s.buildView(ctx, s.cartRepo, userCart)
}

func (s *cartService) PurgeStaleGuestCarts(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	deleted, err := s.cartRepo.DeleteStaleGuestCarts(ctx, cutoff)
	if err != nil {
		logger.Error("Failed to purge stale guest carts", err, map[string]interface{}{
			"cutoff": cutoff,
		})
		return 0, err
	}

	logger.Info("Stale guest carts purged", map[string]interface{}{
		"deleted": deleted,
		"cutoff":  cutoff,
	})
	return deleted, nil
}

func (s *cartService) viewByID(ctx context.Context, cartID uint) (*CartView, error) {
	cart, err := s.cartRepo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return s.buildView(ctx, s.cartRepo, cart)
}

func (s *cartService) buildView(ctx context.Context, repo repository.CartRepository, cart *model.Cart) (*CartView, error) {
	items, err := repo.FindItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	view := emptyView(cart)
	for _, item := range items {
		view.Items = append(view.Items, itemView(item))
	}
	view.recompute()
	return view, nil
}

func (v *CartView) recompute() {
	v.Subtotal = model.ZeroMoney()
	v.Total = model.ZeroMoney()
	v.ItemCount = 0
	for _, item := range v.Items {
		v.Subtotal = v.Subtotal.Add(item.Total)
		v.Total = v.Total.Add(item.SaleTotal)
		v.ItemCount += item.Quantity
	}
	v.Discount = v.Subtotal.Sub(v.Total)
}

// itemView prices a line as price_at_addition plus the variant adjustment.
// The sale price applies the product's current discount to the snapshot.
func itemView(item model.CartItem) CartItemView {
	unit := item.PriceAtAddition
	sale := item.PriceAtAddition
	view := CartItemView{
		ID:              item.ID,
		ProductID:       item.ProductID,
		VariantID:       item.VariantID,
		Quantity:        item.Quantity,
		PriceAtAddition: item.PriceAtAddition,
	}
	if item.Product != nil {
		view.ProductName = item.Product.Name
		view.SKU = item.Product.SKU
		view.ImageURL = item.Product.ImageURL
		view.StockQuantity = item.Product.StockQuantity
		view.DiscountPercentage = item.Product.DiscountPercentage
		sale = sale.ApplyDiscount(item.Product.DiscountPercentage)
	}
	if item.VariantID != nil && item.Variant != nil {
		unit = unit.Add(item.Variant.PriceAdjustment)
		sale = sale.Add(item.Variant.PriceAdjustment)
		view.VariantName = item.Variant.Name
		view.StockQuantity = item.Variant.StockQuantity
	}
	view.UnitPrice = unit
	view.Total = unit.Mul(item.Quantity)
	view.SaleUnitPrice = sale
	view.SaleTotal = sale.Mul(item.Quantity)
	return view
}

func newCart(owner CartOwner) *model.Cart {
	cart := &model.Cart{}
	if owner.UserID != 0 {
		id := owner.UserID
		cart.UserID = &id
	} else {
		session := owner.SessionID
		cart.SessionID = &session
	}
	return cart
}

func emptyView(cart *model.Cart) *CartView {
	return &CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		SessionID: cart.SessionID,
		Items:     []CartItemView{},
		Subtotal:  model.ZeroMoney(),
		Discount:  model.ZeroMoney(),
		Total:     model.ZeroMoney(),
		UpdatedAt: cart.UpdatedAt,
	}
}

func isCartDomainError(err error) bool {
	return errors.Is(err, ErrCartNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrVariantNotFound)
}
