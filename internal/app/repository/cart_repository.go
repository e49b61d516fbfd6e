package repository

import (
	"context"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository

	Create(ctx context.Context, cart *model.Cart) error
	FindByID(ctx context.Context, id uint) (*model.Cart, error)
	FindLatestByUserID(ctx context.Context, userID uint) (*model.Cart, error)
	FindLatestBySessionID(ctx context.Context, sessionID string) (*model.Cart, error)
	Touch(ctx context.Context, cartID uint) error
	Delete(ctx context.Context, cartID uint) error
	DeleteStaleGuestCarts(ctx context.Context, updatedBefore time.Time) (int64, error)

	FindItems(ctx context.Context, cartID uint) ([]model.CartItem, error)
	FindItem(ctx context.Context, cartID, itemID uint) (*model.CartItem, error)
	FindItemByLine(ctx context.Context, cartID, productID uint, variantID *uint) (*model.CartItem, error)
	CreateItem(ctx context.Context, item *model.CartItem) error
	UpdateItem(ctx context.Context, item *model.CartItem) error
	DeleteItem(ctx context.Context, itemID uint) error
	DeleteItems(ctx context.Context, cartID uint) (int64, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &cartRepository{db: tx}
}

func (r *cartRepository) Create(ctx context.Context, cart *model.Cart) error {
	logger.Debug("Creating cart in database", map[string]interface{}{
		"user_id":    cart.UserID,
		"session_id": cart.SessionID,
	})

	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		logger.Error("Failed to create cart in database", err, map[string]interface{}{
			"user_id":    cart.UserID,
			"session_id": cart.SessionID,
		})
		return err
	}

	logger.Debug("Cart created in database", map[string]interface{}{
		"cart_id": cart.ID,
	})
	return nil
}

func (r *cartRepository) FindByID(ctx context.Context, id uint) (*model.Cart, error) {
	var cart model.Cart
	if err := r.db.WithContext(ctx).First(&cart, id).Error; err != nil {
		logger.Debug("Cart not found by ID", map[string]interface{}{
			"cart_id": id,
			"error":   err.Error(),
		})
		return nil, err
	}
	return &cart, nil
}

// FindLatestByUserID returns the most recently updated cart of the user.
// Duplicate rows are tolerated; only the newest is addressed.
func (r *cartRepository) FindLatestByUserID(ctx context.Context, userID uint) (*model.Cart, error) {
	logger.Debug("Finding latest cart by user ID", map[string]interface{}{
		"user_id": userID,
	})

	var cart model.Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").Order("id DESC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindLatestBySessionID(ctx context.Context, sessionID string) (*model.Cart, error) {
	logger.Debug("Finding latest cart by session ID", map[string]interface{}{
		"session_id": sessionID,
	})

	var cart model.Cart
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("updated_at DESC").Order("id DESC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) Touch(ctx context.Context, cartID uint) error {
	result := r.db.WithContext(ctx).Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", time.Now())
	if result.Error != nil {
		logger.Error("Failed to touch cart", result.Error, map[string]interface{}{
			"cart_id": cartID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the cart row and its items.
func (r *cartRepository) Delete(ctx context.Context, cartID uint) error {
	logger.Debug("Deleting cart from database", map[string]interface{}{
		"cart_id": cartID,
	})

	db := r.db.WithContext(ctx)
	if err := db.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete cart items", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	if err := db.Delete(&model.Cart{}, cartID).Error; err != nil {
		logger.Error("Failed to delete cart", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}

	logger.Debug("Cart deleted from database", map[string]interface{}{
		"cart_id": cartID,
	})
	return nil
}

// DeleteStaleGuestCarts removes session carts not updated since updatedBefore.
// The stale carts are locked first so a cart touched mid-purge keeps its items.
func (r *cartRepository) DeleteStaleGuestCarts(ctx context.Context, updatedBefore time.Time) (int64, error) {
	logger.Debug("Deleting stale guest carts", map[string]interface{}{
		"updated_before": updatedBefore,
	})

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.Cart{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id IS NULL AND session_id IS NOT NULL AND updated_at < ?", updatedBefore).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Where("cart_id IN ?", ids).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&model.Cart{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete stale guest carts", err)
		return 0, err
	}

	logger.Debug("Stale guest carts deleted", map[string]interface{}{
		"deleted": deleted,
	})
	return deleted, nil
}

// FindItems returns the cart's items with product and variant loaded, oldest first.
func (r *cartRepository) FindItems(ctx context.Context, cartID uint) ([]model.CartItem, error) {
	logger.Debug("Finding cart items", map[string]interface{}{
		"cart_id": cartID,
	})

	var items []model.CartItem
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Variant").
		Where("cart_id = ?", cartID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		logger.Error("Failed to find cart items", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return nil, err
	}

	logger.Debug("Cart items found", map[string]interface{}{
		"cart_id": cartID,
		"count":   len(items),
	})
	return items, nil
}

func (r *cartRepository) FindItem(ctx context.Context, cartID, itemID uint) (*model.CartItem, error) {
	var item model.CartItem
	if err := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) FindItemByLine(ctx context.Context, cartID, productID uint, variantID *uint) (*model.CartItem, error) {
	query := r.db.WithContext(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID)
	if variantID == nil {
		query = query.Where("variant_id IS NULL")
	} else {
		query = query.Where("variant_id = ?", *variantID)
	}

	var item model.CartItem
	if err := query.First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) CreateItem(ctx context.Context, item *model.CartItem) error {
	logger.Debug("Creating cart item in database", map[string]interface{}{
		"cart_id":    item.CartID,
		"product_id": item.ProductID,
		"variant_id": item.VariantID,
		"quantity":   item.Quantity,
	})

	if err := r.db.WithContext(ctx).Omit("Product", "Variant").Create(item).Error; err != nil {
		logger.Error("Failed to create cart item in database", err, map[string]interface{}{
			"cart_id":    item.CartID,
			"product_id": item.ProductID,
		})
		return err
	}
	return nil
}

// UpdateItem persists quantity, snapshot price and owning cart.
func (r *cartRepository) UpdateItem(ctx context.Context, item *model.CartItem) error {
	logger.Debug("Updating cart item in database", map[string]interface{}{
		"cart_item_id": item.ID,
		"quantity":     item.Quantity,
	})

	err := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"cart_id":           item.CartID,
			"quantity":          item.Quantity,
			"price_at_addition": item.PriceAtAddition,
			"updated_at":        time.Now(),
		}).Error
	if err != nil {
		logger.Error("Failed to update cart item in database", err, map[string]interface{}{
			"cart_item_id": item.ID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID uint) error {
	logger.Debug("Deleting cart item from database", map[string]interface{}{
		"cart_item_id": itemID,
	})

	if err := r.db.WithContext(ctx).Delete(&model.CartItem{}, itemID).Error; err != nil {
		logger.Error("Failed to delete cart item from database", err, map[string]interface{}{
			"cart_item_id": itemID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) DeleteItems(ctx context.Context, cartID uint) (int64, error) {
	logger.Debug("Clearing cart items in database", map[string]interface{}{
		"cart_id": cartID,
	})

	result := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to clear cart items in database", result.Error, map[string]interface{}{
			"cart_id": cartID,
		})
		return 0, result.Error
	}

	logger.Debug("Cart items cleared in database", map[string]interface{}{
		"cart_id": cartID,
		"deleted": result.RowsAffected,
	})
	return result.RowsAffected, nil
}
