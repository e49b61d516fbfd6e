package repository

import (
	"context"
	"strings"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"gorm.io/gorm"
)

type ProductFilter struct {
	CategoryID *uint
	Search     string
	Featured   *bool
	Page
}

type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository

	Create(ctx context.Context, product *model.Product) error
	BulkCreate(ctx context.Context, products []model.Product, batchSize int) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindVariant(ctx context.Context, productID, variantID uint) (*model.ProductVariant, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uint) error
	CountByCategory(ctx context.Context, categoryID uint) (int64, error)

	// DecrementStock subtracts quantity only when enough stock remains.
	// It reports false when no row qualified.
	DecrementStock(ctx context.Context, productID uint, quantity int) (bool, error)
	DecrementVariantStock(ctx context.Context, variantID uint, quantity int) (bool, error)
	RestoreStock(ctx context.Context, productID uint, quantity int) error
	RestoreVariantStock(ctx context.Context, variantID uint, quantity int) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &productRepository{db: tx}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"sku":  product.SKU,
		"name": product.Name,
	})

	if err := r.db.WithContext(ctx).Omit("Category").Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"sku": product.SKU,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})
	return nil
}

func (r *productRepository) BulkCreate(ctx context.Context, products []model.Product, batchSize int) error {
	if len(products) == 0 {
		return nil
	}
	logger.Info("Bulk creating products", map[string]interface{}{
		"count":      len(products),
		"batch_size": batchSize,
	})

	if err := r.db.WithContext(ctx).Omit("Category").CreateInBatches(products, batchSize).Error; err != nil {
		logger.Error("Failed to bulk create products", err, map[string]interface{}{
			"count": len(products),
		})
		return err
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	logger.Debug("Finding product by ID in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&product, id).Error; err != nil {
		logger.Debug("Product not found by ID", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindVariant(ctx context.Context, productID, variantID uint) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	if err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", variantID, productID).
		First(&variant).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *productRepository) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Unscoped().Where("sku = ?", sku).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	logger.Debug("Listing products", map[string]interface{}{
		"category_id": filter.CategoryID,
		"search":      filter.Search,
		"page":        filter.Page.Page,
	})

	query := r.db.WithContext(ctx).Model(&model.Product{})
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Featured != nil {
		query = query.Where("is_featured = ?", *filter.Featured)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(sku) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count products", err)
		return nil, 0, err
	}

	page := filter.Page.Normalize()
	var products []model.Product
	if err := query.
		Preload("Category").
		Order("created_at DESC").Order("id DESC").
		Limit(page.Limit).
		Offset(page.offset()).
		Find(&products).Error; err != nil {
		logger.Error("Failed to list products", err)
		return nil, 0, err
	}

	logger.Debug("Products listed", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
	})

	if err := r.db.WithContext(ctx).Omit("Category", "Variants").Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	result := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete product from database", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepository) CountByCategory(ctx context.Context, categoryID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}

func (r *productRepository) DecrementStock(ctx context.Context, productID uint, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		logger.Error("Failed to decrement product stock", result.Error, map[string]interface{}{
			"product_id": productID,
			"quantity":   quantity,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *productRepository) DecrementVariantStock(ctx context.Context, variantID uint, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.ProductVariant{}).
		Where("id = ? AND stock_quantity >= ?", variantID, quantity).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		logger.Error("Failed to decrement variant stock", result.Error, map[string]interface{}{
			"variant_id": variantID,
			"quantity":   quantity,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RestoreStock adds quantity back; soft-deleted products are restocked too.
func (r *productRepository) RestoreStock(ctx context.Context, productID uint, quantity int) error {
	err := r.db.WithContext(ctx).Unscoped().Model(&model.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", quantity)).Error
	if err != nil {
		logger.Error("Failed to restore product stock", err, map[string]interface{}{
			"product_id": productID,
			"quantity":   quantity,
		})
	}
	return err
}

func (r *productRepository) RestoreVariantStock(ctx context.Context, variantID uint, quantity int) error {
	err := r.db.WithContext(ctx).Model(&model.ProductVariant{}).
		Where("id = ?", variantID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", quantity)).Error
	if err != nil {
		logger.Error("Failed to restore variant stock", err, map[string]interface{}{
			"variant_id": variantID,
			"quantity":   quantity,
		})
	}
	return err
}
