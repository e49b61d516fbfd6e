package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/repository"
	apperrors "github.com/mdtstech/nexus-techhub-backend/internal/errors"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrVariantNotFound     = errors.New("product variant not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidProductInput = errors.New("invalid product input")
	ErrProductConflict     = errors.New("product sku or slug already exists")
)

type VariantInput struct {
	Name            string      `json:"name" binding:"required"`
	SKU             string      `json:"sku"`
	PriceAdjustment model.Money `json:"price_adjustment"`
	StockQuantity   int         `json:"stock_quantity"`
}

type CreateProductInput struct {
	CategoryID         *uint          `json:"category_id"`
	Name               string         `json:"name" binding:"required"`
	Slug               string         `json:"slug"`
	SKU                string         `json:"sku" binding:"required"`
	Description        string         `json:"description"`
	Brand              string         `json:"brand"`
	Price              model.Money    `json:"price"`
	DiscountPercentage int            `json:"discount_percentage"`
	StockQuantity      int            `json:"stock_quantity"`
	ImageURL           string         `json:"image_url"`
	IsFeatured         bool           `json:"is_featured"`
	Variants           []VariantInput `json:"variants"`
}

type UpdateProductInput struct {
	CategoryID         *uint        `json:"category_id"`
	Name               *string      `json:"name"`
	Description        *string      `json:"description"`
	Brand              *string      `json:"brand"`
	Price              *model.Money `json:"price"`
	DiscountPercentage *int         `json:"discount_percentage"`
	StockQuantity      *int         `json:"stock_quantity"`
	ImageURL           *string      `json:"image_url"`
	IsFeatured         *bool        `json:"is_featured"`
}

// ProductImportRow is one spreadsheet row read by the seed command.
type ProductImportRow struct {
	CategorySlug       string
	Name               string
	SKU                string
	Description        string
	Brand              string
	Price              model.Money
	DiscountPercentage int
	StockQuantity      int
	ImageURL           string
	IsFeatured         bool
}

type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

type ProductList struct {
	Products []model.Product `json:"products"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
}

type ProductService interface {
	ListProducts(ctx context.Context, page, limit int, categoryID *uint) (*ProductList, error)
	SearchProducts(ctx context.Context, term string, page, limit int) (*ProductList, error)
	GetProduct(ctx context.Context, id uint) (*model.Product, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uint, input UpdateProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	ImportProducts(ctx context.Context, rows []ProductImportRow) (*ImportResult, error)
}

type productService struct {
	db           *gorm.DB
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

func NewProductService(
	db *gorm.DB,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
) ProductService {
	return &productService{
		db:           db,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

func (s *productService) ListProducts(ctx context.Context, page, limit int, categoryID *uint) (*ProductList, error) {
	return s.list(ctx, repository.ProductFilter{
		CategoryID: categoryID,
		Page:       repository.Page{Page: page, Limit: limit},
	})
}

func (s *productService) SearchProducts(ctx context.Context, term string, page, limit int) (*ProductList, error) {
	logger.Debug("Searching products", map[string]interface{}{
		"term": term,
	})
	return s.list(ctx, repository.ProductFilter{
		Search: term,
		Page:   repository.Page{Page: page, Limit: limit},
	})
}

func (s *productService) list(ctx context.Context, filter repository.ProductFilter) (*ProductList, error) {
	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	page := filter.Page.Normalize()
	return &ProductList{
		Products: products,
		Total:    total,
		Page:     page.Page,
		Limit:    page.Limit,
	}, nil
}

func (s *productService) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, input CreateProductInput) (*model.Product, error) {
	logger.Info("Creating product", map[string]interface{}{
		"sku":  input.SKU,
		"name": input.Name,
	})

	if err := validateProduct(input.Name, input.SKU, input.Price, input.DiscountPercentage, input.StockQuantity); err != nil {
		logger.Warn("Invalid product input", map[string]interface{}{
			"sku":    input.SKU,
			"reason": err.Error(),
		})
		return nil, err
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &model.Product{
		CategoryID:         input.CategoryID,
		Name:               strings.TrimSpace(input.Name),
		Slug:               input.Slug,
		SKU:                strings.TrimSpace(input.SKU),
		Description:        input.Description,
		Brand:              input.Brand,
		Price:              input.Price,
		DiscountPercentage: input.DiscountPercentage,
		StockQuantity:      input.StockQuantity,
		ImageURL:           input.ImageURL,
		IsFeatured:         input.IsFeatured,
	}
	if product.Slug == "" {
		product.Slug = Slugify(product.Name + " " + product.SKU)
	}
	for _, v := range input.Variants {
		if strings.TrimSpace(v.Name) == "" || v.StockQuantity < 0 {
			return nil, ErrInvalidProductInput
		}
		product.Variants = append(product.Variants, model.ProductVariant{
			Name:            strings.TrimSpace(v.Name),
			SKU:             v.SKU,
			PriceAdjustment: v.PriceAdjustment,
			StockQuantity:   v.StockQuantity,
		})
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if apperrors.IsUniqueViolation(err) {
			logger.Warn("Product already exists", map[string]interface{}{
				"sku":  product.SKU,
				"slug": product.Slug,
			})
			return nil, ErrProductConflict
		}
		logger.Error("Failed to create product", err, map[string]interface{}{
			"sku": product.SKU,
		})
		return nil, err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})
	return s.GetProduct(ctx, product.ID)
}

func (s *productService) UpdateProduct(ctx context.Context, id uint, input UpdateProductInput) (*model.Product, error) {
	logger.Info("Updating product", map[string]interface{}{
		"product_id": id,
	})

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.CategoryID != nil {
		if err := s.checkCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = input.CategoryID
	}
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Brand != nil {
		product.Brand = *input.Brand
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.DiscountPercentage != nil {
		product.DiscountPercentage = *input.DiscountPercentage
	}
	if input.StockQuantity != nil {
		product.StockQuantity = *input.StockQuantity
	}
	if input.ImageURL != nil {
		product.ImageURL = *input.ImageURL
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}

	if err := validateProduct(product.Name, product.SKU, product.Price, product.DiscountPercentage, product.StockQuantity); err != nil {
		return nil, err
	}

	product.Category = nil
	if err := s.productRepo.Update(ctx, product); err != nil {
		logger.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct soft-deletes; order history keeps its snapshots.
func (s *productService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		logger.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

// ImportProducts inserts rows whose SKU is not yet known, all in one
// transaction. Rows naming an unknown category are rejected.
func (s *productService) ImportProducts(ctx context.Context, rows []ProductImportRow) (*ImportResult, error) {
	logger.Info("Importing products", map[string]interface{}{
		"rows": len(rows),
	})

	result := &ImportResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.productRepo.WithTx(tx)
		categories := s.categoryRepo.WithTx(tx)
		categoryIDs := map[string]uint{}
		seen := map[string]bool{}

		var batch []model.Product
		for _, row := range rows {
			sku := strings.TrimSpace(row.SKU)
			if err := validateProduct(row.Name, sku, row.Price, row.DiscountPercentage, row.StockQuantity); err != nil {
				return err
			}
			if seen[sku] {
				result.Skipped++
				continue
			}
			seen[sku] = true

			if _, err := products.FindBySKU(ctx, sku); err == nil {
				result.Skipped++
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			product := model.Product{
				Name:               strings.TrimSpace(row.Name),
				Slug:               Slugify(row.Name + " " + sku),
				SKU:                sku,
				Description:        row.Description,
				Brand:              row.Brand,
				Price:              row.Price,
				DiscountPercentage: row.DiscountPercentage,
				StockQuantity:      row.StockQuantity,
				ImageURL:           row.ImageURL,
				IsFeatured:         row.IsFeatured,
			}
			if slug := strings.TrimSpace(row.CategorySlug); slug != "" {
				id, ok := categoryIDs[slug]
				if !ok {
					category, err := categories.FindBySlug(ctx, slug)
					if err != nil {
						if errors.Is(err, gorm.ErrRecordNotFound) {
							return ErrCategoryNotFound
						}
						return err
					}
					id = category.ID
					categoryIDs[slug] = id
				}
				product.CategoryID = &id
			}
			batch = append(batch, product)
		}

		result.Created = len(batch)
		return products.BulkCreate(ctx, batch, 100)
	})
	if err != nil {
		logger.Error("Failed to import products", err, map[string]interface{}{
			"rows": len(rows),
		})
		return nil, err
	}

	logger.Info("Products imported", map[string]interface{}{
		"created": result.Created,
		"skipped": result.Skipped,
	})
	return result, nil
}

func (s *productService) checkCategory(ctx context.Context, categoryID *uint) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.categoryRepo.FindByID(ctx, *categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	return nil
}

func validateProduct(name, sku string, price model.Money, discount, stock int) error {
	switch {
	case strings.TrimSpace(name) == "", strings.TrimSpace(sku) == "":
		return ErrInvalidProductInput
	case price.IsNegative():
		return ErrInvalidProductInput
	case discount < 0 || discount > 100:
		return ErrInvalidProductInput
	case stock < 0:
		return ErrInvalidProductInput
	}
	return nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
