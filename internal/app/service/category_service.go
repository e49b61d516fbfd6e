package service

import (
	"context"
	"errors"
	"strings"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/repository"
	apperrors "github.com/mdtstech/nexus-techhub-backend/internal/errors"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryHasProducts = errors.New("Cannot delete category with associated products")
	ErrCategoryConflict    = errors.New("category slug already exists")
	ErrInvalidCategory     = errors.New("category name is required")
)

type CategoryInput struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
}

type CategoryService interface {
	List(ctx context.Context) ([]model.Category, error)
	Get(ctx context.Context, id uint) (*model.Category, error)
	Create(ctx context.Context, input CategoryInput) (*model.Category, error)
	Update(ctx context.Context, id uint, input CategoryInput) (*model.Category, error)
	Delete(ctx context.Context, id uint) error
}

type categoryService struct {
	db           *gorm.DB
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
}

func NewCategoryService(
	db *gorm.DB,
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
) CategoryService {
	return &categoryService{
		db:           db,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
	}
}

func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []model.Category{}
	}
	return categories, nil
}

func (s *categoryService) Get(ctx context.Context, id uint) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		logger.Error("Failed to fetch category", err, map[string]interface{}{
			"category_id": id,
		})
		return nil, err
	}
	return category, nil
}

func (s *categoryService) Create(ctx context.Context, input CategoryInput) (*model.Category, error) {
	category := &model.Category{}
	if err := s.apply(ctx, category, input); err != nil {
		return nil, err
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, ErrCategoryConflict
		}
		logger.Error("Failed to create category", err, map[string]interface{}{
			"slug": category.Slug,
		})
		return nil, err
	}

	logger.Info("Category created", map[string]interface{}{
		"category_id": category.ID,
		"slug":        category.Slug,
	})
	return category, nil
}

func (s *categoryService) Update(ctx context.Context, id uint, input CategoryInput) (*model.Category, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.ParentID != nil && *input.ParentID == id {
		return nil, ErrInvalidCategory
	}
	if err := s.apply(ctx, category, input); err != nil {
		return nil, err
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, ErrCategoryConflict
		}
		logger.Error("Failed to update category", err, map[string]interface{}{
			"category_id": id,
		})
		return nil, err
	}
	return category, nil
}

// Delete refuses while any product still references the category.
func (s *categoryService) Delete(ctx context.Context, id uint) error {
	logger.Info("Deleting category", map[string]interface{}{
		"category_id": id,
	})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.productRepo.WithTx(tx).CountByCategory(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrCategoryHasProducts
		}

		if err := s.categoryRepo.WithTx(tx).Delete(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCategoryNotFound
			}
			if apperrors.IsForeignKeyViolation(err) {
				return ErrCategoryHasProducts
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCategoryHasProducts) || errors.Is(err, ErrCategoryNotFound) {
			logger.Warn("Cannot delete category", map[string]interface{}{
				"category_id": id,
				"reason":      err.Error(),
			})
		} else {
			logger.Error("Failed to delete category", err, map[string]interface{}{
				"category_id": id,
			})
		}
		return err
	}

	logger.Info("Category deleted", map[string]interface{}{
		"category_id": id,
	})
	return nil
}

func (s *categoryService) apply(ctx context.Context, category *model.Category, input CategoryInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ErrInvalidCategory
	}
	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if input.ParentID != nil {
		if _, err := s.Get(ctx, *input.ParentID); err != nil {
			return err
		}
	}

	category.Name = name
	category.Slug = slug
	category.Description = input.Description
	category.ParentID = input.ParentID
	return nil
}
