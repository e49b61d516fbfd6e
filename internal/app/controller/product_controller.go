package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/service"
	apperrors "github.com/mdtstech/nexus-techhub-backend/internal/errors"
	"github.com/mdtstech/nexus-techhub-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// ListProducts pages the catalog; q switches to a name/sku/brand search and
// category_id filters by category.
// GET /api/v1/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	page, limit := pageParams(c)
	ctx := c.Request.Context()

	if term := strings.TrimSpace(c.Query("q")); term != "" {
		products, err := ctrl.productService.SearchProducts(ctx, term, page, limit)
		if err != nil {
			respondServiceError(c, err, "search products")
			return
		}
		c.JSON(http.StatusOK, products)
		return
	}

	var categoryID *uint
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid category_id")
			return
		}
		v := uint(id)
		categoryID = &v
	}

	products, err := ctrl.productService.ListProducts(ctx, page, limit, categoryID)
	if err != nil {
		respondServiceError(c, err, "list products")
		return
	}
	c.JSON(http.StatusOK, products)
}

// GetProduct GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "fetch product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// CreateProduct POST /api/v1/admin/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	var req service.CreateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	product, err := ctrl.productService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "create product")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// UpdateProduct PUT /api/v1/admin/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.UpdateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	product, err := ctrl.productService.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err, "update product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct DELETE /api/v1/admin/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "delete product")
		return
	}
	c.Status(http.StatusNoContent)
}
