package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/service"
)

type UploadController struct {
	uploadService service.UploadService
}

func NewUploadController(uploadService service.UploadService) *UploadController {
	return &UploadController{
		uploadService: uploadService,
	}
}

// PresignProductImage returns a presigned PUT URL; the client uploads the
// file directly to the bucket and then stores file_url on the product.
// POST /api/v1/admin/uploads/product-image
func (ctrl *UploadController) PresignProductImage(c *gin.Context) {
	var req service.ProductImageUploadInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	upload, err := ctrl.uploadService.PresignProductImage(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "generate upload url")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"upload_url": upload.UploadURL,
		"file_url":   upload.FileURL,
		"key":        upload.Key,
		"expires_at": upload.ExpiresAt,
	})
}
