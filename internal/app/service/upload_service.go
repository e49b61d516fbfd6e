package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mdtstech/nexus-techhub-backend/internal/storage"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
)

var (
	ErrInvalidUpload      = errors.New("invalid upload")
	ErrUploadTooLarge     = errors.New("file exceeds the maximum upload size")
	ErrStorageUnavailable = errors.New("file storage is not configured")
)

const MaxProductImageSize = 5 << 20

var productImageTypes = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/webp": {".webp"},
	"image/gif":  {".gif"},
}

// ObjectPresigner signs direct-to-bucket uploads.
type ObjectPresigner interface {
	PresignUpload(ctx context.Context, folder, ext, contentType string, size int64) (*storage.PresignedUpload, error)
}

type ProductImageUploadInput struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"required"`
	// ProductID groups the object under the product's folder when set.
	ProductID uint `json:"product_id"`
}

type UploadService interface {
	PresignProductImage(ctx context.Context, input ProductImageUploadInput) (*storage.PresignedUpload, error)
}

type uploadService struct {
	presigner ObjectPresigner
}

// NewUploadService accepts a nil presigner when no bucket is configured.
func NewUploadService(presigner ObjectPresigner) UploadService {
	return &uploadService{presigner: presigner}
}

func (s *uploadService) PresignProductImage(ctx context.Context, input ProductImageUploadInput) (*storage.PresignedUpload, error) {
	if s.presigner == nil {
		return nil, ErrStorageUnavailable
	}

	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	ext := strings.ToLower(filepath.Ext(input.Filename))
	allowed, ok := productImageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: content type %q is not allowed", ErrInvalidUpload, input.ContentType)
	}
	if !extensionAllowed(ext, allowed) {
		return nil, fmt.Errorf("%w: extension %q does not match %s", ErrInvalidUpload, ext, contentType)
	}
	if input.Size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive", ErrInvalidUpload)
	}
	if input.Size > MaxProductImageSize {
		return nil, ErrUploadTooLarge
	}

	folder := "products"
	if input.ProductID != 0 {
		folder = fmt.Sprintf("products/%d", input.ProductID)
	}

	upload, err := s.presigner.PresignUpload(ctx, folder, ext, contentType, input.Size)
	if err != nil {
		return nil, err
	}

	logger.Info("Product image upload presigned", map[string]interface{}{
		"key":        upload.Key,
		"product_id": input.ProductID,
		"size":       input.Size,
	})
	return upload, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}
