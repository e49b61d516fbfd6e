package errors

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
)

// ErrorInfo is a client-safe code and message derived from an internal error.
type ErrorInfo struct {
	Code    string
	Message string
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// Postgres (lib/pq) or SQLite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// IsForeignKeyViolation reports whether err is a foreign key failure.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgForeignKeyViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}

// ParseError maps a database error to an ErrorInfo without leaking SQL details.
// context names the operation, e.g. "create order" or "delete category".
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "An unexpected error occurred"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	}

	if IsUniqueViolation(err) {
		return parseDuplicateKeyError(err.Error())
	}
	if IsForeignKeyViolation(err) {
		return parseForeignKeyError(err.Error(), context)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgNotNullViolation:
			return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
		case pgCheckViolation:
			return ErrorInfo{Code: ValidationInvalidInput, Message: "One or more values are out of range"}
		}
	}

	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "A backing service is unavailable. Please try again shortly",
		}
	}

	return ErrorInfo{Code: InternalServerError, Message: defaultErrorMessage(context)}
}

func parseDuplicateKeyError(errStr string) ErrorInfo {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "email"):
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "Email is already in use"}
	case strings.Contains(lower, "order_number"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "Order number collision, please retry"}
	case strings.Contains(lower, "sku"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "A product with this SKU already exists"}
	case strings.Contains(lower, "slug"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "This slug is already taken"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "The record already exists"}
}

func parseForeignKeyError(errStr, context string) ErrorInfo {
	lower := strings.ToLower(errStr)

	if strings.Contains(lower, "still referenced") {
		return ErrorInfo{Code: ResourceConflict, Message: "The record is still referenced and cannot be deleted"}
	}
	switch {
	case strings.Contains(lower, "product_id"):
		return ErrorInfo{Code: ProductNotFound, Message: "Referenced product does not exist"}
	case strings.Contains(lower, "user_id"):
		return ErrorInfo{Code: UserNotFound, Message: "Referenced user does not exist"}
	case strings.Contains(lower, "category_id"):
		return ErrorInfo{Code: CategoryNotFound, Message: "Referenced category does not exist"}
	}
	if strings.Contains(context, "delete") {
		return ErrorInfo{Code: ResourceConflict, Message: "The record is still referenced and cannot be deleted"}
	}
	return ErrorInfo{Code: ResourceNotFound, Message: "Referenced record does not exist"}
}

func notFoundMessage(context string) string {
	lower := strings.ToLower(context)
	for _, name := range []string{"order", "cart", "product", "category", "user", "address"} {
		if strings.Contains(lower, name) {
			return strings.ToUpper(name[:1]) + name[1:] + " not found"
		}
	}
	return "The requested resource was not found"
}

func defaultErrorMessage(context string) string {
	lower := strings.ToLower(context)
	switch {
	case strings.Contains(lower, "create"):
		return "Could not create the record. Please try again shortly"
	case strings.Contains(lower, "update"):
		return "Could not update the record. Please try again shortly"
	case strings.Contains(lower, "delete"):
		return "Could not delete the record. Please try again shortly"
	}
	return "An unexpected error occurred. Please try again shortly"
}
