package errors

// Error codes returned in the "error" field of JSON error bodies.
// Format: CATEGORY_DETAIL. Clients map these to localized messages.
const (
	// auth
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// authorization
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"

	// validation
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// generic resources
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"
	MethodNotAllowed      = "METHOD_NOT_ALLOWED"

	// cart
	CartNotFound        = "CART_NOT_FOUND"
	CartItemNotFound    = "CART_ITEM_NOT_FOUND"
	CartOwnerRequired   = "CART_OWNER_REQUIRED"
	CartInvalidQuantity = "CART_INVALID_QUANTITY"
	CartEmpty           = "CART_EMPTY"

	// catalog
	ProductNotFound        = "PRODUCT_NOT_FOUND"
	VariantNotFound        = "VARIANT_NOT_FOUND"
	CategoryNotFound       = "CATEGORY_NOT_FOUND"
	CategoryHasProducts    = "CATEGORY_HAS_PRODUCTS"
	ProductInsufficientQty = "PRODUCT_INSUFFICIENT_STOCK"

	// order
	OrderNotFound          = "ORDER_NOT_FOUND"
	OrderInvalidTransition = "ORDER_INVALID_TRANSITION"
	OrderInvalidStatus     = "ORDER_INVALID_STATUS"

	// user and addresses
	UserNotFound    = "USER_NOT_FOUND"
	UserHasOrders   = "USER_HAS_ORDERS"
	AddressNotFound = "ADDRESS_NOT_FOUND"

	// checkout and payment
	CheckoutInvalidItems = "CHECKOUT_INVALID_ITEMS"
	PaymentProviderError = "PAYMENT_PROVIDER_ERROR"
	PaymentSignature     = "PAYMENT_SIGNATURE_INVALID"

	// uploads
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// internal
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"
)
