package stripe

import "errors"

var (
	// ErrConfigInvalid is returned when required settings are missing or malformed
	ErrConfigInvalid = errors.New("stripe config invalid")

	// ErrInvalidRequest is returned when the checkout request cannot be sent
	ErrInvalidRequest = errors.New("invalid checkout request")

	// ErrUnauthorized is returned when Stripe rejects the secret key
	ErrUnauthorized = errors.New("unauthorized: invalid stripe secret key")

	// ErrRequestFailed is returned on transport failures
	ErrRequestFailed = errors.New("stripe request failed")

	// ErrResponseInvalid is returned when Stripe answers with an unexpected body or status
	ErrResponseInvalid = errors.New("stripe response invalid")

	// ErrSignatureInvalid is returned when a webhook fails verification
	ErrSignatureInvalid = errors.New("stripe signature invalid")
)
