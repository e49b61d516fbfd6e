package stripe

import (
	"time"

	"github.com/shopspring/decimal"
)

// Webhook event types the store reacts to
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventCheckoutAsyncSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncFailed    = "checkout.session.async_payment_failed"
	EventCheckoutExpired        = "checkout.session.expired"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
)

const (
	// MetadataOrderNumber is the session metadata key that links back to the order
	MetadataOrderNumber = "order_number"
	SignatureHeader     = "Stripe-Signature"

	objectCheckoutSession = "checkout.session"
	objectPaymentIntent   = "payment_intent"
)

// PaymentOutcome is the provider-neutral result carried by a webhook
type PaymentOutcome string

const (
	OutcomePaid    PaymentOutcome = "paid"
	OutcomeFailed  PaymentOutcome = "failed"
	OutcomePending PaymentOutcome = "pending"
	OutcomeIgnored PaymentOutcome = "ignored"
)

// LineItem is one priced row of a checkout session
type LineItem struct {
	Name        string
	Description string
	// UnitAmount is in major units, e.g. 12.50
	UnitAmount decimal.Decimal
	Quantity   int
}

// CheckoutSessionRequest represents the request to open a hosted checkout
type CheckoutSessionRequest struct {
	OrderNumber   string
	CustomerEmail string
	Items         []LineItem
	// Empty redirect URLs fall back to the configured defaults
	SuccessURL string
	CancelURL  string
}

// CheckoutSession represents the created session
type CheckoutSession struct {
	ID              string `json:"id"`
	URL             string `json:"url"`
	Status          string `json:"status"`
	PaymentStatus   string `json:"payment_status"`
	PaymentIntentID string `json:"-"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
}

// WebhookEvent is a verified webhook reduced to what order handling needs
type WebhookEvent struct {
	ID              string
	Type            string
	OrderNumber     string
	SessionID       string
	PaymentIntentID string
	Outcome         PaymentOutcome
	Amount          decimal.Decimal
	Currency        string
	Created         time.Time
}

// Reference is the identifier stored on the order as its payment reference
func (e *WebhookEvent) Reference() string {
	if e.SessionID != "" {
		return e.SessionID
	}
	return e.PaymentIntentID
}

// ErrorResponse represents a Stripe API error body
type ErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Param   string `json:"param"`
	} `json:"error"`
}

type eventEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object eventObject `json:"object"`
	} `json:"data"`
}

type eventObject struct {
	Object        string            `json:"object"`
	ID            string            `json:"id"`
	PaymentIntent interface{}       `json:"payment_intent"`
	Currency      string            `json:"currency"`
	AmountTotal   int64             `json:"amount_total"`
	Amount        int64             `json:"amount"`
	PaymentStatus string            `json:"payment_status"`
	Status        string            `json:"status"`
	Metadata      map[string]string `json:"metadata"`
}

type sessionResponse struct {
	CheckoutSession
	PaymentIntent interface{} `json:"payment_intent"`
}
