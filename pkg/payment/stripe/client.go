package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
	"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// Client represents a Stripe Checkout API client
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new Stripe client with the given configuration
func NewClient(config Config) (*Client, error) {
	config.normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// GetConfig returns the normalized client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

// CreateCheckoutSession opens a hosted checkout with one line item per request item.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	orderNumber := strings.TrimSpace(req.OrderNumber)
	if orderNumber == "" {
		return nil, fmt.Errorf("%w: order number is required", ErrInvalidRequest)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one line item is required", ErrInvalidRequest)
	}

	successURL := strings.TrimSpace(req.SuccessURL)
	if successURL == "" {
		successURL = c.config.SuccessURL
	} else if err := validateRedirect(successURL); err != nil {
		return nil, fmt.Errorf("%w: success url: %v", ErrInvalidRequest, err)
	}
	cancelURL := strings.TrimSpace(req.CancelURL)
	if cancelURL == "" {
		cancelURL = c.config.CancelURL
	} else if err := validateRedirect(cancelURL); err != nil {
		return nil, fmt.Errorf("%w: cancel url: %v", ErrInvalidRequest, err)
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("client_reference_id", orderNumber)
	form.Set("metadata["+MetadataOrderNumber+"]", orderNumber)
	form.Set("payment_intent_data[metadata]["+MetadataOrderNumber+"]", orderNumber)
	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		form.Set("customer_email", email)
	}
	for _, pm := range c.config.PaymentMethodTypes {
		form.Add("payment_method_types[]", pm)
	}

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line %d quantity must be positive", ErrInvalidRequest, i)
		}
		minor, err := toMinorAmount(item.UnitAmount, c.config.Currency)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
		form.Set(prefix+"[price_data][currency]", c.config.Currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(minor, 10))
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		if item.Description != "" {
			form.Set(prefix+"[price_data][product_data][description]", item.Description)
		}
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", form)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	var resp sessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode checkout session: %v", ErrResponseInvalid, err)
	}
	if resp.ID == "" || resp.URL == "" {
		return nil, fmt.Errorf("%w: missing session id or url", ErrResponseInvalid)
	}

	session := resp.CheckoutSession
	session.PaymentIntentID = paymentIntentID(resp.PaymentIntent)

	logger.Info("Stripe checkout session created", map[string]interface{}{
		"order_number": orderNumber,
		"session_id":   session.ID,
		"line_items":   len(req.Items),
	})
	return &session, nil
}

// ParseWebhook verifies the Stripe-Signature header against body and decodes
// the event. now is the reference time for the tolerance check.
func (c *Client) ParseWebhook(signature string, body []byte, now time.Time) (*WebhookEvent, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrResponseInvalid)
	}
	if err := verifySignature(c.config.WebhookSecret, signature, body, now, c.config.WebhookTolerance); err != nil {
		return nil, err
	}

	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode event: %v", ErrResponseInvalid, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrResponseInvalid)
	}

	obj := env.Data.Object
	event := &WebhookEvent{
		ID:          env.ID,
		Type:        env.Type,
		OrderNumber: strings.TrimSpace(obj.Metadata[MetadataOrderNumber]),
		Currency:    strings.ToLower(obj.Currency),
		Outcome:     outcomeFor(env.Type),
	}
	if env.Created > 0 {
		event.Created = time.Unix(env.Created, 0).UTC()
	}

	minor := obj.AmountTotal
	switch obj.Object {
	case objectCheckoutSession:
		event.SessionID = obj.ID
		event.PaymentIntentID = paymentIntentID(obj.PaymentIntent)
		// Delayed methods complete the session before the money arrives.
		if env.Type == EventCheckoutCompleted && obj.PaymentStatus == "unpaid" {
			event.Outcome = OutcomePending
		}
	case objectPaymentIntent:
		event.PaymentIntentID = obj.ID
		minor = obj.Amount
	}
	if minor > 0 && event.Currency != "" {
		event.Amount = fromMinorAmount(minor, event.Currency)
	}
	return event, nil
}

func outcomeFor(eventType string) PaymentOutcome {
	switch eventType {
	case EventCheckoutCompleted, EventCheckoutAsyncSucceeded, EventPaymentIntentSucceeded:
		return OutcomePaid
	case EventCheckoutExpired, EventCheckoutAsyncFailed:
		return OutcomeFailed
	case EventPaymentIntentFailed:
		// A declined attempt leaves the session open for another card.
		return OutcomePending
	default:
		return OutcomeIgnored
	}
}

// doRequest performs a form-encoded request against the Stripe API
func (c *Client) doRequest(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.APIBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrResponseInvalid, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	var errResp ErrorResponse
	msg := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		msg = fmt.Sprintf("%s (%s)", errResp.Error.Message, errResp.Error.Type)
	}
	logger.Warn("Stripe API error", map[string]interface{}{
		"path":   path,
		"status": resp.StatusCode,
		"error":  msg,
	})

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case http.StatusBadRequest, http.StatusPaymentRequired, http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrResponseInvalid, resp.StatusCode, msg)
	}
}

// SignPayload returns a Stripe-Signature header value for body. It is what
// Stripe itself sends and is used to drive webhook handlers in tests.
func SignPayload(secret string, body []byte, at time.Time) string {
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), computeSignature(secret, at.Unix(), body))
}

func verifySignature(secret, header string, body []byte, now time.Time, tolerance time.Duration) error {
	if strings.TrimSpace(header) == "" {
		return fmt.Errorf("%w: missing %s header", ErrSignatureInvalid, SignatureHeader)
	}

	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil || ts <= 0 {
				return fmt.Errorf("%w: invalid timestamp", ErrSignatureInvalid)
			}
			timestamp = ts
		case "v1":
			if value != "" {
				signatures = append(signatures, strings.ToLower(value))
			}
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return fmt.Errorf("%w: malformed header", ErrSignatureInvalid)
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age < 0 {
			age = -age
		}
		if age > tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrSignatureInvalid)
		}
	}

	expected := []byte(computeSignature(secret, timestamp, body))
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), expected) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching signature", ErrSignatureInvalid)
}

func computeSignature(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func paymentIntentID(v interface{}) string {
	switch pi := v.(type) {
	case string:
		return pi
	case map[string]interface{}:
		if id, ok := pi["id"].(string); ok {
			return id
		}
	}
	return ""
}

func currencyScale(currency string) int32 {
	if _, ok := zeroDecimalCurrencies[strings.ToLower(currency)]; ok {
		return 0
	}
	return 2
}

func toMinorAmount(amount decimal.Decimal, currency string) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidRequest)
	}
	minor := amount.Shift(currencyScale(currency))
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount %s has too many decimals for %s", ErrInvalidRequest, amount, currency)
	}
	return minor.IntPart(), nil
}

func fromMinorAmount(minor int64, currency string) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-currencyScale(currency))
}
