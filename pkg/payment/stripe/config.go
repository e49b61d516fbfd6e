package stripe

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAPIBaseURL       = "https://api.stripe.com"
	defaultCurrency         = "usd"
	defaultTimeout          = 15 * time.Second
	defaultWebhookTolerance = 5 * time.Minute
)

// Config represents the settings for the hosted Checkout client
type Config struct {
	// SecretKey authenticates API calls (sk_live_... / sk_test_...)
	SecretKey string

	// PublishableKey is handed to the storefront unchanged
	PublishableKey string

	// WebhookSecret signs incoming webhook payloads (whsec_...)
	WebhookSecret string

	// SuccessURL and CancelURL are the default redirect targets. SuccessURL may
	// carry the {CHECKOUT_SESSION_ID} placeholder.
	SuccessURL string
	CancelURL  string

	// Currency is the ISO code used for line items, lower case
	Currency string

	// APIBaseURL defaults to https://api.stripe.com
	APIBaseURL string

	// WebhookTolerance bounds the age of a signed webhook timestamp
	WebhookTolerance time.Duration

	PaymentMethodTypes []string
}

func (c *Config) normalize() {
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.PublishableKey = strings.TrimSpace(c.PublishableKey)
	c.WebhookSecret = strings.TrimSpace(c.WebhookSecret)
	c.SuccessURL = strings.TrimSpace(c.SuccessURL)
	c.CancelURL = strings.TrimSpace(c.CancelURL)
	c.Currency = strings.ToLower(strings.TrimSpace(c.Currency))
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	if c.WebhookTolerance <= 0 {
		c.WebhookTolerance = defaultWebhookTolerance
	}

	types := make([]string, 0, len(c.PaymentMethodTypes))
	for _, t := range c.PaymentMethodTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		types = []string{"card"}
	}
	c.PaymentMethodTypes = types
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("%w: secret key is required", ErrConfigInvalid)
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("%w: webhook secret is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(c.APIBaseURL); err != nil {
		return fmt.Errorf("%w: api base url is invalid", ErrConfigInvalid)
	}
	if err := validateRedirect(c.SuccessURL); err != nil {
		return fmt.Errorf("%w: success url: %v", ErrConfigInvalid, err)
	}
	if err := validateRedirect(c.CancelURL); err != nil {
		return fmt.Errorf("%w: cancel url: %v", ErrConfigInvalid, err)
	}
	return nil
}

func validateRedirect(raw string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}
	// Stripe substitutes the placeholder itself.
	raw = strings.ReplaceAll(raw, "{CHECKOUT_SESSION_ID}", "cs_placeholder")
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return nil
}
