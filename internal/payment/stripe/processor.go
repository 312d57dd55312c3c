// Package stripe authorizes checkout payments as Stripe PaymentIntents.
package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

var _ checkout.PaymentProcessor = (*Processor)(nil)

// Config selects the Stripe account and mode.
type Config struct {
	APIKey      string
	Environment string
}

// Error is a failure reported by Stripe. Its message is the processor's own
// message, unchanged.
type Error struct {
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Err }

// Processor implements checkout.PaymentProcessor.
type Processor struct {
	environment string
	create      func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// NewProcessor validates the key against the environment and configures the
// Stripe SDK.
func NewProcessor(cfg Config) (*Processor, error) {
	env, err := normalizeEnv(cfg.Environment)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	if err := validateAPIKey(env, key); err != nil {
		return nil, err
	}

	stripe.Key = key
	return &Processor{environment: env, create: paymentintent.New}, nil
}

// Environment reports the normalized Stripe environment in use.
func (p *Processor) Environment() string {
	return p.environment
}

// Authorize creates a PaymentIntent for the request amount. It is called at
// most once per checkout.
func (p *Processor) Authorize(ctx context.Context, req checkout.PaymentRequest) (*checkout.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.AmountMinor),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
		Shipping: &stripe.ShippingDetailsParams{
			Name: stripe.String(req.Shipping.Name),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(req.Shipping.Line1),
				PostalCode: stripe.String(req.Shipping.PostalCode),
				City:       stripe.String(req.Shipping.City),
				State:      stripe.String(req.Shipping.State),
				Country:    stripe.String(req.Shipping.Country),
			},
		},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := p.create(params)
	if err != nil {
		return nil, processorError(err)
	}
	return &checkout.PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func processorError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return &Error{Code: string(se.Code), Msg: se.Msg, Err: err}
	}
	return err
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
