package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/pricing"
)

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CHECKOUT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Pricing     PricingConfig
	Payment     PaymentConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// PricingConfig holds the checkout pricing policy. Values are decimal strings.
type PricingConfig struct {
	TaxRate               string `default:"0.18" usage:"Tax rate applied to the subtotal" flag:"tax-rate"`
	FreeShippingThreshold string `default:"1000" usage:"Subtotal above which shipping is free" flag:"free-shipping-threshold"`
	ShippingFee           string `default:"200"  usage:"Flat shipping fee" flag:"shipping-fee"`
}

// PaymentConfig configures the Stripe processor.
type PaymentConfig struct {
	StripeKey      string `usage:"Stripe secret key (CHECKOUT_PAYMENT_STRIPE_KEY or STRIPE_SECRET_KEY)" flag:"stripe-key"`
	Environment    string `default:"test" usage:"Stripe environment: test or live" flag:"stripe-env"`
	Currency       string `default:"inr" usage:"ISO currency code charged"`
	CurrencyPlaces int    `default:"2" usage:"Minor-unit digits of the currency" flag:"currency-places"`
	Description    string `default:"Kart checkout" usage:"Payment description shown by the processor" flag:"payment-description"`
}

// RedisConfig configures the coupon cache. An empty Addr and URL disable it.
type RedisConfig struct {
	Addr      string        `usage:"Redis address host:port" flag:"redis-addr"`
	URL       string        `usage:"Redis URL (CHECKOUT_REDIS_URL or REDIS_URL); overrides Addr" flag:"redis-url"`
	Password  string        `usage:"Redis password" flag:"redis-password"`
	DB        int           `default:"0" usage:"Redis database number" flag:"redis-db"`
	CouponTTL time.Duration `default:"10m" usage:"Coupon cache entry lifetime" flag:"coupon-ttl"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set CHECKOUT_DATABASE_URL or DATABASE_URL")
	}
	if _, err := c.Pricing.Policy(); err != nil {
		return err
	}
	if c.Payment.CurrencyPlaces < 0 || c.Payment.CurrencyPlaces > 4 {
		return errors.Errorf("currency places must be between 0 and 4, got %d", c.Payment.CurrencyPlaces)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names to the application's CHECKOUT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Redis.URL == "" {
		c.Redis.URL = os.Getenv("REDIS_URL")
	}
	if c.Payment.StripeKey == "" {
		c.Payment.StripeKey = os.Getenv("STRIPE_SECRET_KEY")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

// Policy parses the configured pricing policy.
func (c PricingConfig) Policy() (pricing.Policy, error) {
	var (
		p   pricing.Policy
		err error
	)
	if p.TaxRate, err = decimal.NewFromString(c.TaxRate); err != nil {
		return pricing.Policy{}, errors.Wrap(err, "parse tax rate")
	}
	if p.FreeShippingThreshold, err = decimal.NewFromString(c.FreeShippingThreshold); err != nil {
		return pricing.Policy{}, errors.Wrap(err, "parse free shipping threshold")
	}
	if p.ShippingFee, err = decimal.NewFromString(c.ShippingFee); err != nil {
		return pricing.Policy{}, errors.Wrap(err, "parse shipping fee")
	}
	if err := p.Validate(); err != nil {
		return pricing.Policy{}, errors.Wrap(err, "pricing policy")
	}
	return p, nil
}

// Enabled reports whether a Redis endpoint is configured.
func (c RedisConfig) Enabled() bool {
	return c.URL != "" || c.Addr != ""
}

// Options builds client options, preferring URL over Addr.
func (c RedisConfig) Options() (*redis.Options, error) {
	if c.URL != "" {
		opts, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		return opts, nil
	}
	return &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}, nil
}
