// Package handler is the HTTP adapter for the checkout and coupon services.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/kart-checkout/internal/domain/checkout"
	"github.com/xenking/kart-checkout/internal/domain/coupon"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Checkout authorizes payments.
type Checkout interface {
	Authorize(ctx context.Context, req checkout.Request) (*checkout.Authorization, error)
}

// Coupons is the coupon management surface.
type Coupons interface {
	FindDiscount(ctx context.Context, code string) (*coupon.Coupon, error)
	Create(ctx context.Context, p coupon.CreateParams) (*coupon.Coupon, error)
	Get(ctx context.Context, id string) (*coupon.Coupon, error)
	List(ctx context.Context) ([]coupon.Coupon, error)
	Update(ctx context.Context, id string, p coupon.UpdateParams) (*coupon.Coupon, error)
	Delete(ctx context.Context, id string) (*coupon.Coupon, error)
}

// Handler serves the payment and coupon routes.
type Handler struct {
	checkout Checkout
	coupons  Coupons
	validate *validator.Validate

	authorizations metric.Int64Counter
}

// NewHandler creates a Handler. The meter records checkout outcomes.
func NewHandler(checkout Checkout, coupons Coupons, meter metric.Meter) (*Handler, error) {
	authorizations, err := meter.Int64Counter("checkout.authorizations",
		metric.WithDescription("Checkout authorization attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create authorizations counter")
	}
	return &Handler{
		checkout:       checkout,
		coupons:        coupons,
		validate:       newValidator(),
		authorizations: authorizations,
	}, nil
}

// Routes returns the API router. Paths are rooted at /api/payment.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api/payment", func(r chi.Router) {
		r.Post("/create", h.CreatePayment)
		r.Get("/discount", h.ApplyDiscount)

		r.Route("/coupon", func(r chi.Router) {
			r.Post("/new", h.NewCoupon)
			r.Get("/all", h.AllCoupons)
			r.Get("/{id}", h.GetCoupon)
			r.Put("/{id}", h.UpdateCoupon)
			r.Delete("/{id}", h.DeleteCoupon)
		})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, false, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, false, "method not allowed")
	})
	return r
}
