package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/kart-checkout/internal/domain/apperr"
	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

// CreatePayment handles POST /api/payment/create?id={buyerId}. The coupon
// field of the response is present only when a coupon was applied.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := readBody(w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	body, err := decodePayment(data)
	if err != nil {
		writeError(ctx, w, errBadBody)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(ctx, w, validationError(err))
		return
	}

	req := checkout.Request{
		BuyerID:    r.URL.Query().Get("id"),
		Items:      body.lineItems(),
		CouponCode: body.Coupon,
	}
	if s := body.ShippingInfo; s != nil {
		req.Shipping = &checkout.Destination{
			AddressLine: s.Address,
			PostalCode:  s.PinCode,
			City:        s.City,
			State:       s.State,
			Country:     s.Country,
		}
	}

	auth, err := h.checkout.Authorize(ctx, req)
	if err != nil {
		h.authorizations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", apperr.KindOf(err).String()),
		))
		writeError(ctx, w, err)
		return
	}
	h.authorizations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", "authorized"),
	))

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.FieldStart("clientSecret")
	e.Str(auth.ClientSecret)
	e.FieldStart("paymentIntentId")
	e.Str(auth.IntentID)
	if auth.CouponCode != "" {
		e.FieldStart("coupon")
		e.Str(auth.CouponCode)
	}
	e.FieldStart("breakdown")
	encodeBreakdown(&e, auth.Breakdown)
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, e.Bytes())
}

// ApplyDiscount handles GET /api/payment/discount?coupon=CODE.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := h.coupons.FindDiscount(ctx, r.URL.Query().Get("coupon"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.FieldStart("discount")
	encodeDecimal(&e, c.Amount)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}
