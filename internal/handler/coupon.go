package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/domain/coupon"
)

// NewCoupon handles POST /api/payment/coupon/new.
func (h *Handler) NewCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, ok := h.couponBody(w, r)
	if !ok {
		return
	}
	var p coupon.CreateParams
	if body.Code != nil {
		p.Code = *body.Code
	}
	if body.Amount != nil {
		p.Amount = *body.Amount
	}

	c, err := h.coupons.Create(ctx, p)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeCoupon(w, http.StatusCreated, "Coupon "+c.Code+" Created Successfully", c)
}

// AllCoupons handles GET /api/payment/coupon/all.
func (h *Handler) AllCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	coupons, err := h.coupons.List(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.FieldStart("coupons")
	e.ArrStart()
	for i := range coupons {
		encodeCoupon(&e, &coupons[i])
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}

// GetCoupon handles GET /api/payment/coupon/{id}.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := h.coupons.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeCoupon(w, http.StatusOK, "", c)
}

// UpdateCoupon handles PUT /api/payment/coupon/{id}.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, ok := h.couponBody(w, r)
	if !ok {
		return
	}
	c, err := h.coupons.Update(ctx, chi.URLParam(r, "id"), coupon.UpdateParams{
		Code:   body.Code,
		Amount: body.Amount,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeCoupon(w, http.StatusOK, "Coupon "+c.Code+" Updated Successfully", c)
}

// DeleteCoupon handles DELETE /api/payment/coupon/{id}.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := h.coupons.Delete(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeMessage(w, http.StatusOK, true, "Coupon "+c.Code+" Deleted Successfully")
}

func (h *Handler) couponBody(w http.ResponseWriter, r *http.Request) (couponBody, bool) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(r.Context(), w, err)
		return couponBody{}, false
	}
	body, err := decodeCoupon(data)
	if err != nil {
		writeError(r.Context(), w, errBadBody)
		return couponBody{}, false
	}
	return body, true
}

// writeCoupon writes {"success":true,"message":...,"coupon":{...}}; the
// message is omitted when empty.
func writeCoupon(w http.ResponseWriter, status int, msg string, c *coupon.Coupon) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	if msg != "" {
		e.FieldStart("message")
		e.Str(msg)
	}
	e.FieldStart("coupon")
	encodeCoupon(&e, c)
	e.ObjEnd()
	writeJSON(w, status, e.Bytes())
}
