package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/kart-checkout/internal/domain/apperr"
	"github.com/xenking/kart-checkout/internal/domain/checkout"
	"github.com/xenking/kart-checkout/internal/domain/coupon"
	"github.com/xenking/kart-checkout/internal/domain/pricing"
)

// --- Mock implementations ---

type mockCheckout struct {
	auth *checkout.Authorization
	err  error
	last checkout.Request
}

func (m *mockCheckout) Authorize(_ context.Context, req checkout.Request) (*checkout.Authorization, error) {
	m.last = req
	return m.auth, m.err
}

type mockCoupons struct {
	coupon     *coupon.Coupon
	list       []coupon.Coupon
	err        error
	lastCode   string
	lastID     string
	lastCreate coupon.CreateParams
	lastUpdate coupon.UpdateParams
}

func (m *mockCoupons) FindDiscount(_ context.Context, code string) (*coupon.Coupon, error) {
	m.lastCode = code
	return m.coupon, m.err
}

func (m *mockCoupons) Create(_ context.Context, p coupon.CreateParams) (*coupon.Coupon, error) {
	m.lastCreate = p
	return m.coupon, m.err
}

func (m *mockCoupons) Get(_ context.Context, id string) (*coupon.Coupon, error) {
	m.lastID = id
	return m.coupon, m.err
}

func (m *mockCoupons) List(_ context.Context) ([]coupon.Coupon, error) {
	return m.list, m.err
}

func (m *mockCoupons) Update(_ context.Context, id string, p coupon.UpdateParams) (*coupon.Coupon, error) {
	m.lastID = id
	m.lastUpdate = p
	return m.coupon, m.err
}

func (m *mockCoupons) Delete(_ context.Context, id string) (*coupon.Coupon, error) {
	m.lastID = id
	return m.coupon, m.err
}

// --- Helpers ---

func newTestHandler(t *testing.T, co *mockCheckout, cp *mockCoupons) http.Handler {
	t.Helper()
	if co == nil {
		co = &mockCheckout{}
	}
	if cp == nil {
		cp = &mockCoupons{}
	}
	h, err := NewHandler(co, cp, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return h.Routes()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

var stamp = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func sampleCoupon() *coupon.Coupon {
	return &coupon.Coupon{
		ID:        "7f9c24e8-3b1a-4c5e-9d2f-0a1b2c3d4e5f",
		Code:      "SAVE10",
		Amount:    decimal.NewFromInt(10),
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
}

const paymentBodyJSON = `{
	"items": [{"productId": "1", "quantity": 2}, {"productId": 3, "quantity": 1}],
	"shippingInfo": {"address": "12 MG Road", "pinCode": 560001, "city": "Bengaluru", "state": "KA", "country": "IN"},
	"coupon": "SAVE10"
}`

// --- Tests ---

func TestCreatePayment_Success(t *testing.T) {
	co := &mockCheckout{auth: &checkout.Authorization{
		ClientSecret: "pi_1_secret",
		IntentID:     "pi_1",
		CouponCode:   "SAVE10",
		Breakdown: pricing.Breakdown{
			Subtotal: decimal.NewFromInt(600),
			Tax:      decimal.NewFromInt(108),
			Shipping: decimal.NewFromInt(200),
			Discount: decimal.NewFromInt(10),
			Total:    decimal.NewFromInt(898),
		},
	}}
	h := newTestHandler(t, co, nil)

	w := do(t, h, http.MethodPost, "/api/payment/create?id=buyer-1", paymentBodyJSON)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"success": true,
		"clientSecret": "pi_1_secret",
		"paymentIntentId": "pi_1",
		"coupon": "SAVE10",
		"breakdown": {"subtotal": 600, "tax": 108, "shipping": 200, "discount": 10, "total": 898}
	}`, w.Body.String())

	assert.Equal(t, "buyer-1", co.last.BuyerID)
	assert.Equal(t, "SAVE10", co.last.CouponCode)
	assert.Equal(t, []pricing.LineItem{{ProductID: "1", Quantity: 2}, {ProductID: "3", Quantity: 1}}, co.last.Items)
	require.NotNil(t, co.last.Shipping)
	assert.Equal(t, checkout.Destination{
		AddressLine: "12 MG Road",
		PostalCode:  "560001",
		City:        "Bengaluru",
		State:       "KA",
		Country:     "IN",
	}, *co.last.Shipping)
}

func TestCreatePayment_WithoutCoupon(t *testing.T) {
	co := &mockCheckout{auth: &checkout.Authorization{
		ClientSecret: "pi_2_secret",
		IntentID:     "pi_2",
		Breakdown: pricing.Breakdown{
			Subtotal: decimal.NewFromInt(300),
			Tax:      decimal.NewFromInt(54),
			Shipping: decimal.NewFromInt(200),
			Discount: decimal.Zero,
			Total:    decimal.NewFromInt(554),
		},
	}}
	h := newTestHandler(t, co, nil)

	w := do(t, h, http.MethodPost, "/api/payment/create?id=buyer-1",
		`{"items":[{"productId":"1","quantity":1}],"shippingInfo":{"address":"a","pinCode":"1","city":"c","state":"s","country":"IN"}}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{
		"success": true,
		"clientSecret": "pi_2_secret",
		"paymentIntentId": "pi_2",
		"breakdown": {"subtotal": 300, "tax": 54, "shipping": 200, "discount": 0, "total": 554}
	}`, w.Body.String())
}

func TestCreatePayment_NoShippingReachesService(t *testing.T) {
	co := &mockCheckout{err: checkout.ErrMissingShipping}
	h := newTestHandler(t, co, nil)

	w := do(t, h, http.MethodPost, "/api/payment/create?id=b", `{"items":[{"productId":"1","quantity":1}]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, co.last.Shipping)
	assert.JSONEq(t, `{"success":false,"message":"please send shipping info"}`, w.Body.String())
}

func TestCreatePayment_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "malformed body",
			body:       `{"items":`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "invalid request body",
		},
		{
			name:       "blank shipping field",
			body:       `{"items":[{"productId":"1","quantity":1}],"shippingInfo":{"address":"a","city":"c","state":"s","country":"IN"}}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "shippingInfo.pinCode is required",
		},
		{
			name:       "blank product id",
			body:       `{"items":[{"productId":"","quantity":1}]}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "items[0].productId is required",
		},
		{
			name:       "empty items",
			body:       `{"items":[]}`,
			err:        checkout.ErrEmptyItems,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "please send items",
		},
		{
			name:       "invalid quantity",
			body:       paymentBodyJSON,
			err:        &checkout.InvalidQuantityError{ProductID: "1", Quantity: 0},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "quantity must be greater than 0 for product 1",
		},
		{
			name:       "quantity outside the integer range",
			body:       `{"items":[{"productId":"1","quantity":99999999999999999999}]}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "invalid request body",
		},
		{
			name:       "quantity over the cap",
			body:       paymentBodyJSON,
			err:        &checkout.InvalidQuantityError{ProductID: "1", Quantity: checkout.MaxQuantity + 1},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "quantity must not exceed 10000 for product 1",
		},
		{
			name:       "total too large",
			body:       paymentBodyJSON,
			err:        checkout.ErrAmountTooLarge,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "order total is too large to charge",
		},
		{
			name:       "unknown buyer",
			body:       paymentBodyJSON,
			err:        checkout.ErrBuyerNotFound,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "please login first",
		},
		{
			name:       "invalid coupon",
			body:       paymentBodyJSON,
			err:        checkout.ErrInvalidCoupon,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "invalid coupon code",
		},
		{
			name:       "processor failure verbatim",
			body:       paymentBodyJSON,
			err:        apperr.Upstream(errors.New("Your card was declined.")),
			wantStatus: http.StatusBadGateway,
			wantMsg:    "Your card was declined.",
		},
		{
			name:       "untyped failure hidden",
			body:       paymentBodyJSON,
			err:        errors.New("nil pointer somewhere"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &mockCheckout{err: tt.err}, nil)

			w := do(t, h, http.MethodPost, "/api/payment/create?id=b", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, `{"success":false,"message":"`+tt.wantMsg+`"}`, w.Body.String())
		})
	}
}

func TestApplyDiscount(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		cp := &mockCoupons{coupon: sampleCoupon()}
		h := newTestHandler(t, nil, cp)

		w := do(t, h, http.MethodGet, "/api/payment/discount?coupon=SAVE10", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"discount":10}`, w.Body.String())
		assert.Equal(t, "SAVE10", cp.lastCode)
	})

	t.Run("not found", func(t *testing.T) {
		h := newTestHandler(t, nil, &mockCoupons{err: coupon.ErrNotFound})

		w := do(t, h, http.MethodGet, "/api/payment/discount?coupon=save10", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"success":false,"message":"coupon not found"}`, w.Body.String())
	})
}

func TestNewCoupon(t *testing.T) {
	cp := &mockCoupons{coupon: sampleCoupon()}
	h := newTestHandler(t, nil, cp)

	w := do(t, h, http.MethodPost, "/api/payment/coupon/new", `{"code":"SAVE10","amount":10}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{
		"success": true,
		"message": "Coupon SAVE10 Created Successfully",
		"coupon": {
			"id": "7f9c24e8-3b1a-4c5e-9d2f-0a1b2c3d4e5f",
			"code": "SAVE10",
			"amount": 10,
			"createdAt": "2025-06-01T10:00:00Z",
			"updatedAt": "2025-06-01T10:00:00Z"
		}
	}`, w.Body.String())
	assert.Equal(t, "SAVE10", cp.lastCreate.Code)
	assert.True(t, decimal.NewFromInt(10).Equal(cp.lastCreate.Amount))
}

func TestNewCoupon_Duplicate(t *testing.T) {
	h := newTestHandler(t, nil, &mockCoupons{err: coupon.ErrDuplicateCode})

	w := do(t, h, http.MethodPost, "/api/payment/coupon/new", `{"code":"save10","amount":"5.50"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"coupon code already exists"}`, w.Body.String())
}

func TestAllCoupons(t *testing.T) {
	second := sampleCoupon()
	second.ID = "b"
	second.Code = "WELCOME"
	second.Amount = decimal.RequireFromString("2.5")
	h := newTestHandler(t, nil, &mockCoupons{list: []coupon.Coupon{*sampleCoupon(), *second}})

	w := do(t, h, http.MethodGet, "/api/payment/coupon/all", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"WELCOME","amount":2.5`)
	assert.True(t, strings.HasPrefix(w.Body.String(), `{"success":true,"coupons":[{"id":"7f9c24e8`))
}

func TestGetCoupon(t *testing.T) {
	cp := &mockCoupons{err: coupon.ErrNotFound}
	h := newTestHandler(t, nil, cp)

	w := do(t, h, http.MethodGet, "/api/payment/coupon/abc", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "abc", cp.lastID)
}

func TestUpdateCoupon(t *testing.T) {
	updated := sampleCoupon()
	updated.Amount = decimal.NewFromInt(15)
	cp := &mockCoupons{coupon: updated}
	h := newTestHandler(t, nil, cp)

	w := do(t, h, http.MethodPut, "/api/payment/coupon/"+updated.ID, `{"amount":15}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"Coupon SAVE10 Updated Successfully"`)
	assert.Equal(t, updated.ID, cp.lastID)
	assert.Nil(t, cp.lastUpdate.Code)
	require.NotNil(t, cp.lastUpdate.Amount)
	assert.True(t, decimal.NewFromInt(15).Equal(*cp.lastUpdate.Amount))
}

func TestUpdateCoupon_NothingToUpdate(t *testing.T) {
	h := newTestHandler(t, nil, &mockCoupons{err: coupon.ErrNothingToUpdate})

	w := do(t, h, http.MethodPut, "/api/payment/coupon/x", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"please provide fields to update"}`, w.Body.String())
}

func TestDeleteCoupon(t *testing.T) {
	cp := &mockCoupons{coupon: sampleCoupon()}
	h := newTestHandler(t, nil, cp)

	w := do(t, h, http.MethodDelete, "/api/payment/coupon/"+sampleCoupon().ID, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Coupon SAVE10 Deleted Successfully"}`, w.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	w := do(t, h, http.MethodGet, "/api/payment/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"route not found"}`, w.Body.String())

	w = do(t, h, http.MethodPatch, "/api/payment/create", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
