package handler

import (
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/apperr"
	"github.com/xenking/kart-checkout/internal/domain/coupon"
	"github.com/xenking/kart-checkout/internal/domain/pricing"
)

var errBadBody = apperr.Validation("invalid request body")

type itemBody struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type shippingBody struct {
	Address string `json:"address" validate:"required"`
	PinCode string `json:"pinCode" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Country string `json:"country" validate:"required"`
}

type paymentBody struct {
	Items        []itemBody    `json:"items" validate:"dive"`
	ShippingInfo *shippingBody `json:"shippingInfo" validate:"omitempty"`
	Coupon       string        `json:"coupon"`
}

type couponBody struct {
	Code   *string
	Amount *decimal.Decimal
}

// readBody reads at most maxBodyBytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errBadBody
	}
	return data, nil
}

func decodePayment(data []byte) (paymentBody, error) {
	var body paymentBody
	err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeItem(d)
				if err != nil {
					return err
				}
				body.Items = append(body.Items, item)
				return nil
			})
		case "shippingInfo":
			if d.Next() == jx.Null {
				return d.Null()
			}
			s, err := decodeShipping(d)
			if err != nil {
				return err
			}
			body.ShippingInfo = &s
			return nil
		case "coupon":
			v, err := optString(d)
			body.Coupon = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return paymentBody{}, errors.Wrap(err, "decode payment request")
	}
	return body, nil
}

func decodeItem(d *jx.Decoder) (itemBody, error) {
	var item itemBody
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "productId":
			v, err := scalarString(d)
			item.ProductID = v
			return err
		case "quantity":
			v, err := d.Int()
			item.Quantity = v
			return err
		default:
			return d.Skip()
		}
	})
	return item, err
}

func decodeShipping(d *jx.Decoder) (shippingBody, error) {
	var s shippingBody
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var dst *string
		switch string(key) {
		case "address":
			dst = &s.Address
		case "pinCode":
			dst = &s.PinCode
		case "city":
			dst = &s.City
		case "state":
			dst = &s.State
		case "country":
			dst = &s.Country
		default:
			return d.Skip()
		}
		v, err := scalarString(d)
		*dst = v
		return err
	})
	return s, err
}

func decodeCoupon(data []byte) (couponBody, error) {
	var body couponBody
	err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "code":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return err
			}
			body.Code = &v
			return nil
		case "amount":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := decimalValue(d)
			if err != nil {
				return err
			}
			body.Amount = &v
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return couponBody{}, errors.Wrap(err, "decode coupon request")
	}
	return body, nil
}

// scalarString accepts a JSON string or number; pin codes and product ids
// arrive as either.
func scalarString(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		return n.String(), err
	case jx.Null:
		return "", d.Null()
	default:
		return d.Str()
	}
}

func optString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// decimalValue accepts a JSON number or a numeric string.
func decimalValue(d *jx.Decoder) (decimal.Decimal, error) {
	raw, err := scalarString(d)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (b paymentBody) lineItems() []pricing.LineItem {
	items := make([]pricing.LineItem, len(b.Items))
	for i, item := range b.Items {
		items[i] = pricing.LineItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return items
}

// newValidator reports field names by their JSON tag.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns validator output into a single Validation error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errBadBody
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "paymentBody.")
	return apperr.Validation(field + " is " + fe.Tag())
}

func writeMessage(w http.ResponseWriter, status int, success bool, msg string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(success)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.String()))
}

func encodeCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("code")
	e.Str(c.Code)
	e.FieldStart("amount")
	encodeDecimal(e, c.Amount)
	e.FieldStart("createdAt")
	e.Str(c.CreatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("updatedAt")
	e.Str(c.UpdatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}

func encodeBreakdown(e *jx.Encoder, b pricing.Breakdown) {
	e.ObjStart()
	e.FieldStart("subtotal")
	encodeDecimal(e, b.Subtotal)
	e.FieldStart("tax")
	encodeDecimal(e, b.Tax)
	e.FieldStart("shipping")
	encodeDecimal(e, b.Shipping)
	e.FieldStart("discount")
	encodeDecimal(e, b.Discount)
	e.FieldStart("total")
	encodeDecimal(e, b.Total)
	e.ObjEnd()
}
