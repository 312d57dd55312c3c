package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/apperr"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the error envelope for err. Errors without a kind are
// logged and reported generically.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	lg := zctx.From(ctx)

	msg := apperr.Message(err)
	switch kind {
	case apperr.KindInternal:
		lg.Error("Request failed", zap.Error(err))
		msg = "internal server error"
	case apperr.KindUpstream:
		lg.Warn("Upstream failure", zap.Error(err))
	}
	writeMessage(w, status, false, msg)
}
