package apperr

import (
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "validation", err: Validation("items required"), want: KindValidation},
		{name: "authentication", err: Authentication("please login first"), want: KindAuthentication},
		{name: "not found", err: NotFound("coupon not found"), want: KindNotFound},
		{name: "upstream", err: Upstream(errors.New("card declined")), want: KindUpstream},
		{name: "wrapped", err: fmt.Errorf("create coupon: %w", Validation("code required")), want: KindValidation},
		{name: "plain error", err: errors.New("boom"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestUpstream_KeepsMessageVerbatim(t *testing.T) {
	cause := errors.New("Your card was declined.")
	err := Upstream(cause)

	require.Error(t, err)
	assert.Equal(t, "Your card was declined.", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Your card was declined.", Message(err))
}

func TestUpstream_Nil(t *testing.T) {
	assert.NoError(t, Upstream(nil))
}

func TestUpstream_NoDoubleWrap(t *testing.T) {
	first := Upstream(errors.New("db down"))
	second := Upstream(first)
	assert.Same(t, first, second)
}

func TestError_Message(t *testing.T) {
	sentinel := NotFound("coupon not found")
	wrapped := fmt.Errorf("lookup: %w", sentinel)

	assert.ErrorIs(t, wrapped, sentinel)
	assert.Equal(t, "coupon not found", Message(wrapped))
	assert.Equal(t, "lookup: coupon not found", wrapped.Error())
}
