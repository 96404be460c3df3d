package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "rate_limit error (code 429): slow down", New(ErrorTypeRateLimit, 429, "slow %s", "down").Error())
	assert.Equal(t, "network error: dial: refused", Wrap(ErrorTypeNetwork, 0, stderrors.New("refused"), "dial").Error())
}

func TestTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("page 3: %w", New(ErrorTypeParsing, 200, "bad json"))

	assert.Equal(t, ErrorTypeParsing, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(nil))
}

func TestWrapUnwraps(t *testing.T) {
	err := Wrap(ErrorTypeNetwork, 0, context.DeadlineExceeded, "request failed")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTypeForStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{200, ""},
		{304, ""},
		{400, ErrorTypeUnknown},
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{404, ErrorTypeNotFound},
		{429, ErrorTypeRateLimit},
		{500, ErrorTypeServerError},
		{524, ErrorTypeServerError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, TypeForStatus(tt.code))
		})
	}
}
