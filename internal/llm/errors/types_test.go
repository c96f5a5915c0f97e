package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyErrorType(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   ErrorType
	}{
		{name: "rate limit code wins", status: http.StatusBadRequest, code: "rate_limit_exceeded", want: ErrorTypeRateLimit},
		{name: "quota code", status: http.StatusForbidden, code: "insufficient_quota", want: ErrorTypeQuota},
		{name: "429 status", status: http.StatusTooManyRequests, want: ErrorTypeRateLimit},
		{name: "401 status", status: http.StatusUnauthorized, want: ErrorTypeAuth},
		{name: "400 status", status: http.StatusBadRequest, want: ErrorTypeValidation},
		{name: "504 status", status: http.StatusGatewayTimeout, want: ErrorTypeTimeout},
		{name: "503 status", status: http.StatusServiceUnavailable, want: ErrorTypeProvider},
		{name: "599 status", status: 599, want: ErrorTypeProvider},
		{name: "418 status", status: http.StatusTeapot, want: ErrorTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyErrorType(tt.status, tt.code))
		})
	}
}

func TestProviderError(t *testing.T) {
	err := &ProviderError{Provider: "openai", StatusCode: 503, Message: "overloaded", Type: ErrorTypeProvider}
	assert.Equal(t, "openai error (status 503): overloaded", err.Error())
	assert.True(t, err.IsTransient())

	auth := &ProviderError{Provider: "google", StatusCode: 401, Type: ErrorTypeAuth}
	assert.False(t, auth.IsTransient())
}
