package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsError(t *testing.T) {
	t.Parallel()

	e, ok := AsError(fmt.Errorf("wrapped: %w", New(CodeNoTokenFound, "none")))
	assert.True(t, ok)
	assert.Equal(t, CodeNoTokenFound, e.Code)

	_, ok = AsError(errors.New("plain"))
	assert.False(t, ok)

	_, ok = AsError(nil)
	assert.False(t, ok)
}

func TestHasCode(t *testing.T) {
	t.Parallel()
	err := New(CodeMalformedAuthHeader, "bad header")

	assert.True(t, HasCode(err, CodeMalformedAuthHeader))
	assert.False(t, HasCode(err, CodeNoTokenFound))
	assert.False(t, HasCode(nil, CodeNoTokenFound))
	assert.Equal(t, Code(""), GetCode(errors.New("plain")))
}

func TestCategoryChecks(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"validation", New(CodeMissingCredentials, ""), IsValidation, true},
		{"authentication", New(CodeTokenAcquisitionFailed, ""), IsAuthentication, true},
		{"authentication is not authorization", New(CodeNoTokenFound, ""), IsAuthorization, false},
		{"authorization", New(CodeAuthorizationInsufficientScope, ""), IsAuthorization, true},
		{"not found", New(CodeNotFound, ""), IsNotFound, true},
		{"internal", New(CodeInternalCache, ""), IsInternal, true},
		{"unavailable", New(CodeCertificateUnavailable, ""), IsUnavailable, true},
		{"timeout", New(CodeTimeoutCache, ""), IsTimeout, true},
		{"plain error", errors.New("x"), IsInternal, false},
		{"nil", nil, IsValidation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	assert.True(t, IsRetryable(New(CodeTimeoutDependency, "")))
	assert.True(t, IsRetryable(New(CodeCertificateUnavailable, "")))
	assert.False(t, IsRetryable(New(CodeTokenAcquisitionFailed, "")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestIsClientAndServerError(t *testing.T) {
	t.Parallel()
	assert.True(t, IsClientError(New(CodeNoTokenFound, "")))
	assert.False(t, IsServerError(New(CodeNoTokenFound, "")))
	assert.True(t, IsServerError(New(CodeInternalCache, "")))
	assert.False(t, IsClientError(New(CodeInternalCache, "")))
	assert.False(t, IsClientError(errors.New("plain")))
	assert.False(t, IsServerError(nil))
}
