package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-scout/pkg/gaode"
)

func TestFromProvider(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
	}{
		{"missing key", eris.Wrap(gaode.ErrMissingKey, "page 1"), CodeProviderKeyMissing},
		{"invalid key", &gaode.APIError{Info: "INVALID_USER_KEY", InfoCode: gaode.InfoCodeInvalidKey}, CodeProviderKeyMissing},
		{"cuqps infocode", &gaode.APIError{Info: "CUQPS_HAS_EXCEEDED_THE_LIMIT", InfoCode: gaode.InfoCodeCUQPSExceeded}, CodeProviderRateLimited},
		{"daily quota", &gaode.APIError{Info: "DAILY_QUERY_OVER_LIMIT", InfoCode: gaode.InfoCodeDailyQueryOverLimit}, CodeProviderRateLimited},
		{"limit text only", &gaode.APIError{Info: "USER_DAILY_QUERY_HAS_EXCEEDED_THE_LIMIT", InfoCode: "19999"}, CodeProviderRateLimited},
		{"invalid params", &gaode.APIError{Info: "INVALID_PARAMS", InfoCode: gaode.InfoCodeInvalidParams}, CodeProviderError},
		{"http 429", &gaode.StatusError{StatusCode: http.StatusTooManyRequests}, CodeProviderRateLimited},
		{"http 503", &gaode.StatusError{StatusCode: http.StatusServiceUnavailable}, CodeProviderUnavailable},
		{"http 504", &gaode.StatusError{StatusCode: http.StatusGatewayTimeout}, CodeProviderTimeout},
		{"http 500", &gaode.StatusError{StatusCode: http.StatusInternalServerError}, CodeProviderError},
		{"deadline", eris.Wrap(context.DeadlineExceeded, "gaode: send request"), CodeProviderTimeout},
		{"client timeout", &url.Error{Op: "Get", URL: "http://x", Err: &net.DNSError{IsTimeout: true}}, CodeProviderTimeout},
		{"dns", &url.Error{Op: "Get", URL: "http://x", Err: &net.DNSError{Err: "no such host"}}, CodeProviderUnavailable},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), CodeProviderUnavailable},
		{"fetch failed text", errors.New("fetch failed"), CodeProviderUnavailable},
		{"plain text limit", errors.New("CUQPS_HAS_EXCEEDED_THE_LIMIT"), CodeProviderRateLimited},
		{"anything else", errors.New("boom"), CodeProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromProvider(tt.err)
			assert.Equal(t, tt.code, CodeOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestFromProvider_PassThrough(t *testing.T) {
	assert.NoError(t, FromProvider(nil))

	classified := Validationf("bad input")
	assert.Same(t, classified, FromProvider(classified))

	assert.ErrorIs(t, FromProvider(context.Canceled), context.Canceled)
	assert.Equal(t, Code(""), CodeOf(FromProvider(context.Canceled)))
}

func TestFromProvider_MessageHidesRawPayload(t *testing.T) {
	raw := &gaode.StatusError{StatusCode: 500, Body: `{"secret":"payload"}`}
	err := FromProvider(raw)
	assert.NotContains(t, err.Error(), "secret")
	assert.Equal(t, "provider_error: provider returned HTTP 500", err.Error())
}

func TestIsSystemic(t *testing.T) {
	assert.True(t, IsSystemic(New(CodeProviderKeyMissing, "x")))
	assert.True(t, IsSystemic(New(CodeProviderTimeout, "x")))
	assert.True(t, IsSystemic(eris.Wrap(New(CodeProviderUnavailable, "x"), "refresh")))
	assert.False(t, IsSystemic(New(CodeProviderRateLimited, "x")))
	assert.False(t, IsSystemic(New(CodeProviderError, "x")))
	assert.False(t, IsSystemic(errors.New("plain")))
	assert.False(t, IsSystemic(nil))
	assert.False(t, IsSystemic(NotFoundf("planning point %s", "x")))
}

func TestErrorStatusAndRetryable(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeProviderKeyMissing, 503, false},
		{CodeProviderRateLimited, 429, true},
		{CodeProviderUnavailable, 503, true},
		{CodeProviderTimeout, 504, true},
		{CodeProviderError, 502, false},
		{CodeValidation, 400, false},
		{CodeStorage, 500, false},
		{CodeNotFound, 404, false},
		{Code("other"), 500, false},
	}
	for _, tt := range tests {
		e := New(tt.code, "m")
		assert.Equal(t, tt.status, e.Status(), tt.code)
		assert.Equal(t, tt.retryable, e.Retryable(), tt.code)
	}
}

func TestIs(t *testing.T) {
	err := Wrap(errors.New("disk full"), CodeStorage, "save analysis")
	require.True(t, Is(err, CodeStorage))
	assert.False(t, Is(err, CodeValidation))
	assert.False(t, Is(nil, CodeStorage))
	assert.Equal(t, "storage_error: save analysis", err.Error())
}
