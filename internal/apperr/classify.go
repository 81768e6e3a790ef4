package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sells-group/site-scout/internal/resilience"
	"github.com/sells-group/site-scout/pkg/gaode"
)

// FromProvider translates an error returned by the POI provider into the
// taxonomy. Errors that are already classified pass through unchanged, as do
// nil and caller cancellation.
func FromProvider(err error) error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, gaode.ErrMissingKey) {
		return Wrap(err, CodeProviderKeyMissing, "gaode api key is not configured")
	}

	var apiErr *gaode.APIError
	if errors.As(err, &apiErr) {
		return fromAPIError(err, apiErr)
	}

	var statusErr *gaode.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests:
			return Wrap(err, CodeProviderRateLimited, "provider rate limit exceeded")
		case http.StatusServiceUnavailable:
			return Wrap(err, CodeProviderUnavailable, "provider service unavailable")
		case http.StatusGatewayTimeout:
			return Wrap(err, CodeProviderTimeout, "provider request timed out")
		}
		return Wrap(err, CodeProviderError, fmt.Sprintf("provider returned HTTP %d", statusErr.StatusCode))
	}

	// Timeouts first: a timed out request is also a transport failure.
	if resilience.IsTimeout(err) {
		return Wrap(err, CodeProviderTimeout, "provider request timed out")
	}
	if resilience.IsNetworkFailure(err) {
		return Wrap(err, CodeProviderUnavailable, "provider is unreachable")
	}
	if isRateLimitText(err.Error()) {
		return Wrap(err, CodeProviderRateLimited, "provider rate limit exceeded")
	}

	return Wrap(err, CodeProviderError, "provider request failed")
}

func fromAPIError(err error, apiErr *gaode.APIError) error {
	switch apiErr.InfoCode {
	case gaode.InfoCodeInvalidKey, gaode.InfoCodeInvalidUserIP:
		return Wrap(err, CodeProviderKeyMissing, "gaode api key is not usable: "+apiErr.Info)
	case gaode.InfoCodeDailyQueryOverLimit,
		gaode.InfoCodeAccessTooFrequent,
		gaode.InfoCodeServiceOverLimit,
		gaode.InfoCodeCQPSExceeded,
		gaode.InfoCodeCKQPSExceeded,
		gaode.InfoCodeCUQPSExceeded:
		return Wrap(err, CodeProviderRateLimited, "provider rate limit exceeded: "+apiErr.Info)
	}
	if isRateLimitText(apiErr.Info) {
		return Wrap(err, CodeProviderRateLimited, "provider rate limit exceeded: "+apiErr.Info)
	}

	msg := apiErr.Info
	if msg == "" {
		msg = "unknown upstream error"
	}
	return Wrap(err, CodeProviderError, "provider error: "+msg)
}

func isRateLimitText(s string) bool {
	s = strings.ToUpper(s)
	return strings.Contains(s, "EXCEEDED_THE_LIMIT") ||
		strings.Contains(s, "CUQPS") ||
		strings.Contains(s, "OVER_LIMIT") ||
		strings.Contains(s, "TOO_FREQUENT")
}
