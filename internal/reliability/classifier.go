package reliability

import (
	"strings"
	"time"
)

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsResourceExhaustion reports whether an error message indicates the
// host ran out of memory or device capacity while loading a model, so
// callers can surface a distinct "close other work" condition instead
// of a generic load failure.
func IsResourceExhaustion(msg string) bool {
	m := strings.ToLower(msg)
	for _, marker := range []string{
		"out of memory",
		"oom",
		"cannot allocate",
		"allocation failed",
		"insufficient memory",
		"no space left",
		"resource exhausted",
	} {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
