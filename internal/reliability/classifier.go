// Package reliability classifies collaborator failures so callers and the
// HTTP surface agree on what is worth retrying.
package reliability

import "time"

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsRetryableFailureCode classifies collaborator failure codes. Quota
// exhaustion is permanent until the account changes; rate limits and
// transient transport failures clear on their own.
func IsRetryableFailureCode(code string) bool {
	switch code {
	case "rate_limited", "unexpected_disconnect", "open_failed", "transport_error":
		return true
	default:
		return false
	}
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
