package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrQuotaExhausted indicates the account is out of credit or quota.
// Retrying will not help until billing is fixed.
type ErrQuotaExhausted struct {
	Err error
}

func (e *ErrQuotaExhausted) Error() string {
	return fmt.Sprintf("LLM quota exhausted: %v", e.Err)
}

func (e *ErrQuotaExhausted) Unwrap() error { return e.Err }

// ErrUnauthenticated indicates the provider rejected the credentials.
type ErrUnauthenticated struct {
	Err error
}

func (e *ErrUnauthenticated) Error() string {
	return fmt.Sprintf("LLM authentication failed: %v", e.Err)
}

func (e *ErrUnauthenticated) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the provider answered without usable text.
type ErrInvalidResponse struct {
	Err error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// IsTransient reports whether err is a failure worth retrying later:
// rate limiting or an unavailable provider.
func IsTransient(err error) bool {
	var rl *ErrRateLimit
	var unavail *ErrProviderUnavailable
	return errors.As(err, &rl) || errors.As(err, &unavail)
}

// IsQuota reports whether err is a quota or billing failure.
func IsQuota(err error) bool {
	var q *ErrQuotaExhausted
	return errors.As(err, &q)
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var a *ErrUnauthenticated
	return errors.As(err, &a)
}

var quotaMarkers = []string{
	"credit balance",
	"insufficient_quota",
	"billing",
	"exceeded your current quota",
	"payment required",
}

// classifyHTTPError maps a provider status code and message onto the
// error categories above. Context errors pass through untouched.
func classifyHTTPError(status int, message string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	lower := strings.ToLower(message)
	for _, m := range quotaMarkers {
		if strings.Contains(lower, m) {
			return &ErrQuotaExhausted{Err: err}
		}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ErrUnauthenticated{Err: err}
	case status == http.StatusPaymentRequired:
		return &ErrQuotaExhausted{Err: err}
	case status == http.StatusTooManyRequests:
		return &ErrRateLimit{Err: err}
	default:
		return &ErrProviderUnavailable{Err: err}
	}
}
