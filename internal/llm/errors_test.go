package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassifyHTTPError(t *testing.T) {
	base := errors.New("upstream")
	tests := []struct {
		name      string
		status    int
		message   string
		err       error
		transient bool
		quota     bool
		auth      bool
	}{
		{name: "rate limit", status: http.StatusTooManyRequests, message: "slow down", err: base, transient: true},
		{name: "server error", status: http.StatusInternalServerError, err: base, transient: true},
		{name: "network", status: 0, err: base, transient: true},
		{name: "unauthorized", status: http.StatusUnauthorized, err: base, auth: true},
		{name: "forbidden", status: http.StatusForbidden, err: base, auth: true},
		{name: "payment required", status: http.StatusPaymentRequired, err: base, quota: true},
		{name: "credit balance", status: http.StatusBadRequest, message: "Your credit balance is too low", err: base, quota: true},
		{name: "openai quota on 429", status: http.StatusTooManyRequests, message: "insufficient_quota You exceeded your current quota", err: base, quota: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyHTTPError(tt.status, tt.message, tt.err)
			if IsTransient(got) != tt.transient {
				t.Errorf("IsTransient = %v, want %v (%T)", IsTransient(got), tt.transient, got)
			}
			if IsQuota(got) != tt.quota {
				t.Errorf("IsQuota = %v, want %v (%T)", IsQuota(got), tt.quota, got)
			}
			if IsAuth(got) != tt.auth {
				t.Errorf("IsAuth = %v, want %v (%T)", IsAuth(got), tt.auth, got)
			}
			if !errors.Is(got, base) {
				t.Errorf("classified error does not wrap the original")
			}
		})
	}
}

func TestClassifyHTTPError_ContextPassesThrough(t *testing.T) {
	err := fmt.Errorf("post: %w", context.DeadlineExceeded)
	got := classifyHTTPError(0, "", err)
	if got != err {
		t.Fatalf("expected the context error untouched, got %T", got)
	}
}

func TestClassifyGeminiError(t *testing.T) {
	base := errors.New("gemini")

	got := classifyGeminiError(429, "RESOURCE_EXHAUSTED", "You exceeded your current quota, please check your plan", base)
	if !IsQuota(got) {
		t.Fatalf("expected quota error, got %T", got)
	}

	got = classifyGeminiError(429, "RESOURCE_EXHAUSTED", "Quota exceeded for requests per minute", base)
	if IsQuota(got) || !IsTransient(got) {
		t.Fatalf("per-minute limits are rate limits, got %T", got)
	}
}
