package llm

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/kahani/internal/store"
)

func openEventStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWithLogging_RecordsSuccessfulCall(t *testing.T) {
	s := openEventStore(t)
	mock := NewMockProvider(MockResponse{Text: `{"title":"x"}`, Usage: Usage{InputTokens: 12, OutputTokens: 7}})
	p := WithLogging(mock, "mock", s.EventRepo(), nil)

	ctx := WithPurpose(context.Background(), "passage-generate")
	if _, err := p.Generate(ctx, Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "write"}}, JSON: true}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	events, err := s.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Purpose != "passage-generate" || e.Provider != "mock" || e.Model != "mock" {
		t.Fatalf("unexpected event identity: %+v", e)
	}
	if !e.Success || e.InputTokens != 12 || e.OutputTokens != 7 {
		t.Fatalf("unexpected usage: %+v", e)
	}
	if e.ResponseBody != `{"title":"x"}` {
		t.Fatalf("response body = %q", e.ResponseBody)
	}
	for _, want := range []string{"[system]\nsys", "[user]\nwrite", "[format: json]"} {
		if !strings.Contains(e.RequestBody, want) {
			t.Fatalf("request body %q missing %q", e.RequestBody, want)
		}
	}
}

func TestWithLogging_RecordsFailure(t *testing.T) {
	s := openEventStore(t)
	mock := NewMockProvider(MockResponse{Err: &ErrQuotaExhausted{}})
	p := WithLogging(mock, "mock", s.EventRepo(), nil)

	if _, err := p.Generate(context.Background(), Request{}); !IsQuota(err) {
		t.Fatalf("expected quota error to pass through, got %v", err)
	}

	events, _ := s.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Success || events[0].ErrorMessage == "" {
		t.Fatalf("failure not recorded: %+v", events[0])
	}
	if events[0].Purpose != "unknown" {
		t.Fatalf("purpose = %q, want default", events[0].Purpose)
	}
}

func TestWithLogging_RecordsCancelledCall(t *testing.T) {
	s := openEventStore(t)
	mock := NewMockProviderFunc(func(ctx context.Context, _ Request) (*Response, error) {
		return nil, ctx.Err()
	})
	p := WithLogging(mock, "mock", s.EventRepo(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Generate(ctx, Request{}); err == nil {
		t.Fatal("expected cancellation error")
	}

	events, _ := s.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{})
	if len(events) != 1 {
		t.Fatalf("cancelled call should still be recorded, got %d events", len(events))
	}
}

func TestWithLogging_NilRepo(t *testing.T) {
	p := WithLogging(NewMockProvider(MockResponse{Text: "ok"}), "mock", nil, nil)
	resp, err := p.Generate(context.Background(), Request{})
	if err != nil || resp.Text != "ok" {
		t.Fatalf("Generate = %v, %v", resp, err)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("ModelID = %q", p.ModelID())
	}
}
