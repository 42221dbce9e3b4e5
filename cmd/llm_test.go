package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/kahani/internal/store"
)

func TestPrintUsage_CostsAndUnpricedModels(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf,
		[]store.LLMUsage{
			{Purpose: "passage-generate", Calls: 2, InputTokens: 900_000, OutputTokens: 0, AvgLatencyMs: 1200},
			{Purpose: "passage-validate", Calls: 1, InputTokens: 100_000, OutputTokens: 0, AvgLatencyMs: 800},
		},
		[]store.LLMUsage{
			{Model: "gpt-4.1", Calls: 3, InputTokens: 1_000_000},
			{Model: "mock", Calls: 1},
		},
	)
	out := buf.String()

	for _, want := range []string{"passage-generate", "passage-validate", "$2.00", "TOTAL (partial)", "Pricing unavailable for: mock"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "1000000") {
		t.Errorf("total input tokens not summed:\n%s", out)
	}
}

func TestPrintUsage_Empty(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf, nil, nil)
	if got := buf.String(); got != "No LLM usage recorded yet.\n" {
		t.Errorf("got %q", got)
	}
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	printEvent(&buf, &store.LLMRequestEvent{
		ID:        7,
		Timestamp: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		LLMRequestEventData: store.LLMRequestEventData{
			Provider:     "anthropic",
			Model:        "claude-haiku-4-5",
			Purpose:      "passage-generate",
			Success:      false,
			ErrorMessage: "rate limited",
			RequestBody:  "SYSTEM: write a story",
		},
	})
	out := buf.String()

	for _, want := range []string{"ID:        7", "Purpose:   passage-generate", "Error:     rate limited", "✗", "SYSTEM: write a story", "(not captured)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintEventTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	printEventTable(&buf, nil)
	if !strings.Contains(buf.String(), "No LLM events found.") {
		t.Errorf("got %q", buf.String())
	}
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"google/gemini-2.5-flash", 6, "google"},
		{"बाज़ार में", 4, "बाज़"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
