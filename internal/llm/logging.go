package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/store"
)

// LoggingProvider is a decorator that records every LLM request as an
// event and emits a structured log line per call.
type LoggingProvider struct {
	inner     Provider
	provider  string
	eventRepo store.EventRepo
	log       *logger.Logger
}

// WithLogging wraps a Provider with event logging. A nil repo skips event
// persistence; a nil logger is replaced with a no-op one.
func WithLogging(p Provider, provider string, repo store.EventRepo, log *logger.Logger) Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &LoggingProvider{inner: p, provider: provider, eventRepo: repo, log: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	latencyMs := time.Since(start).Milliseconds()

	data := store.LLMRequestEventData{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   latencyMs,
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
		data.ResponseBody = resp.Text
	}

	if err != nil {
		data.ErrorMessage = err.Error()
		l.log.Warn("llm request failed",
			"provider", l.provider,
			"model", data.Model,
			"purpose", purpose,
			"latency_ms", latencyMs,
			"error", err,
		)
	} else {
		l.log.Info("llm request",
			"provider", l.provider,
			"model", data.Model,
			"purpose", purpose,
			"latency_ms", latencyMs,
			"input_tokens", data.InputTokens,
			"output_tokens", data.OutputTokens,
		)
	}

	if l.eventRepo != nil {
		// Event persistence must not fail the request. Use a detached
		// context so cancelled calls are still recorded.
		if logErr := l.eventRepo.AppendLLMRequest(context.WithoutCancel(ctx), data); logErr != nil {
			l.log.Warn("failed to record llm request event", "error", logErr)
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	if req.JSON {
		b.WriteString("[format: json]\n")
	}

	return b.String()
}
