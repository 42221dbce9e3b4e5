package storygen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/docparse"
	"github.com/abhisek/kahani/internal/llm"
	"github.com/abhisek/kahani/internal/passage"
)

// Purposes label provider calls in the LLM event log.
const (
	PurposeGenerate = "passage-generate"
	PurposeImport   = "passage-import"
	PurposeValidate = "passage-validate"
)

// errFallback marks failures that degrade to the empty document instead of
// reaching the caller.
var errFallback = errors.New("generation degraded")

// invoke sends req with the per-call timeout and maps provider failures:
// quota, rate limiting and outages become ErrTemporarilyUnavailable,
// credential failures become ErrServiceMisconfigured, and a per-call timeout
// or an unusable response is wrapped in errFallback. Cancellation of the
// caller's context is returned as is.
func (s *Service) invoke(ctx context.Context, purpose string, req llm.Request) (*llm.Response, error) {
	ctx, span := tracer.Start(ctx, "storygen.invoke")
	defer span.End()
	span.SetAttributes(attribute.String("llm.purpose", purpose))

	callCtx, cancel := context.WithTimeout(llm.WithPurpose(ctx, purpose), s.cfg.Timeout)
	defer cancel()

	resp, err := s.provider.Generate(callCtx, req)
	if err == nil {
		span.SetAttributes(
			attribute.String("llm.model", resp.Model),
			attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
		)
		return resp, nil
	}
	span.RecordError(err)
	return nil, mapInvokeError(ctx, err)
}

func mapInvokeError(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	var invalid *llm.ErrInvalidResponse
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: provider call timed out: %w", errFallback, err)
	case errors.As(err, &invalid):
		return fmt.Errorf("%w: %w", errFallback, err)
	case llm.IsAuth(err):
		return fmt.Errorf("%w: %w", apperr.ErrServiceMisconfigured, err)
	default:
		// Quota, rate limiting, outages and anything unclassified.
		return fmt.Errorf("%w: %w", apperr.ErrTemporarilyUnavailable, err)
	}
}

// parseDocument turns model output into a ParseResult. Any extraction,
// decoding or schema failure yields the fallback.
func parseDocument(raw string) passage.ParseResult {
	var doc passage.Document
	if err := docparse.Decode(raw, PassageSchema, &doc); err != nil {
		return passage.Fallback(err)
	}
	normalizeDocument(&doc)
	return passage.Ok(doc)
}

// normalizeDocument trims annotation surfaces and replaces nil slices so
// stored documents are uniform.
func normalizeDocument(doc *passage.Document) {
	if doc.CharactersUsed == nil {
		doc.CharactersUsed = []passage.CharacterUse{}
	}
	if doc.Sentences == nil {
		doc.Sentences = []passage.Sentence{}
	}
	if doc.Exercises == nil {
		doc.Exercises = []passage.ExerciseDraft{}
	}
	for i := range doc.Sentences {
		words := doc.Sentences[i].Words
		if words == nil {
			doc.Sentences[i].Words = []passage.WordAnnotation{}
		}
		for j := range words {
			words[j].Surface = strings.TrimSpace(words[j].Surface)
		}
	}
}
