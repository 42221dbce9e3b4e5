package storygen

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/abhisek/kahani/internal/docparse"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/passage"
)

// validationReport is the validator's response.
type validationReport struct {
	HasIssues            bool                 `json:"has_issues"`
	Issues               []string             `json:"issues"`
	CorrectedScript      string               `json:"corrected_script"`
	CorrectedRomanized   string               `json:"corrected_romanized"`
	CorrectedTranslation string               `json:"corrected_translation"`
	Sentences            []sentenceCorrection `json:"sentences"`
}

type sentenceCorrection struct {
	Index       int    `json:"index"`
	Changed     bool   `json:"changed"`
	Script      string `json:"script"`
	Romanized   string `json:"romanized"`
	Translation string `json:"translation"`
}

// validatePassage runs the corrective pass over doc and merges the result
// in place. Provider or parse failures are logged and the document is kept
// as is; only cancellation of ctx is returned.
func (s *Service) validatePassage(ctx context.Context, doc *passage.Document, tier lexicon.Tier, topic string) error {
	ctx, span := tracer.Start(ctx, "storygen.validate")
	defer span.End()

	req := BuildValidateRequest(s.cfg.Language, tier, topic, *doc, s.cfg)
	resp, err := s.invoke(ctx, PurposeValidate, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn("validation pass skipped", "error", err)
		return nil
	}

	var report validationReport
	if err := docparse.Decode(resp.Text, ValidationSchema, &report); err != nil {
		var se *docparse.SchemaError
		s.log.Warn("validation response unusable", "error", err, "schema_violation", errors.As(err, &se))
		return nil
	}

	changed := mergeCorrections(doc, report)
	span.SetAttributes(
		attribute.Bool("validation.has_issues", report.HasIssues),
		attribute.Int("validation.sentences_changed", changed),
	)
	if report.HasIssues {
		s.log.Info("validation corrected passage", "issues", len(report.Issues), "sentences_changed", changed)
	}
	return nil
}

// mergeCorrections applies report to doc and returns the number of
// sentences rewritten. Nothing changes unless the report has issues. Full
// texts are replaced only by non-empty corrections; sentences flagged as
// changed are matched by index and only their three text fields are
// replaced, leaving annotations and grammar notes alone.
func mergeCorrections(doc *passage.Document, report validationReport) int {
	if !report.HasIssues {
		return 0
	}
	if report.CorrectedScript != "" {
		doc.ContentScript = report.CorrectedScript
	}
	if report.CorrectedRomanized != "" {
		doc.ContentRomanized = report.CorrectedRomanized
	}
	if report.CorrectedTranslation != "" {
		doc.ContentTranslation = report.CorrectedTranslation
	}

	byIndex := make(map[int]int, len(doc.Sentences))
	for i, s := range doc.Sentences {
		byIndex[s.Index] = i
	}

	changed := 0
	for _, c := range report.Sentences {
		if !c.Changed {
			continue
		}
		i, ok := byIndex[c.Index]
		if !ok {
			continue
		}
		s := &doc.Sentences[i]
		if c.Script != "" {
			s.Script = c.Script
		}
		if c.Romanized != "" {
			s.Romanized = c.Romanized
		}
		if c.Translation != "" {
			s.Translation = c.Translation
		}
		changed++
	}
	return changed
}
