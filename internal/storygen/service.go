// Package storygen produces reading passages adapted to one learner: it
// assembles learner context, asks the model for an annotated passage,
// repairs and audits the output, reconciles proposed vocabulary against the
// dictionary and stores the result.
package storygen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/level"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/llm"
	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/passage"
	"github.com/abhisek/kahani/internal/store"
)

var tracer = otel.Tracer("github.com/abhisek/kahani/internal/storygen")

// MaxImportRunes bounds learner-supplied import text.
const MaxImportRunes = 10000

// topics are suggested in rotation by Ready.
var topics = []string{
	"daily life", "family", "food and cooking", "the market", "travel",
	"school", "weather", "festivals", "friends", "work",
}

// Service generates and imports passages.
type Service struct {
	store      store.TxRepos
	provider   llm.Provider
	assembler  *Assembler
	reconciler *Reconciler
	levels     level.Policy
	cfg        Config
	log        *logger.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLevelPolicy overrides the tier breakpoints.
func WithLevelPolicy(p level.Policy) Option {
	return func(s *Service) { s.levels = p }
}

// NewService creates a Service.
func NewService(st store.TxRepos, provider llm.Provider, cfg Config, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		store:      st,
		provider:   provider,
		assembler:  NewAssembler(st, cfg),
		reconciler: NewReconciler(st.Words(), st.LearnerWords(), log),
		levels:     level.DefaultPolicy,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GenerateInput is a request for a new passage.
type GenerateInput struct {
	LearnerID      string
	Topic          string
	Tier           lexicon.Tier // empty means estimate from known words
	IncludeWordIDs []string
	FocusGrammarID string
}

// ImportInput is a request to annotate learner-supplied text.
type ImportInput struct {
	LearnerID string
	Text      string
	Topic     string
	Tier      lexicon.Tier
}

// Result is a stored passage with its exercises.
type Result struct {
	Passage    store.Passage
	Exercises  []store.Exercise
	Characters []store.PassageCharacter

	// Fallback is set when the model output was unusable and the empty
	// document was stored instead.
	Fallback bool
}

// Readiness reports whether enough unseen vocabulary exists at the
// learner's tier to make a new passage worthwhile.
type Readiness struct {
	Ready          bool
	Tier           lexicon.Tier
	KnownWords     int
	NewWords       int
	SuggestedTopic string
}

// Ready estimates readiness for the learner.
func (s *Service) Ready(ctx context.Context, learnerID string) (Readiness, error) {
	known, err := s.knownCount(ctx, learnerID)
	if err != nil {
		return Readiness{}, err
	}
	tier := s.levels.Estimate(known)

	unseen, err := s.store.Words().Unseen(ctx, learnerID, tier, s.cfg.MaxNewWords)
	if err != nil {
		return Readiness{}, fmt.Errorf("unseen words: %w", err)
	}
	passages, err := s.store.Passages().List(ctx, store.PassageFilter{LearnerID: learnerID})
	if err != nil {
		return Readiness{}, fmt.Errorf("list passages: %w", err)
	}

	return Readiness{
		Ready:          len(unseen) >= s.cfg.ReadyThreshold,
		Tier:           tier,
		KnownWords:     known,
		NewWords:       len(unseen),
		SuggestedTopic: topics[len(passages)%len(topics)],
	}, nil
}

// Generate produces, audits, reconciles and stores a new passage.
// Provider quota and availability failures return
// apperr.ErrTemporarilyUnavailable and store nothing. Unusable output or a
// timed-out call stores the empty fallback document.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "storygen.generate")
	defer func() { endSpan(span, err) }()

	if in.Tier != "" && !in.Tier.Valid() {
		return nil, apperr.Invalid("unknown tier %q", in.Tier)
	}
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		topic = s.cfg.DefaultTopic
	}

	tier, err := s.tierFor(ctx, in.LearnerID, in.Tier)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("passage.tier", string(tier)), attribute.String("passage.topic", topic))

	pctx, err := s.assembler.Assemble(ctx, in.LearnerID, tier, AssembleOptions{
		IncludeWordIDs: in.IncludeWordIDs,
		FocusGrammarID: in.FocusGrammarID,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble context: %w", err)
	}

	req := BuildGenerateRequest(GenerateParams{
		Language: s.cfg.Language,
		Tier:     tier,
		Topic:    topic,
		Context:  pctx,
	}, s.cfg)

	parsed, raw, model, err := s.generateDocument(ctx, PurposeGenerate, req)
	if err != nil {
		return nil, err
	}

	if !parsed.IsFallback() && s.cfg.Validate {
		if err := s.validatePassage(ctx, &parsed.Doc, tier, topic); err != nil {
			return nil, err
		}
	}

	return s.finish(ctx, draft{
		learnerID:  in.LearnerID,
		parsed:     parsed,
		tier:       tier,
		topic:      topic,
		origin:     store.OriginGenerated,
		source:     lexicon.SourceStory,
		grammarIDs: pctx.GrammarIDs,
		prompt:     renderRequest(req),
		raw:        raw,
		model:      model,
	})
}

// Import annotates learner-supplied text verbatim and stores it. The
// validation pass never runs for imports.
func (s *Service) Import(ctx context.Context, in ImportInput) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "storygen.import")
	defer func() { endSpan(span, err) }()

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperr.Invalid("import text is empty")
	}
	if utf8.RuneCountInString(text) > MaxImportRunes {
		return nil, apperr.Invalid("import text exceeds %d characters", MaxImportRunes)
	}
	if in.Tier != "" && !in.Tier.Valid() {
		return nil, apperr.Invalid("unknown tier %q", in.Tier)
	}
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		topic = "imported text"
	}

	tier, err := s.tierFor(ctx, in.LearnerID, in.Tier)
	if err != nil {
		return nil, err
	}
	known, err := s.assembler.KnownWords(ctx, in.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("assemble context: %w", err)
	}

	req := BuildImportRequest(ImportParams{
		Language: s.cfg.Language,
		Tier:     tier,
		Topic:    topic,
		Text:     text,
		Known:    known,
	}, s.cfg)

	parsed, raw, model, err := s.generateDocument(ctx, PurposeImport, req)
	if err != nil {
		return nil, err
	}
	// The learner's text is authoritative, whatever the model echoed.
	parsed.Doc.ContentScript = text

	return s.finish(ctx, draft{
		learnerID: in.LearnerID,
		parsed:    parsed,
		tier:      tier,
		topic:     topic,
		origin:    store.OriginImported,
		source:    lexicon.SourceImport,
		prompt:    renderRequest(req),
		raw:       raw,
		model:     model,
	})
}

// generateDocument invokes the provider and parses its output. Fallback
// conditions are folded into the ParseResult; only caller-visible errors
// are returned.
func (s *Service) generateDocument(ctx context.Context, purpose string, req llm.Request) (passage.ParseResult, string, string, error) {
	resp, err := s.invoke(ctx, purpose, req)
	if errors.Is(err, errFallback) {
		s.log.Warn("generation fell back to empty document", "purpose", purpose, "error", err)
		return passage.Fallback(err), "", s.provider.ModelID(), nil
	}
	if err != nil {
		return passage.ParseResult{}, "", "", err
	}

	parsed := parseDocument(resp.Text)
	if parsed.IsFallback() {
		s.log.Warn("model output unusable, storing empty document", "purpose", purpose, "error", parsed.Reason)
	}
	model := resp.Model
	if model == "" {
		model = s.provider.ModelID()
	}
	return parsed, resp.Text, model, nil
}

// draft carries everything finish needs to reconcile and store a document.
type draft struct {
	learnerID  string
	parsed     passage.ParseResult
	tier       lexicon.Tier
	topic      string
	origin     store.Origin
	source     lexicon.Source
	grammarIDs []string
	prompt     string
	raw        string
	model      string
}

func (s *Service) finish(ctx context.Context, d draft) (*Result, error) {
	doc := d.parsed.Doc

	rctx, span := tracer.Start(ctx, "storygen.reconcile")
	targets, err := s.reconciler.Reconcile(rctx, d.learnerID, &doc, d.tier, d.source)
	span.SetAttributes(attribute.Int("reconcile.targets", len(targets)))
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("reconcile vocabulary: %w", err)
	}

	// A cancelled request must not leave a passage behind.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := store.Passage{
		LearnerID:          d.learnerID,
		Title:              doc.Title,
		ContentScript:      doc.ContentScript,
		ContentRomanized:   doc.ContentRomanized,
		ContentTranslation: doc.ContentTranslation,
		Sentences:          doc.Sentences,
		TargetWordIDs:      targets,
		TargetGrammarIDs:   d.grammarIDs,
		Topic:              d.topic,
		Tier:               d.tier,
		WordCount:          doc.WordCount,
		Origin:             d.origin,
		Prompt:             d.prompt,
		RawResponse:        d.raw,
		Model:              d.model,
		CreatedAt:          s.now(),
	}
	exercises := buildExercises(doc)

	res, err := s.persist(ctx, p, exercises, doc.CharactersUsed)
	if err != nil {
		return nil, err
	}
	res.Fallback = d.parsed.IsFallback()

	s.log.Info("passage stored",
		"learner", d.learnerID,
		"passage_id", res.Passage.ID,
		"origin", string(d.origin),
		"tier", string(d.tier),
		"sentences", len(doc.Sentences),
		"new_words", len(targets),
		"exercises", len(res.Exercises),
		"fallback", res.Fallback,
	)
	return res, nil
}

// persist writes the passage, its exercises and character appearances in
// one transaction.
func (s *Service) persist(ctx context.Context, p store.Passage, exercises []store.Exercise, cast []passage.CharacterUse) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "storygen.persist")
	defer func() { endSpan(span, err) }()

	res = &Result{}
	err = s.store.InTx(ctx, func(tx store.Repos) error {
		if err := tx.Passages().Create(ctx, &p); err != nil {
			return err
		}
		for i := range exercises {
			exercises[i].PassageID = p.ID
		}
		if err := tx.Exercises().CreateBatch(ctx, exercises); err != nil {
			return err
		}
		seen := make(map[string]bool)
		for _, c := range cast {
			name := strings.TrimSpace(c.Name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			if _, err := tx.Characters().RecordAppearance(ctx, p.LearnerID, p.ID, name, c.Role, p.CreatedAt); err != nil {
				return err
			}
		}
		cs, err := tx.Characters().ByPassage(ctx, p.ID)
		if err != nil {
			return err
		}
		res.Characters = cs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store passage: %w", err)
	}
	res.Passage = p
	res.Exercises = exercises
	return res, nil
}

// buildExercises converts drafts to stored exercises. Drafts with an
// unknown type or no answer are dropped. An exercise whose answer is an
// annotated word targets that word.
func buildExercises(doc passage.Document) []store.Exercise {
	ids := make(map[string]string)
	for _, s := range doc.Sentences {
		for _, w := range s.Words {
			if w.WordID != "" {
				ids[w.Surface] = w.WordID
			}
		}
	}

	out := make([]store.Exercise, 0, len(doc.Exercises))
	for _, d := range doc.Exercises {
		t, ok := lexicon.ParseExerciseType(d.Type)
		answer := strings.TrimSpace(d.CorrectAnswer)
		if !ok || answer == "" {
			continue
		}
		out = append(out, store.Exercise{
			Position:      len(out),
			Type:          t,
			Question:      d.Question,
			CorrectAnswer: answer,
			Options:       d.Options,
			TargetWordID:  ids[answer],
		})
	}
	return out
}

func (s *Service) tierFor(ctx context.Context, learnerID string, override lexicon.Tier) (lexicon.Tier, error) {
	if override != "" {
		return override, nil
	}
	known, err := s.knownCount(ctx, learnerID)
	if err != nil {
		return "", err
	}
	return s.levels.Estimate(known), nil
}

func (s *Service) knownCount(ctx context.Context, learnerID string) (int, error) {
	counts, err := s.store.LearnerWords().CountByStatus(ctx, learnerID)
	if err != nil {
		return 0, fmt.Errorf("count known words: %w", err)
	}
	return counts[lexicon.StatusKnown] + counts[lexicon.StatusMastered], nil
}

// renderRequest is the stored form of the exact request sent.
func renderRequest(req llm.Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		b.WriteString(m.Content)
	}
	return b.String()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
