package storygen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/llm"
	"github.com/abhisek/kahani/internal/store"
)

func passageCount(t *testing.T, s *store.Store, learnerID string) int {
	t.Helper()
	ps, err := s.Passages().List(context.Background(), store.PassageFilter{LearnerID: learnerID})
	if err != nil {
		t.Fatal(err)
	}
	return len(ps)
}

func noIssues(t *testing.T) string {
	return modelOutput(t, map[string]any{"has_issues": false, "issues": []string{}})
}

func TestGenerate_StoresPassage(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: modelOutput(t, marketDoc())},
		llm.MockResponse{Text: noIssues(t)},
	)
	svc, s := newTestService(t, mock, nil)
	ctx := context.Background()

	res, err := svc.Generate(ctx, GenerateInput{LearnerID: "ana", Topic: "market"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Fallback {
		t.Fatal("unexpected fallback")
	}
	if mock.CallCount() != 2 {
		t.Fatalf("calls = %d, want generation and validation", mock.CallCount())
	}

	p, err := s.Passages().Get(ctx, "ana", res.Passage.ID)
	if err != nil {
		t.Fatalf("stored passage: %v", err)
	}
	if p.Title != "बाज़ार / The market" || p.Tier != lexicon.TierA1 || p.Topic != "market" || p.Origin != store.OriginGenerated {
		t.Errorf("passage fields = %+v", p)
	}
	if p.Model != "mock" || p.RawResponse == "" || p.Prompt == "" {
		t.Errorf("reproducibility fields missing: model=%q raw=%d prompt=%d", p.Model, len(p.RawResponse), len(p.Prompt))
	}
	if !p.CreatedAt.Equal(testNow) {
		t.Errorf("created at = %v", p.CreatedAt)
	}
	if len(p.TargetWordIDs) != 2 {
		t.Errorf("targets = %v, want बाज़ार and आम", p.TargetWordIDs)
	}

	exercises, _ := s.Exercises().ListByPassage(ctx, p.ID)
	if len(exercises) != 2 {
		t.Fatalf("exercises = %d, want 2 (unknown type dropped)", len(exercises))
	}
	if exercises[0].Type != lexicon.ExerciseFillBlank || exercises[0].TargetWordID == "" {
		t.Errorf("fill-blank exercise = %+v", exercises[0])
	}

	if len(res.Characters) != 1 || res.Characters[0].Name != "मीरा" || res.Characters[0].Role != "shopper" {
		t.Errorf("characters = %+v", res.Characters)
	}
}

func TestGenerate_PromptUsesLearnerContext(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: modelOutput(t, marketDoc())})
	svc, s := newTestService(t, mock, func(c *Config) { c.Validate = false })
	w := seedWord(t, s, "घर", "house", lexicon.TierA1)
	setStatus(t, s, "ana", w.ID, lexicon.StatusKnown)

	res, err := svc.Generate(context.Background(), GenerateInput{LearnerID: "ana", Tier: lexicon.TierB1})
	if err != nil {
		t.Fatal(err)
	}
	call, _ := mock.LastCall()
	if res.Passage.Prompt != renderRequest(call) {
		t.Error("stored prompt differs from the request sent")
	}
	if res.Passage.Tier != lexicon.TierB1 || res.Passage.Topic != "daily life" {
		t.Errorf("tier/topic = %s/%s", res.Passage.Tier, res.Passage.Topic)
	}
	if mock.CallCount() != 1 {
		t.Errorf("validation disabled, got %d calls", mock.CallCount())
	}
}

func TestGenerate_QuotaExhaustedIsTemporarilyUnavailable(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrQuotaExhausted{Err: errors.New("credit balance too low")}})
	svc, s := newTestService(t, mock, nil)

	_, err := svc.Generate(context.Background(), GenerateInput{LearnerID: "ana"})
	if !errors.Is(err, apperr.ErrTemporarilyUnavailable) {
		t.Fatalf("err = %v, want temporarily unavailable", err)
	}
	if n := passageCount(t, s, "ana"); n != 0 {
		t.Fatalf("%d passages written, want 0", n)
	}
}

func TestGenerate_AuthFailureIsMisconfigured(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrUnauthenticated{Err: errors.New("bad key")}})
	svc, s := newTestService(t, mock, nil)

	_, err := svc.Generate(context.Background(), GenerateInput{LearnerID: "ana"})
	if !errors.Is(err, apperr.ErrServiceMisconfigured) {
		t.Fatalf("err = %v, want misconfigured", err)
	}
	if passageCount(t, s, "ana") != 0 {
		t.Fatal("no passage should be written")
	}
}

func TestGenerate_MalformedOutputStoresFallback(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: "Sorry, I cannot write that story {"})
	svc, s := newTestService(t, mock, nil)

	res, err := svc.Generate(context.Background(), GenerateInput{LearnerID: "ana"})
	if err != nil {
		t.Fatalf("malformed output must not fail: %v", err)
	}
	if !res.Fallback {
		t.Fatal("expected fallback")
	}
	if mock.CallCount() != 1 {
		t.Errorf("validation must not run on a fallback, got %d calls", mock.CallCount())
	}
	p, _ := s.Passages().Get(context.Background(), "ana", res.Passage.ID)
	if p.ContentScript != "" || p.WordCount != 0 || len(p.Sentences) != 0 || len(res.Exercises) != 0 {
		t.Errorf("fallback passage not empty: %+v", p)
	}
	if p.RawResponse != "Sorry, I cannot write that story {" {
		t.Errorf("raw response not kept: %q", p.RawResponse)
	}
}

func TestGenerate_NullOptionalFieldsKeepPassage(t *testing.T) {
	raw := "```json\n" + `{
  "title": "चाय",
  "content_script": "राम चाय पीता है।",
  "content_romanized": null,
  "word_count": null,
  "characters_used": null,
  "sentences": [{
    "index": 0,
    "script": "राम चाय पीता है।",
    "romanized": "raam chaay peeta hai.",
    "translation": null,
    "grammar_notes": null,
    "words": [
      {"surface": "चाय", "romanized": "chaay", "gloss": "tea", "is_new": true, "category": "NOUN", "gender": "feminine"},
      {"surface": "पीता", "romanized": "peeta", "gloss": "drinks", "is_new": true, "category": "VERB", "gender": null}
    ]
  }],
  "exercises": [{
    "type": "MULTIPLE_CHOICE",
    "question": {"prompt": "What does Ram drink?", "context": null, "sentence_index": null},
    "correct_answer": "चाय",
    "options": ["चाय", "पानी"]
  }]
}` + "\n```"
	mock := llm.NewMockProvider(llm.MockResponse{Text: raw})
	svc, s := newTestService(t, mock, func(c *Config) { c.Validate = false })
	ctx := context.Background()

	res, err := svc.Generate(ctx, GenerateInput{LearnerID: "ana", Topic: "tea"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Fallback {
		t.Fatal("null optional fields degraded the passage to the fallback")
	}
	if len(res.Passage.Sentences) != 1 || len(res.Passage.TargetWordIDs) != 2 {
		t.Fatalf("sentences = %d, targets = %v", len(res.Passage.Sentences), res.Passage.TargetWordIDs)
	}
	if got := res.Passage.Sentences[0].Words[1].Gender; got != "" {
		t.Errorf("null gender decoded as %q", got)
	}
	exercises, _ := s.Exercises().ListByPassage(ctx, res.Passage.ID)
	if len(exercises) != 1 || exercises[0].Question.SentenceIndex != nil {
		t.Errorf("exercises = %+v", exercises)
	}
}

func TestGenerate_TimeoutStoresFallback(t *testing.T) {
	mock := llm.NewMockProviderFunc(func(ctx context.Context, _ llm.Request) (*llm.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	svc, s := newTestService(t, mock, func(c *Config) { c.Timeout = 20 * time.Millisecond })

	res, err := svc.Generate(context.Background(), GenerateInput{LearnerID: "ana"})
	if err != nil {
		t.Fatalf("timeout must degrade, got %v", err)
	}
	if !res.Fallback {
		t.Fatal("expected fallback")
	}
	if passageCount(t, s, "ana") != 1 {
		t.Fatal("fallback passage should be stored")
	}
}

func TestGenerate_CancellationPersistsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mock := llm.NewMockProviderFunc(func(ctx context.Context, _ llm.Request) (*llm.Response, error) {
		cancel()
		return nil, ctx.Err()
	})
	svc, s := newTestService(t, mock, nil)

	_, err := svc.Generate(ctx, GenerateInput{LearnerID: "ana"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if passageCount(t, s, "ana") != 0 {
		t.Fatal("cancelled generation wrote a passage")
	}
}

func TestGenerate_CancellationDuringValidationPersistsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	doc := modelOutput(t, marketDoc())
	calls := 0
	mock := llm.NewMockProviderFunc(func(ctx context.Context, _ llm.Request) (*llm.Response, error) {
		calls++
		if calls == 1 {
			return &llm.Response{Text: doc, Model: "mock"}, nil
		}
		cancel()
		return nil, ctx.Err()
	})
	svc, s := newTestService(t, mock, nil)

	if _, err := svc.Generate(ctx, GenerateInput{LearnerID: "ana"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if passageCount(t, s, "ana") != 0 {
		t.Fatal("cancelled generation wrote a passage")
	}
	if n, _ := s.Words().Count(context.Background()); n != 0 {
		t.Fatalf("cancelled generation created %d dictionary entries", n)
	}
}

func TestGenerate_InvalidTier(t *testing.T) {
	mock := llm.NewMockProvider()
	svc, _ := newTestService(t, mock, nil)

	_, err := svc.Generate(context.Background(), GenerateInput{LearnerID: "ana", Tier: "C2"})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	if mock.CallCount() != 0 {
		t.Fatal("provider called for invalid input")
	}
}

func TestImport_VerbatimAndNoValidation(t *testing.T) {
	doc := marketDoc()
	doc.ContentScript = "a paraphrase the model made up"
	mock := llm.NewMockProvider(llm.MockResponse{Text: modelOutput(t, doc)})
	svc, s := newTestService(t, mock, nil)
	ctx := context.Background()

	text := "  मीरा बाज़ार गई। बाज़ार में आम थे।\n"
	res, err := svc.Import(ctx, ImportInput{LearnerID: "ana", Text: text, Topic: "market"})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("calls = %d, validation must not run for imports", mock.CallCount())
	}
	if res.Passage.ContentScript != "मीरा बाज़ार गई। बाज़ार में आम थे।" {
		t.Errorf("content script = %q, want the learner text", res.Passage.ContentScript)
	}
	if res.Passage.Origin != store.OriginImported {
		t.Errorf("origin = %q", res.Passage.Origin)
	}
	aam, _ := s.Words().FindBySurface(ctx, "आम")
	if aam == nil || aam.Source != lexicon.SourceImport {
		t.Fatalf("imported word provenance = %+v", aam)
	}
	if call, _ := mock.LastCall(); call.Temperature != 0 {
		t.Errorf("import temperature = %v", call.Temperature)
	}
}

func TestImport_RejectsEmptyText(t *testing.T) {
	mock := llm.NewMockProvider()
	svc, _ := newTestService(t, mock, nil)

	_, err := svc.Import(context.Background(), ImportInput{LearnerID: "ana", Text: "   \n"})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	if mock.CallCount() != 0 {
		t.Fatal("provider called for empty import")
	}
}

func TestReady(t *testing.T) {
	svc, s := newTestService(t, llm.NewMockProvider(), nil)
	ctx := context.Background()

	seedWord(t, s, "क", "", lexicon.TierA1)
	seedWord(t, s, "ख", "", lexicon.TierA1)
	seedWord(t, s, "ग", "", lexicon.TierA2)

	r, err := svc.Ready(ctx, "ana")
	if err != nil {
		t.Fatal(err)
	}
	if r.Ready || r.NewWords != 2 || r.Tier != lexicon.TierA1 || r.SuggestedTopic == "" {
		t.Fatalf("Ready = %+v, want not ready with 2 new words", r)
	}

	seedWord(t, s, "घ", "", lexicon.TierA1)
	r, _ = svc.Ready(ctx, "ana")
	if !r.Ready || r.NewWords != 3 {
		t.Fatalf("Ready = %+v, want ready", r)
	}
}
