package review

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/passage"
	"github.com/abhisek/kahani/internal/srs"
	"github.com/abhisek/kahani/internal/store"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T) (*Service, *store.Store, *clock) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "kahani.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	c := &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewService(s, nil, c.now), s, c
}

func track(t *testing.T, s *store.Store, learnerID, surface string, status lexicon.WordStatus, due *time.Time) string {
	t.Helper()
	ctx := context.Background()
	w, _, err := s.Words().CreateIfAbsent(ctx, store.Word{
		Surface: surface, Category: lexicon.Noun, Tier: lexicon.TierA1, Source: lexicon.SourceSeeded,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = s.LearnerWords().Save(ctx, &store.LearnerWord{
		LearnerID: learnerID,
		WordID:    w.ID,
		Status:    status,
		TimesSeen: 1,
		NextDueAt: due,
		Ease:      srs.DefaultEase,
		Source:    lexicon.SourceStory,
	})
	if err != nil {
		t.Fatal(err)
	}
	return w.ID
}

func at(t time.Time) *time.Time { return &t }

func TestDue_OrderingAndFilters(t *testing.T) {
	svc, s, c := setup(t)
	now := c.t

	late := track(t, s, "ana", "एक", lexicon.StatusKnown, at(now.Add(-time.Minute)))
	early := track(t, s, "ana", "दो", lexicon.StatusLearning, at(now.Add(-48*time.Hour)))
	never := track(t, s, "ana", "तीन", lexicon.StatusLearning, nil)
	track(t, s, "ana", "चार", lexicon.StatusLearning, at(now.Add(time.Hour)))
	track(t, s, "ana", "पाँच", lexicon.StatusMastered, at(now.Add(-time.Hour)))
	track(t, s, "ana", "छह", lexicon.StatusNew, nil)
	track(t, s, "ben", "सात", lexicon.StatusLearning, nil)

	items, err := svc.Due(context.Background(), "ana", 0)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, it := range items {
		got = append(got, it.Word.ID)
	}
	want := []string{never, early, late}
	if len(got) != len(want) {
		t.Fatalf("due = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("due[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	items, _ = svc.Due(context.Background(), "ana", 1)
	if len(items) != 1 || items[0].Word.ID != never {
		t.Errorf("limited due = %+v", items)
	}
}

func TestDue_CarriesExampleSentence(t *testing.T) {
	svc, s, _ := setup(t)
	ctx := context.Background()
	id := track(t, s, "ana", "आम", lexicon.StatusLearning, nil)

	p := store.Passage{
		LearnerID: "ana",
		Tier:      lexicon.TierA1,
		Origin:    store.OriginGenerated,
		Sentences: []passage.Sentence{{
			Index:  0,
			Script: "बाज़ार में आम थे।",
			Words:  []passage.WordAnnotation{{Surface: "आम", WordID: id}},
		}},
	}
	if err := s.Passages().Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	items, err := svc.Due(ctx, "ana", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Example == nil || items[0].Example.Script != "बाज़ार में आम थे।" {
		t.Fatalf("example = %+v", items)
	}
}

func TestSubmit_PersistsSchedule(t *testing.T) {
	svc, s, c := setup(t)
	ctx := context.Background()
	id := track(t, s, "ana", "आम", lexicon.StatusKnown, nil)

	out, err := svc.Submit(ctx, "ana", id, srs.QualityBlackout)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != lexicon.StatusLearning {
		t.Errorf("status = %s, want learning", out.Status)
	}
	if !out.NextDueAt.Equal(c.t.Add(time.Minute)) {
		t.Errorf("next due = %v", out.NextDueAt)
	}

	lw, _ := s.LearnerWords().Get(ctx, "ana", id)
	if lw.TimesReviewed != 1 || lw.TimesCorrect != 0 || lw.Source != lexicon.SourceStory {
		t.Errorf("stored = %+v", lw)
	}
	if lw.NextDueAt == nil || !lw.NextDueAt.Equal(out.NextDueAt) || lw.Ease < srs.MinEase {
		t.Errorf("stored schedule = %+v", lw)
	}
}

func TestSubmit_Errors(t *testing.T) {
	svc, s, _ := setup(t)
	id := track(t, s, "ana", "आम", lexicon.StatusLearning, nil)

	if _, err := svc.Submit(context.Background(), "ana", id, 6); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("quality 6: %v", err)
	}
	if _, err := svc.Submit(context.Background(), "ana", id, -1); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("quality -1: %v", err)
	}
	if _, err := svc.Submit(context.Background(), "ben", id, 4); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("other learner: %v", err)
	}
}

func TestSession_RequeuesFailuresWithoutPersistingTwice(t *testing.T) {
	svc, s, c := setup(t)
	ctx := context.Background()
	track(t, s, "ana", "आम", lexicon.StatusLearning, nil)
	track(t, s, "ana", "घर", lexicon.StatusLearning, nil)

	items, err := svc.Due(ctx, "ana", 0)
	if err != nil {
		t.Fatal(err)
	}
	ss := svc.NewSession("ana", items)

	first, _ := ss.Current()
	if _, err := ss.Answer(ctx, srs.QualityWrong); err != nil {
		t.Fatal(err)
	}
	if ss.Remaining() != 2 {
		t.Fatalf("remaining = %d, want 2 after requeue", ss.Remaining())
	}
	if _, err := ss.Answer(ctx, srs.QualityGood); err != nil {
		t.Fatal(err)
	}

	retry, ok := ss.Current()
	if !ok || !ss.IsRetry() || retry.Word.ID != first.Word.ID {
		t.Fatalf("expected retry of %s, got %+v", first.Word.ID, retry)
	}
	if retry.State.TimesReviewed != 1 {
		t.Errorf("retry state not advanced: %+v", retry.State)
	}

	c.t = c.t.Add(2 * time.Minute)
	if _, err := ss.Answer(ctx, srs.QualityGood); err != nil {
		t.Fatal(err)
	}
	if !ss.Done() {
		t.Fatal("session should be done")
	}
	if _, err := ss.Answer(ctx, srs.QualityGood); !errors.Is(err, ErrSessionDone) {
		t.Errorf("answer after done: %v", err)
	}

	lw, _ := s.LearnerWords().Get(ctx, "ana", first.Word.ID)
	if lw.TimesReviewed != 1 || lw.TimesCorrect != 0 {
		t.Errorf("retry was persisted: %+v", lw)
	}
	wantDue := time.Date(2025, 3, 1, 9, 6, 0, 0, time.UTC)
	if !lw.NextDueAt.Equal(wantDue) {
		t.Errorf("persisted due = %v, want first decision %v", lw.NextDueAt, wantDue)
	}
	if ss.Reviewed != 2 || ss.Correct != 1 || ss.Retries != 1 {
		t.Errorf("stats = %d/%d/%d", ss.Reviewed, ss.Correct, ss.Retries)
	}
}

func TestSession_RepeatedFailureRequeuesAgain(t *testing.T) {
	svc, s, _ := setup(t)
	ctx := context.Background()
	track(t, s, "ana", "आम", lexicon.StatusLearning, nil)

	items, _ := svc.Due(ctx, "ana", 0)
	ss := svc.NewSession("ana", items)
	for range 3 {
		if _, err := ss.Answer(ctx, srs.QualityBlackout); err != nil {
			t.Fatal(err)
		}
	}
	if ss.Done() || ss.Retries != 3 {
		t.Fatalf("done=%v retries=%d", ss.Done(), ss.Retries)
	}
	if _, err := ss.Answer(ctx, srs.QualityEasy); err != nil {
		t.Fatal(err)
	}
	if !ss.Done() {
		t.Fatal("session should end after a passing retry")
	}
}

func TestSummary(t *testing.T) {
	svc, s, c := setup(t)
	ctx := context.Background()
	id := track(t, s, "ana", "आम", lexicon.StatusLearning, nil)
	track(t, s, "ana", "घर", lexicon.StatusLearning, nil)
	future := c.t.Add(3 * time.Hour)
	track(t, s, "ana", "पानी", lexicon.StatusKnown, &future)

	if _, err := svc.Submit(ctx, "ana", id, srs.QualityGood); err != nil {
		t.Fatal(err)
	}

	sum, err := svc.Summary(ctx, "ana")
	if err != nil {
		t.Fatal(err)
	}
	if sum.DueNow != 1 || sum.ReviewedToday != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.NextReviewAt == nil || !sum.NextReviewAt.Equal(c.t.Add(10*time.Minute)) {
		t.Errorf("next review = %v, want in 10 minutes", sum.NextReviewAt)
	}
}
