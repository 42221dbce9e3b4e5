package progress

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/store"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "kahani.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewService(s, nil, func() time.Time { return testNow }), s
}

func word(t *testing.T, s *store.Store, surface string) string {
	t.Helper()
	w, _, err := s.Words().CreateIfAbsent(context.Background(), store.Word{
		Surface: surface, Category: lexicon.Noun, Tier: lexicon.TierA1, Source: lexicon.SourceStory,
	})
	if err != nil {
		t.Fatal(err)
	}
	return w.ID
}

func passageWith(t *testing.T, s *store.Store, learnerID string, targets ...string) string {
	t.Helper()
	p := store.Passage{
		LearnerID:     learnerID,
		Title:         "t",
		TargetWordIDs: targets,
		Tier:          lexicon.TierA1,
		Origin:        store.OriginGenerated,
		CreatedAt:     testNow.Add(-time.Hour),
	}
	if err := s.Passages().Create(context.Background(), &p); err != nil {
		t.Fatal(err)
	}
	return p.ID
}

func TestComplete_CreatesAndAdvancesRecords(t *testing.T) {
	svc, s := setup(t)
	ctx := context.Background()

	fresh := word(t, s, "आम")
	seenBefore := word(t, s, "बाज़ार")
	advanced := word(t, s, "घर")

	earlier := testNow.Add(48 * time.Hour)
	for _, lw := range []store.LearnerWord{
		{LearnerID: "ana", WordID: seenBefore, Status: lexicon.StatusNew, TimesSeen: 2, Ease: 2.5, Source: lexicon.SourceStory},
		{LearnerID: "ana", WordID: advanced, Status: lexicon.StatusKnown, TimesSeen: 5, Ease: 2.3, IntervalDays: 4, NextDueAt: &earlier, Source: lexicon.SourceReview},
	} {
		if err := s.LearnerWords().Save(ctx, &lw); err != nil {
			t.Fatal(err)
		}
	}

	rating := 4
	id := passageWith(t, s, "ana", fresh, seenBefore, advanced)
	c, err := svc.Complete(ctx, "ana", id, &rating)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if c.AlreadyCompleted || c.WordsUpdated != 3 || !c.CompletedAt.Equal(testNow) {
		t.Fatalf("completion = %+v", c)
	}

	got, _ := s.LearnerWords().Get(ctx, "ana", fresh)
	if got == nil || got.Status != lexicon.StatusLearning || got.TimesSeen != 1 || got.Ease != 2.5 {
		t.Fatalf("new record = %+v", got)
	}
	if got.NextDueAt == nil || !got.NextDueAt.Equal(testNow) {
		t.Errorf("new record due = %v, want now", got.NextDueAt)
	}
	if got.Source != lexicon.SourceStory {
		t.Errorf("source = %s", got.Source)
	}

	got, _ = s.LearnerWords().Get(ctx, "ana", seenBefore)
	if got.Status != lexicon.StatusLearning || got.TimesSeen != 3 || got.NextDueAt == nil || !got.NextDueAt.Equal(testNow) {
		t.Errorf("existing new record = %+v", got)
	}

	got, _ = s.LearnerWords().Get(ctx, "ana", advanced)
	if got.Status != lexicon.StatusKnown {
		t.Errorf("status downgraded to %s", got.Status)
	}
	if got.TimesSeen != 6 || !got.NextDueAt.Equal(earlier) || got.Ease != 2.3 {
		t.Errorf("advanced record = %+v", got)
	}

	p, _ := s.Passages().Get(ctx, "ana", id)
	if p.CompletedAt == nil || p.Rating == nil || *p.Rating != 4 {
		t.Errorf("passage completion not stored: %+v", p)
	}
}

func TestComplete_IsIdempotent(t *testing.T) {
	svc, s := setup(t)
	ctx := context.Background()
	w := word(t, s, "आम")
	id := passageWith(t, s, "ana", w)

	first, err := svc.Complete(ctx, "ana", id, nil)
	if err != nil {
		t.Fatal(err)
	}
	rating := 2
	second, err := svc.Complete(ctx, "ana", id, &rating)
	if err != nil {
		t.Fatal(err)
	}
	if !second.AlreadyCompleted || second.WordsUpdated != 0 {
		t.Fatalf("second completion = %+v", second)
	}
	if !second.CompletedAt.Equal(first.CompletedAt) || second.Rating != nil {
		t.Errorf("second completion changed stored state: %+v", second)
	}

	lw, _ := s.LearnerWords().Get(ctx, "ana", w)
	if lw.TimesSeen != 1 {
		t.Errorf("times seen = %d after repeated completion, want 1", lw.TimesSeen)
	}
}

func TestComplete_NotFound(t *testing.T) {
	svc, s := setup(t)
	id := passageWith(t, s, "ana")

	for _, tc := range []struct{ learner, id string }{
		{"ana", "missing"},
		{"ben", id},
	} {
		_, err := svc.Complete(context.Background(), tc.learner, tc.id, nil)
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Complete(%s, %s) = %v, want not found", tc.learner, tc.id, err)
		}
	}
}

func TestComplete_RejectsRating(t *testing.T) {
	svc, s := setup(t)
	id := passageWith(t, s, "ana")

	for _, r := range []int{0, 6, -1} {
		rating := r
		_, err := svc.Complete(context.Background(), "ana", id, &rating)
		if !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("rating %d: err = %v, want invalid input", r, err)
		}
	}

	p, _ := s.Passages().Get(context.Background(), "ana", id)
	if p.CompletedAt != nil {
		t.Error("invalid rating completed the passage")
	}
}
