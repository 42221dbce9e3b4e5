package grammar

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

func setup(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "kahani.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	catalog := []store.GrammarConcept{
		{ID: "g-present", Slug: "present", Name: "Present tense", Tier: lexicon.TierA1, SortOrder: 1},
		{ID: "g-postp", Slug: "postpositions", Name: "Postpositions", Tier: lexicon.TierA1, SortOrder: 2},
		{ID: "g-past", Slug: "past", Name: "Past tense", Tier: lexicon.TierA2, SortOrder: 3, Prerequisites: []string{"g-present", "g-postp"}},
	}
	for _, c := range catalog {
		if err := s.Grammar().UpsertConcept(context.Background(), c); err != nil {
			t.Fatal(err)
		}
	}
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return NewService(s, nil, func() time.Time { return now }), s
}

func statusOf(t *testing.T, svc *Service, learnerID, id string) Entry {
	t.Helper()
	entries, err := svc.List(context.Background(), learnerID)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Concept.ID == id {
			return e
		}
	}
	t.Fatalf("concept %s not listed", id)
	return Entry{}
}

func TestList_DefaultsToLocked(t *testing.T) {
	svc, _ := setup(t)

	entries, err := svc.List(context.Background(), "ana")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 || entries[0].Concept.ID != "g-present" || entries[2].Concept.ID != "g-past" {
		t.Fatalf("entries = %+v", entries)
	}
	for _, e := range entries {
		if e.Status != lexicon.GrammarLocked {
			t.Errorf("%s status = %s, want locked", e.Concept.Slug, e.Status)
		}
	}
	if !entries[0].Unlockable || entries[2].Unlockable {
		t.Errorf("unlockable = %v/%v, want root unlockable and past not", entries[0].Unlockable, entries[2].Unlockable)
	}
}

func TestUnlock_RequiresLearnedPrerequisites(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Unlock(ctx, "ana", "g-past")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}

	for _, id := range []string{"g-present", "g-postp"} {
		if _, err := svc.Unlock(ctx, "ana", id); err != nil {
			t.Fatalf("unlock %s: %v", id, err)
		}
	}
	if _, err := svc.SetStatus(ctx, "ana", "g-present", lexicon.GrammarLearned, 0.9); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Unlock(ctx, "ana", "g-past"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("one prerequisite still available: err = %v", err)
	}

	if _, err := svc.SetStatus(ctx, "ana", "g-postp", lexicon.GrammarLearned, 1); err != nil {
		t.Fatal(err)
	}
	e, err := svc.Unlock(ctx, "ana", "g-past")
	if err != nil {
		t.Fatalf("unlock past: %v", err)
	}
	if e.Status != lexicon.GrammarAvailable {
		t.Errorf("status = %s, want available", e.Status)
	}
	if got := statusOf(t, svc, "ana", "g-past"); got.Status != lexicon.GrammarAvailable {
		t.Errorf("listed status = %s", got.Status)
	}
	if got := statusOf(t, svc, "ben", "g-past"); got.Status != lexicon.GrammarLocked {
		t.Errorf("other learner status = %s", got.Status)
	}
}

func TestUnlock_KeepsAdvancedStatus(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	svc.Unlock(ctx, "ana", "g-present")
	svc.SetStatus(ctx, "ana", "g-present", lexicon.GrammarLearning, 0.4)

	e, err := svc.Unlock(ctx, "ana", "g-present")
	if err != nil {
		t.Fatal(err)
	}
	if e.Status != lexicon.GrammarLearning || e.Comfort != 0.4 {
		t.Errorf("entry = %+v, want learning with comfort 0.4", e)
	}
}

func TestUnlock_NotFound(t *testing.T) {
	svc, _ := setup(t)
	if _, err := svc.Unlock(context.Background(), "ana", "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestSetStatus_Validation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.SetStatus(ctx, "ana", "g-present", lexicon.GrammarLearning, 0.5); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("locked concept: err = %v, want conflict", err)
	}
	svc.Unlock(ctx, "ana", "g-present")

	tests := []struct {
		status  lexicon.GrammarStatus
		comfort float64
	}{
		{lexicon.GrammarLocked, 0.5},
		{lexicon.GrammarAvailable, 0.5},
		{lexicon.GrammarLearning, -0.1},
		{lexicon.GrammarLearned, 1.5},
	}
	for _, tt := range tests {
		if _, err := svc.SetStatus(ctx, "ana", "g-present", tt.status, tt.comfort); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("SetStatus(%s, %v) = %v, want invalid input", tt.status, tt.comfort, err)
		}
	}

	e, err := svc.SetStatus(ctx, "ana", "g-present", lexicon.GrammarLearning, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if got := statusOf(t, svc, "ana", "g-present"); got.Status != lexicon.GrammarLearning || got.Comfort != 0.5 {
		t.Errorf("stored = %+v (returned %+v)", got, e)
	}
}
