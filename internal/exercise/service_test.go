package exercise

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/passage"
	"github.com/abhisek/kahani/internal/store"
)

func setup(t *testing.T) (*Service, *store.Store, store.Exercise) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "kahani.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	p := store.Passage{LearnerID: "ana", Tier: lexicon.TierA1, Origin: store.OriginGenerated}
	if err := s.Passages().Create(ctx, &p); err != nil {
		t.Fatal(err)
	}
	exs := []store.Exercise{
		{PassageID: p.ID, Position: 0, Type: lexicon.ExerciseFillBlank, Question: passage.Question{Prompt: "मीरा ___ गई।"}, CorrectAnswer: "बाज़ार"},
		{PassageID: p.ID, Position: 1, Type: lexicon.ExerciseMultipleChoice, Question: passage.Question{Prompt: "What fruit?"}, CorrectAnswer: "आम", Options: []string{"आम", "केला"}},
	}
	if err := s.Exercises().CreateBatch(ctx, exs); err != nil {
		t.Fatal(err)
	}
	listed, err := s.Exercises().ListByPassage(ctx, p.ID)
	if err != nil || len(listed) != 2 {
		t.Fatalf("list exercises: %v (%d)", err, len(listed))
	}

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(s, NewEvaluator(nil, "Hindi", 0, nil), nil, func() time.Time { return now })
	return svc, s, listed[1]
}

func TestAnswer_RecordsAttempts(t *testing.T) {
	svc, s, ex := setup(t)
	ctx := context.Background()

	res, err := svc.Answer(ctx, "ana", ex.ID, "केला")
	if err != nil {
		t.Fatal(err)
	}
	if res.Correct {
		t.Error("wrong answer accepted")
	}
	res, err = svc.Answer(ctx, "ana", ex.ID, "आम")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Correct {
		t.Error("right answer rejected")
	}

	attempts, err := s.Exercises().Attempts(ctx, "ana", ex.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 2 || attempts[0].Correct || !attempts[1].Correct || attempts[1].Answer != "आम" {
		t.Errorf("attempts = %+v", attempts)
	}
}

func TestAnswer_Errors(t *testing.T) {
	svc, _, ex := setup(t)
	ctx := context.Background()

	if _, err := svc.Answer(ctx, "ana", ex.ID, "  "); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty answer: %v", err)
	}
	if _, err := svc.Answer(ctx, "ben", ex.ID, "आम"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign exercise: %v", err)
	}
	if _, err := svc.Answer(ctx, "ana", "missing", "आम"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing exercise: %v", err)
	}
}

func TestList(t *testing.T) {
	svc, _, ex := setup(t)
	ctx := context.Background()

	got, err := svc.List(ctx, "ana", ex.PassageID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Type != lexicon.ExerciseFillBlank {
		t.Errorf("exercises = %+v", got)
	}
	if _, err := svc.List(ctx, "ben", ex.PassageID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign passage: %v", err)
	}
}
