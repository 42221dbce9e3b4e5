package srs

import (
	"testing"
	"time"

	"github.com/abhisek/kahani/internal/lexicon"
)

func TestApply_FailForcesLearning(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, status := range []lexicon.WordStatus{lexicon.StatusKnown, lexicon.StatusMastered, lexicon.StatusLearning} {
		c := Card{Status: status, IntervalDays: 10, Ease: 2.5, TimesReviewed: 4, TimesCorrect: 4}
		got := Apply(c, QualityBlackout, now)
		if got.Status != lexicon.StatusLearning {
			t.Errorf("%s: status = %s, want learning", status, got.Status)
		}
		if !approx(got.IntervalDays, 10.0/1440) {
			t.Errorf("%s: interval = %v, want 10 minutes", status, got.IntervalDays)
		}
		want := now.Add(10 * time.Minute)
		if !got.NextDueAt.Equal(want) {
			t.Errorf("%s: next due = %v, want %v", status, got.NextDueAt, want)
		}
	}
}

func TestApply_Counters(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c := Card{Status: lexicon.StatusLearning, Ease: 2.5, TimesReviewed: 1, TimesCorrect: 0}

	got := Apply(c, QualityHard, now)
	if got.TimesReviewed != 2 || got.TimesCorrect != 1 {
		t.Errorf("counters = %d/%d, want 2/1", got.TimesCorrect, got.TimesReviewed)
	}
	if got.Familiarity != 0.5 {
		t.Errorf("familiarity = %v, want 0.5", got.Familiarity)
	}
	if !got.LastSeenAt.Equal(now) {
		t.Errorf("last seen = %v, want %v", got.LastSeenAt, now)
	}
	if c.TimesReviewed != 1 {
		t.Error("Apply mutated its input")
	}
}

func TestApply_PromotesOneStep(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		status lexicon.WordStatus
		want   lexicon.WordStatus
	}{
		{lexicon.StatusLearning, lexicon.StatusKnown},
		{lexicon.StatusKnown, lexicon.StatusMastered},
		{lexicon.StatusMastered, lexicon.StatusMastered},
	}
	for _, tt := range tests {
		c := Card{Status: tt.status, IntervalDays: 3, Ease: 2.5, TimesReviewed: 4, TimesCorrect: 4}
		got := Apply(c, QualityGood, now)
		if got.Status != tt.want {
			t.Errorf("%s: status = %s, want %s", tt.status, got.Status, tt.want)
		}
	}
}

func TestApply_NoPromotionWithLowFamiliarity(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c := Card{Status: lexicon.StatusLearning, Ease: 2.5, TimesReviewed: 1, TimesCorrect: 0}
	got := Apply(c, QualityEasy, now)
	if got.Status != lexicon.StatusLearning {
		t.Errorf("status = %s, want learning", got.Status)
	}
	if got.IntervalDays != 3 {
		t.Errorf("interval = %v, want 3", got.IntervalDays)
	}
}

func TestApply_HardDoesNotPromote(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c := Card{Status: lexicon.StatusLearning, Ease: 2.5, TimesReviewed: 9, TimesCorrect: 9}
	got := Apply(c, QualityHard, now)
	if got.Status != lexicon.StatusLearning {
		t.Errorf("status = %s, want learning", got.Status)
	}
}

func TestFamiliarity(t *testing.T) {
	tests := []struct {
		correct, reviews int
		want             float64
	}{
		{0, 0, 0},
		{3, 0, 1},
		{1, 2, 0.5},
		{5, 4, 1},
		{-1, 2, 0},
	}
	for _, tt := range tests {
		if got := Familiarity(tt.correct, tt.reviews); got != tt.want {
			t.Errorf("Familiarity(%d, %d) = %v, want %v", tt.correct, tt.reviews, got, tt.want)
		}
	}
}

func TestIsDue(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	if !(Card{}).IsDue(now) {
		t.Error("card without due time should be due")
	}
	later := now.Add(time.Minute)
	if (Card{NextDueAt: &later}).IsDue(now) {
		t.Error("card due later should not be due")
	}
	if !(Card{NextDueAt: &now}).IsDue(now) {
		t.Error("card due now should be due")
	}
}

func TestNextDue_FractionalDays(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	if got := NextDue(now, 1.0/1440); !got.Equal(now.Add(time.Minute)) {
		t.Errorf("NextDue(1 minute) = %v", got)
	}
	if got := NextDue(now, 3); !got.Equal(now.Add(72 * time.Hour)) {
		t.Errorf("NextDue(3 days) = %v", got)
	}
}
