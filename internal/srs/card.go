package srs

import (
	"math"
	"time"

	"github.com/abhisek/kahani/internal/lexicon"
)

// PromotionFamiliarity is the familiarity a card needs before a good or easy
// rating promotes its status.
const PromotionFamiliarity = 0.8

// Card is the scheduling-relevant slice of a learner's word state.
type Card struct {
	Status        lexicon.WordStatus
	IntervalDays  float64
	Ease          float64
	TimesReviewed int
	TimesCorrect  int
	Familiarity   float64
	LastSeenAt    *time.Time
	NextDueAt     *time.Time
}

// IsDue reports whether the card should be shown at now. A card with no
// due time is always due.
func (c Card) IsDue(now time.Time) bool {
	return c.NextDueAt == nil || !now.Before(*c.NextDueAt)
}

// Phase returns the card's current scheduling phase.
func (c Card) Phase() Phase {
	return PhaseOf(c.IntervalDays)
}

// Apply returns the card after one rating at now. Apply is pure; callers
// persist the result.
func Apply(c Card, q Quality, now time.Time) Card {
	q = clampQuality(q)
	interval, ease := Schedule(q, c.IntervalDays, c.Ease)

	out := c
	out.IntervalDays = interval
	out.Ease = ease
	out.TimesReviewed = c.TimesReviewed + 1
	if q.Passing() {
		out.TimesCorrect = c.TimesCorrect + 1
	}
	out.Familiarity = Familiarity(out.TimesCorrect, out.TimesReviewed)
	out.Status = NextStatus(c.Status, q, out.Familiarity)

	seen := now
	due := NextDue(now, interval)
	out.LastSeenAt = &seen
	out.NextDueAt = &due
	return out
}

// NextDue converts an interval in days into an absolute due time.
func NextDue(now time.Time, intervalDays float64) time.Time {
	return now.Add(time.Duration(math.Round(intervalDays * float64(24*time.Hour))))
}

// Familiarity is correct/max(1, reviews), clamped to [0, 1].
func Familiarity(correct, reviews int) float64 {
	f := float64(correct) / float64(max(1, reviews))
	return math.Min(1, math.Max(0, f))
}

// NextStatus applies the status policy for one rating. A failing rating
// returns the card to learning. A good or easy rating with familiarity of
// at least PromotionFamiliarity promotes the status by exactly one step.
func NextStatus(current lexicon.WordStatus, q Quality, familiarity float64) lexicon.WordStatus {
	if !q.Passing() {
		return lexicon.StatusLearning
	}
	if q >= QualityGood && familiarity >= PromotionFamiliarity {
		return current.Next()
	}
	return current
}
