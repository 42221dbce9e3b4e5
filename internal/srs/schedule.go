// Package srs implements the two-phase spaced-repetition scheduler used for
// vocabulary review.
//
// A card is in the learning phase while its interval is at most one day and
// in the review phase once the interval exceeds a day. Learning-phase steps
// are short fixed intervals expressed as fractions of a day; review-phase
// intervals grow by the card's ease factor.
package srs

import "math"

// Quality is a 0-5 self-assessment of recall.
type Quality int

const (
	QualityBlackout  Quality = 0
	QualityWrong     Quality = 1
	QualityHardWrong Quality = 2
	QualityHard      Quality = 3
	QualityGood      Quality = 4
	QualityEasy      Quality = 5
)

// Valid reports whether q is within 0-5.
func (q Quality) Valid() bool {
	return q >= QualityBlackout && q <= QualityEasy
}

// Passing reports whether q counts as a successful recall.
func (q Quality) Passing() bool {
	return q >= QualityHard
}

const (
	// MinEase is the floor for the ease factor.
	MinEase = 1.3

	// DefaultEase is the ease factor of a card that has never been reviewed.
	DefaultEase = 2.5

	// GraduationThreshold separates the learning phase (interval at or
	// below) from the review phase (interval above), in days.
	GraduationThreshold = 1.0

	minutesPerDay = 24 * 60
)

// Learning-phase steps, in days.
const (
	StepAgain    = 1.0 / minutesPerDay
	StepHard     = 6.0 / minutesPerDay
	StepGood     = 10.0 / minutesPerDay
	GraduateEasy = 3.0
)

// Phase is the scheduling regime implied by an interval.
type Phase int

const (
	PhaseLearning Phase = iota
	PhaseReview
)

func (p Phase) String() string {
	if p == PhaseReview {
		return "review"
	}
	return "learning"
}

// PhaseOf returns the phase for an interval in days.
func PhaseOf(intervalDays float64) Phase {
	if intervalDays > GraduationThreshold {
		return PhaseReview
	}
	return PhaseLearning
}

// Schedule maps a rating and the prior interval and ease to the next
// interval (in days, possibly fractional) and ease. It is total: quality is
// clamped to 0-5, negative intervals are treated as zero and ease is raised
// to MinEase.
func Schedule(q Quality, intervalDays, ease float64) (float64, float64) {
	q = clampQuality(q)
	if intervalDays < 0 || math.IsNaN(intervalDays) {
		intervalDays = 0
	}
	if ease < MinEase || math.IsNaN(ease) {
		ease = MinEase
	}

	if PhaseOf(intervalDays) == PhaseLearning {
		switch {
		case q == QualityBlackout:
			return StepAgain, ease
		case q <= QualityHardWrong:
			return StepHard, ease
		case q <= QualityGood:
			return StepGood, ease
		default:
			return GraduateEasy, ease
		}
	}

	if !q.Passing() {
		return StepGood, ease
	}

	next := NextEase(q, ease)
	switch q {
	case QualityHard:
		return math.Max(1, math.Round(intervalDays*1.2)), next
	case QualityGood:
		return math.Round(intervalDays * next), next
	default:
		return math.Round(intervalDays * next * 1.3), next
	}
}

// NextEase applies the SM-2 ease adjustment for a passing rating, floored at
// MinEase.
func NextEase(q Quality, ease float64) float64 {
	d := float64(QualityEasy - clampQuality(q))
	return math.Max(MinEase, ease+0.1-d*(0.08+d*0.02))
}

func clampQuality(q Quality) Quality {
	if q < QualityBlackout {
		return QualityBlackout
	}
	if q > QualityEasy {
		return QualityEasy
	}
	return q
}
