// Package level estimates a learner's proficiency tier from the size of
// their known vocabulary.
package level

import "github.com/abhisek/kahani/internal/lexicon"

// Policy holds the known-word counts at which each tier begins.
type Policy struct {
	A2 int
	B1 int
	B2 int
}

// DefaultPolicy starts A2 at 50 known words, B1 at 150 and B2 at 400.
var DefaultPolicy = Policy{A2: 50, B1: 150, B2: 400}

// Estimate maps a known-or-mastered word count to a tier.
func (p Policy) Estimate(known int) lexicon.Tier {
	switch {
	case known < p.A2:
		return lexicon.TierA1
	case known < p.B1:
		return lexicon.TierA2
	case known < p.B2:
		return lexicon.TierB1
	default:
		return lexicon.TierB2
	}
}

// Estimate applies DefaultPolicy.
func Estimate(known int) lexicon.Tier {
	return DefaultPolicy.Estimate(known)
}
