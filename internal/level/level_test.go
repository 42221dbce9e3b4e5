package level

import (
	"testing"

	"github.com/abhisek/kahani/internal/lexicon"
)

func TestEstimate_Boundaries(t *testing.T) {
	tests := []struct {
		known int
		want  lexicon.Tier
	}{
		{-1, lexicon.TierA1},
		{0, lexicon.TierA1},
		{49, lexicon.TierA1},
		{50, lexicon.TierA2},
		{149, lexicon.TierA2},
		{150, lexicon.TierB1},
		{399, lexicon.TierB1},
		{400, lexicon.TierB2},
		{10000, lexicon.TierB2},
	}
	for _, tt := range tests {
		if got := Estimate(tt.known); got != tt.want {
			t.Errorf("Estimate(%d) = %s, want %s", tt.known, got, tt.want)
		}
	}
}

func TestEstimate_CustomPolicy(t *testing.T) {
	p := Policy{A2: 10, B1: 20, B2: 30}
	if got := p.Estimate(15); got != lexicon.TierA2 {
		t.Errorf("Estimate(15) = %s, want A2", got)
	}
	if got := p.Estimate(30); got != lexicon.TierB2 {
		t.Errorf("Estimate(30) = %s, want B2", got)
	}
}
