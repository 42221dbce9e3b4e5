// Package lexicon holds the closed vocabularies shared across the learning
// pipeline: proficiency tiers, grammatical categories, learner statuses,
// provenance tags and exercise types.
package lexicon

import (
	"fmt"
	"strings"
)

// Tier is a proficiency tier. Tiers are ordered A1 < A2 < B1 < B2.
type Tier string

const (
	TierA1 Tier = "A1"
	TierA2 Tier = "A2"
	TierB1 Tier = "B1"
	TierB2 Tier = "B2"
)

// AllTiers returns the tiers in ascending order.
func AllTiers() []Tier {
	return []Tier{TierA1, TierA2, TierB1, TierB2}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierA1, TierA2, TierB1, TierB2:
		return true
	}
	return false
}

// ParseTier parses a tier label case-insensitively.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// Category is the grammatical category (part of speech) of a word.
type Category string

const (
	Noun         Category = "NOUN"
	Verb         Category = "VERB"
	Adjective    Category = "ADJECTIVE"
	Adverb       Category = "ADVERB"
	Postposition Category = "POSTPOSITION"
	Particle     Category = "PARTICLE"
	Pronoun      Category = "PRONOUN"
	Conjunction  Category = "CONJUNCTION"
)

// DefaultCategory is used when a proposed category is missing or invalid.
const DefaultCategory = Noun

// AllCategories returns every category.
func AllCategories() []Category {
	return []Category{Noun, Verb, Adjective, Adverb, Postposition, Particle, Pronoun, Conjunction}
}

// ParseCategory parses a category label case-insensitively. The second
// return value is false when s does not name a category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllCategories() {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// CategoryOrDefault returns the parsed category or DefaultCategory.
func CategoryOrDefault(s string) Category {
	if c, ok := ParseCategory(s); ok {
		return c
	}
	return DefaultCategory
}

// Gender is the grammatical gender of a noun.
type Gender string

const (
	Masculine Gender = "masculine"
	Feminine  Gender = "feminine"
)

// ParseGender accepts "m", "f", "masculine" or "feminine".
func ParseGender(s string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "masc", "masculine":
		return Masculine, true
	case "f", "fem", "feminine":
		return Feminine, true
	}
	return "", false
}

// WordStatus is a learner's acquisition status for one word.
type WordStatus string

const (
	StatusNew      WordStatus = "new"
	StatusLearning WordStatus = "learning"
	StatusKnown    WordStatus = "known"
	StatusMastered WordStatus = "mastered"
)

// Rank orders statuses: new < learning < known < mastered.
func (s WordStatus) Rank() int {
	switch s {
	case StatusLearning:
		return 1
	case StatusKnown:
		return 2
	case StatusMastered:
		return 3
	default:
		return 0
	}
}

// Next returns the status one step above s. Mastered is terminal.
func (s WordStatus) Next() WordStatus {
	switch s {
	case StatusLearning:
		return StatusKnown
	case StatusKnown, StatusMastered:
		return StatusMastered
	default:
		return StatusLearning
	}
}

// IsKnown reports whether s counts toward the learner's known vocabulary.
func (s WordStatus) IsKnown() bool {
	return s == StatusKnown || s == StatusMastered
}

// ParseWordStatus parses a status label.
func ParseWordStatus(s string) (WordStatus, error) {
	st := WordStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusNew, StatusLearning, StatusKnown, StatusMastered:
		return st, nil
	}
	return "", fmt.Errorf("unknown word status %q", s)
}

// Source records where a dictionary entry or learner record came from.
type Source string

const (
	SourceSeeded Source = "seeded"
	SourceStory  Source = "story"
	SourceImport Source = "import"
	SourceManual Source = "manual"
	SourceReview Source = "review"
)

// GrammarStatus is a learner's status for one grammar concept.
type GrammarStatus string

const (
	GrammarLocked    GrammarStatus = "locked"
	GrammarAvailable GrammarStatus = "available"
	GrammarLearning  GrammarStatus = "learning"
	GrammarLearned   GrammarStatus = "learned"
)

// ParseGrammarStatus parses a grammar status label.
func ParseGrammarStatus(s string) (GrammarStatus, error) {
	st := GrammarStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case GrammarLocked, GrammarAvailable, GrammarLearning, GrammarLearned:
		return st, nil
	}
	return "", fmt.Errorf("unknown grammar status %q", s)
}

// ExerciseType tags the kind of exercise attached to a passage.
type ExerciseType string

const (
	ExerciseComprehension     ExerciseType = "comprehension"
	ExerciseFillBlank         ExerciseType = "fill_blank"
	ExerciseTranslateToTarget ExerciseType = "translate_to_target"
	ExerciseTranslateToSource ExerciseType = "translate_to_source"
	ExerciseWordOrder         ExerciseType = "word_order"
	ExerciseMultipleChoice    ExerciseType = "multiple_choice"
)

// ParseExerciseType maps a model-proposed label onto an ExerciseType.
// Language-specific labels such as TRANSLATE_TO_HINDI and
// TRANSLATE_TO_ENGLISH are accepted.
func ParseExerciseType(s string) (ExerciseType, bool) {
	label := strings.ToLower(strings.TrimSpace(s))
	label = strings.ReplaceAll(label, "-", "_")
	label = strings.ReplaceAll(label, " ", "_")
	switch label {
	case "comprehension":
		return ExerciseComprehension, true
	case "fill_blank", "fill_in_the_blank", "fill_in_blank":
		return ExerciseFillBlank, true
	case "word_order":
		return ExerciseWordOrder, true
	case "multiple_choice":
		return ExerciseMultipleChoice, true
	case "translate_to_target":
		return ExerciseTranslateToTarget, true
	case "translate_to_source", "translate_to_english":
		return ExerciseTranslateToSource, true
	}
	if strings.HasPrefix(label, "translate_to_") {
		return ExerciseTranslateToTarget, true
	}
	return "", false
}
