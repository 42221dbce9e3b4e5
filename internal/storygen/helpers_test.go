package storygen

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/llm"
	"github.com/abhisek/kahani/internal/passage"
	"github.com/abhisek/kahani/internal/store"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "kahani.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestService(t *testing.T, p llm.Provider, mutate func(*Config)) (*Service, *store.Store) {
	t.Helper()
	s := openStore(t)
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewService(s, p, cfg, nil, WithClock(func() time.Time { return testNow })), s
}

func seedWord(t *testing.T, s *store.Store, surface, gloss string, tier lexicon.Tier) store.Word {
	t.Helper()
	w, _, err := s.Words().CreateIfAbsent(context.Background(), store.Word{
		Surface:  surface,
		Gloss:    gloss,
		Category: lexicon.Noun,
		Tier:     tier,
		Source:   lexicon.SourceSeeded,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", surface, err)
	}
	return w
}

func setStatus(t *testing.T, s *store.Store, learnerID, wordID string, status lexicon.WordStatus) {
	t.Helper()
	err := s.LearnerWords().Save(context.Background(), &store.LearnerWord{
		LearnerID: learnerID,
		WordID:    wordID,
		Status:    status,
		Ease:      2.5,
		Source:    lexicon.SourceManual,
	})
	if err != nil {
		t.Fatalf("save learner word: %v", err)
	}
}

// marketDoc is a two-sentence passage in which बाज़ार and आम are flagged new.
func marketDoc() passage.Document {
	zero := 0
	return passage.Document{
		Title:              "बाज़ार / The market",
		ContentScript:      "मीरा बाज़ार गई। बाज़ार में आम थे।",
		ContentRomanized:   "meera bazaar gayi. bazaar mein aam the.",
		ContentTranslation: "Meera went to the market. There were mangoes in the market.",
		WordCount:          8,
		CharactersUsed:     []passage.CharacterUse{{Name: "मीरा", Role: "shopper"}},
		Sentences: []passage.Sentence{
			{
				Index:       0,
				Script:      "मीरा बाज़ार गई।",
				Romanized:   "meera bazaar gayi.",
				Translation: "Meera went to the market.",
				Words: []passage.WordAnnotation{
					{Surface: "मीरा", Romanized: "meera", Gloss: "Meera"},
					{Surface: "बाज़ार", Romanized: "bazaar", Gloss: "market", IsNew: true, Category: "NOUN", Gender: "masculine"},
					{Surface: "गई", Romanized: "gayi", Gloss: "went", Category: "VERB"},
				},
				GrammarNotes: []string{"गई is the feminine past of जाना"},
			},
			{
				Index:       1,
				Script:      "बाज़ार में आम थे।",
				Romanized:   "bazaar mein aam the.",
				Translation: "There were mangoes in the market.",
				Words: []passage.WordAnnotation{
					{Surface: "बाज़ार", Romanized: "bazaar", Gloss: "market", IsNew: true, Category: "NOUN"},
					{Surface: "में", Romanized: "mein", Gloss: "in", Category: "POSTPOSITION"},
					{Surface: "आम", Romanized: "aam", Gloss: "mango", IsNew: true, Category: "fruitword", Gender: "m"},
					{Surface: "थे", Romanized: "the", Gloss: "were", Category: "VERB"},
				},
			},
		},
		Exercises: []passage.ExerciseDraft{
			{Type: "FILL_BLANK", Question: passage.Question{Prompt: "मीरा ___ गई।", SentenceIndex: &zero}, CorrectAnswer: "बाज़ार"},
			{Type: "RIDDLE", Question: passage.Question{Prompt: "?"}, CorrectAnswer: "x"},
			{Type: "MULTIPLE_CHOICE", Question: passage.Question{Prompt: "What was in the market?"}, CorrectAnswer: "आम", Options: []string{"आम", "केला"}},
		},
	}
}

// modelOutput wraps doc the way models tend to: prose and a fenced block.
func modelOutput(t *testing.T, v any) string {
	t.Helper()
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return "Here is your story:\n```json\n" + string(b) + "\n```\nEnjoy!"
}
