package storygen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/store"
)

// Context is the learner state rendered for prompt insertion. Each block is
// plain text; an empty block means there was nothing to say.
type Context struct {
	KnownWords string
	Grammar    string
	Characters string
	NewWords   string

	GrammarIDs []string
	NewWordIDs []string
}

// AssembleOptions narrows what the assembler selects.
type AssembleOptions struct {
	// IncludeWordIDs are suggested as new words ahead of any others.
	IncludeWordIDs []string

	// FocusGrammarID replaces the in-progress grammar selection with this
	// single concept when it exists.
	FocusGrammarID string
}

var knownStatuses = []lexicon.WordStatus{
	lexicon.StatusLearning,
	lexicon.StatusKnown,
	lexicon.StatusMastered,
}

var practicedGrammar = []lexicon.GrammarStatus{
	lexicon.GrammarLearning,
	lexicon.GrammarAvailable,
}

// Assembler gathers learner context for prompts. It never writes.
type Assembler struct {
	repos store.Repos
	cfg   Config
}

// NewAssembler creates an Assembler reading from repos.
func NewAssembler(repos store.Repos, cfg Config) *Assembler {
	return &Assembler{repos: repos, cfg: cfg}
}

// Assemble builds the context blocks for one learner at tier.
func (a *Assembler) Assemble(ctx context.Context, learnerID string, tier lexicon.Tier, opts AssembleOptions) (Context, error) {
	var (
		out Context
		err error
	)

	out.KnownWords, err = a.KnownWords(ctx, learnerID)
	if err != nil {
		return Context{}, err
	}

	concepts, err := a.grammar(ctx, learnerID, opts.FocusGrammarID)
	if err != nil {
		return Context{}, err
	}
	out.Grammar = renderGrammar(concepts)
	for _, c := range concepts {
		out.GrammarIDs = append(out.GrammarIDs, c.ID)
	}

	out.Characters, err = a.characters(ctx, learnerID)
	if err != nil {
		return Context{}, err
	}

	suggested, err := a.newWords(ctx, learnerID, tier, opts.IncludeWordIDs)
	if err != nil {
		return Context{}, err
	}
	out.NewWords = renderWords(suggested)
	for _, w := range suggested {
		out.NewWordIDs = append(out.NewWordIDs, w.ID)
	}

	return out, nil
}

func (a *Assembler) grammar(ctx context.Context, learnerID, focusID string) ([]store.GrammarConcept, error) {
	if focusID != "" {
		c, err := a.repos.Grammar().Concept(ctx, focusID)
		switch {
		case err == nil:
			return []store.GrammarConcept{*c}, nil
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, fmt.Errorf("focus grammar: %w", err)
		}
	}
	concepts, err := a.repos.Grammar().InProgress(ctx, learnerID, practicedGrammar, a.cfg.GrammarLimit)
	if err != nil {
		return nil, fmt.Errorf("grammar in progress: %w", err)
	}
	return concepts, nil
}

func (a *Assembler) characters(ctx context.Context, learnerID string) (string, error) {
	chars, err := a.repos.Characters().TopActive(ctx, learnerID, a.cfg.CharacterLimit)
	if err != nil {
		return "", fmt.Errorf("characters: %w", err)
	}
	if len(chars) == 0 {
		return "", nil
	}

	ids := make([]string, len(chars))
	names := make(map[string]string, len(chars))
	for i, c := range chars {
		ids[i] = c.ID
		names[c.ID] = c.Name
	}
	rels, err := a.repos.Characters().Relationships(ctx, ids)
	if err != nil {
		return "", fmt.Errorf("character relationships: %w", err)
	}
	return renderCharacters(chars, rels, names), nil
}

// newWords returns the explicitly requested entries first, topped up with
// unseen entries at tier until MinNewWords is reached, capped at
// MaxNewWords.
func (a *Assembler) newWords(ctx context.Context, learnerID string, tier lexicon.Tier, include []string) ([]store.Word, error) {
	var out []store.Word
	picked := make(map[string]bool)

	if len(include) > 0 {
		found, err := a.repos.Words().GetMany(ctx, include)
		if err != nil {
			return nil, fmt.Errorf("included words: %w", err)
		}
		for _, id := range include {
			if w, ok := found[id]; ok && !picked[id] {
				out = append(out, w)
				picked[id] = true
			}
		}
	}

	if needed := a.cfg.MinNewWords - len(out); needed > 0 {
		unseen, err := a.repos.Words().Unseen(ctx, learnerID, tier, needed+2+len(out))
		if err != nil {
			return nil, fmt.Errorf("unseen words: %w", err)
		}
		for _, w := range unseen {
			if !picked[w.ID] {
				out = append(out, w)
				picked[w.ID] = true
			}
		}
	}

	if len(out) > a.cfg.MaxNewWords {
		out = out[:a.cfg.MaxNewWords]
	}
	return out, nil
}

func renderKnownWords(entries []store.LearnerWordEntry, limit int) string {
	words := make([]store.Word, 0, min(len(entries), limit))
	for i, e := range entries {
		if i >= limit {
			break
		}
		words = append(words, e.Word)
	}
	return renderWords(words)
}

func renderWords(words []store.Word) string {
	var b strings.Builder
	for _, w := range words {
		b.WriteString("- ")
		b.WriteString(w.Surface)
		if w.Transliteration != "" {
			fmt.Fprintf(&b, " (%s)", w.Transliteration)
		}
		if w.Gloss != "" {
			fmt.Fprintf(&b, " — %s", w.Gloss)
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderGrammar(concepts []store.GrammarConcept) string {
	var b strings.Builder
	for _, c := range concepts {
		fmt.Fprintf(&b, "- %s", c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, ": %s", c.Description)
		}
		b.WriteByte('\n')
		for _, ex := range c.Examples {
			fmt.Fprintf(&b, "  e.g. %s\n", ex)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderCharacters(chars []store.Character, rels []store.Relationship, names map[string]string) string {
	var b strings.Builder
	for _, c := range chars {
		fmt.Fprintf(&b, "- %s", c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, ": %s", c.Description)
		}
		if c.Traits != "" {
			fmt.Fprintf(&b, " (%s)", c.Traits)
		}
		fmt.Fprintf(&b, " [appeared %d times]\n", c.Appearances)
	}
	for _, r := range rels {
		fmt.Fprintf(&b, "- %s → %s: %s", names[r.FromID], names[r.ToID], r.Kind)
		if r.Description != "" {
			fmt.Fprintf(&b, " (%s)", r.Description)
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// KnownWords renders only the known-vocabulary block.
func (a *Assembler) KnownWords(ctx context.Context, learnerID string) (string, error) {
	known, err := a.repos.LearnerWords().ListByStatus(ctx, learnerID, knownStatuses, a.cfg.KnownSample)
	if err != nil {
		return "", fmt.Errorf("known words: %w", err)
	}
	return renderKnownWords(known, a.cfg.KnownInPrompt), nil
}
