// Package seed loads the dictionary and grammar catalog from YAML and
// writes it to the store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/kahani/internal/grammar"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/store"
)

//go:embed default.yaml
var defaultCatalog []byte

// conceptNamespace derives stable grammar concept ids from slugs, so
// reseeding never changes an id learners already reference.
var conceptNamespace = uuid.MustParse("6f1d3c52-8a0e-4b8e-9a53-2f7c1d0e4b11")

// Catalog is the YAML document.
type Catalog struct {
	Words   []WordSpec    `yaml:"words"`
	Grammar []ConceptSpec `yaml:"grammar"`
}

// WordSpec is one dictionary entry.
type WordSpec struct {
	Surface         string   `yaml:"surface"`
	Transliteration string   `yaml:"transliteration"`
	Gloss           string   `yaml:"gloss"`
	Category        string   `yaml:"category"`
	Gender          string   `yaml:"gender"`
	Tier            string   `yaml:"tier"`
	Tags            []string `yaml:"tags"`
	Notes           string   `yaml:"notes"`
}

// ConceptSpec is one grammar concept. Prerequisites name other slugs.
type ConceptSpec struct {
	Slug          string   `yaml:"slug"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Tier          string   `yaml:"tier"`
	Examples      []string `yaml:"examples"`
	Prerequisites []string `yaml:"prerequisites"`
}

// Stats counts what Apply wrote.
type Stats struct {
	WordsCreated int
	WordsKept    int
	Concepts     int
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a catalog. Unknown fields are rejected.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Catalog
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &c, nil
}

// ConceptID returns the stable id for a grammar concept slug.
func ConceptID(slug string) string {
	return uuid.NewSHA1(conceptNamespace, []byte(slug)).String()
}

// Entries converts the word specs to store entries.
func (c *Catalog) Entries() ([]store.Word, error) {
	var errs []string
	out := make([]store.Word, 0, len(c.Words))
	for i, w := range c.Words {
		surface := strings.TrimSpace(w.Surface)
		if surface == "" {
			errs = append(errs, fmt.Sprintf("word %d: surface is empty", i))
			continue
		}
		tier, err := lexicon.ParseTier(w.Tier)
		if err != nil {
			errs = append(errs, fmt.Sprintf("word %q: %v", surface, err))
			continue
		}
		cat := lexicon.DefaultCategory
		if w.Category != "" {
			var ok bool
			if cat, ok = lexicon.ParseCategory(w.Category); !ok {
				errs = append(errs, fmt.Sprintf("word %q: unknown category %q", surface, w.Category))
				continue
			}
		}
		var gender lexicon.Gender
		if w.Gender != "" {
			g, ok := lexicon.ParseGender(w.Gender)
			if !ok {
				errs = append(errs, fmt.Sprintf("word %q: unknown gender %q", surface, w.Gender))
				continue
			}
			gender = g
		}
		tags := w.Tags
		if tags == nil {
			tags = []string{}
		}
		out = append(out, store.Word{
			Surface:         surface,
			Transliteration: w.Transliteration,
			Gloss:           w.Gloss,
			Category:        cat,
			Gender:          gender,
			Tier:            tier,
			Tags:            tags,
			Notes:           w.Notes,
			Source:          lexicon.SourceSeeded,
		})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("catalog words invalid:\n  %s", strings.Join(errs, "\n  "))
	}
	return out, nil
}

// Concepts converts the grammar specs to store concepts in catalog order
// and validates the prerequisite graph.
func (c *Catalog) Concepts() ([]store.GrammarConcept, error) {
	out := make([]store.GrammarConcept, len(c.Grammar))
	for i, g := range c.Grammar {
		prereqs := make([]string, len(g.Prerequisites))
		for j, p := range g.Prerequisites {
			prereqs[j] = ConceptID(p)
		}
		out[i] = store.GrammarConcept{
			ID:            ConceptID(g.Slug),
			Slug:          g.Slug,
			Name:          g.Name,
			Description:   g.Description,
			Tier:          lexicon.Tier(strings.ToUpper(strings.TrimSpace(g.Tier))),
			SortOrder:     i + 1,
			Examples:      g.Examples,
			Prerequisites: prereqs,
		}
	}
	if err := grammar.Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Apply writes the catalog in one transaction. Existing dictionary entries
// are kept; concepts are upserted by slug.
func Apply(ctx context.Context, st store.TxRepos, c *Catalog, log *logger.Logger) (Stats, error) {
	if log == nil {
		log = logger.Nop()
	}
	words, err := c.Entries()
	if err != nil {
		return Stats{}, err
	}
	concepts, err := c.Concepts()
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	err = st.InTx(ctx, func(tx store.Repos) error {
		for _, w := range words {
			_, created, err := tx.Words().CreateIfAbsent(ctx, w)
			if err != nil {
				return err
			}
			if created {
				stats.WordsCreated++
			} else {
				stats.WordsKept++
			}
		}
		for _, gc := range concepts {
			if err := tx.Grammar().UpsertConcept(ctx, gc); err != nil {
				return err
			}
			stats.Concepts++
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("apply catalog: %w", err)
	}

	log.Info("catalog seeded", "words_created", stats.WordsCreated, "words_kept", stats.WordsKept, "concepts", stats.Concepts)
	return stats, nil
}
