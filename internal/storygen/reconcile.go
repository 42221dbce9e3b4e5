package storygen

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/passage"
	"github.com/abhisek/kahani/internal/store"
)

// reconcileConcurrency bounds concurrent dictionary lookups.
const reconcileConcurrency = 4

// Reconciler matches model-flagged new words against the dictionary and
// the learner's progress.
type Reconciler struct {
	words   store.WordRepo
	learner store.LearnerWordRepo
	log     *logger.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(words store.WordRepo, learner store.LearnerWordRepo, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{words: words, learner: learner, log: log}
}

// candidate is the first annotation seen for one new surface form.
type candidate struct {
	annotation passage.WordAnnotation
	entry      *store.Word
}

// Reconcile mutates doc so that words the learner already knows are no
// longer flagged new, creates dictionary entries for unknown surfaces, and
// assigns dictionary ids to every annotation whose surface has an entry.
// It returns the ids of the words the passage introduces, in order of
// first occurrence. A word that cannot be looked up or created is logged
// and dropped.
func (r *Reconciler) Reconcile(ctx context.Context, learnerID string, doc *passage.Document, tier lexicon.Tier, source lexicon.Source) ([]string, error) {
	cands := newWordCandidates(doc)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for i := range cands {
		c := &cands[i]
		g.Go(func() error {
			w, err := r.resolve(gctx, c.annotation, tier, source)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.log.Warn("skipping new word", "surface", c.annotation.Surface, "error", err)
				return nil
			}
			c.entry = &w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(cands))
	for _, c := range cands {
		if c.entry != nil {
			ids = append(ids, c.entry.ID)
		}
	}
	states, err := r.learner.GetMany(ctx, learnerID, ids)
	if err != nil {
		return nil, fmt.Errorf("learner states: %w", err)
	}

	var targets []string
	for _, c := range cands {
		if c.entry == nil {
			continue
		}
		if st, ok := states[c.entry.ID]; ok && st.Status.IsKnown() {
			doc.ClearNewFlag(c.annotation.Surface)
			continue
		}
		targets = append(targets, c.entry.ID)
	}

	if err := r.assignIDs(ctx, doc); err != nil {
		return nil, err
	}
	return targets, nil
}

// resolve finds the entry for a surface or creates it from the annotation.
// A concurrent creator winning the race is treated as success.
func (r *Reconciler) resolve(ctx context.Context, a passage.WordAnnotation, tier lexicon.Tier, source lexicon.Source) (store.Word, error) {
	existing, err := r.words.FindBySurface(ctx, a.Surface)
	if err != nil {
		return store.Word{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	category := lexicon.CategoryOrDefault(a.Category)
	gender, _ := lexicon.ParseGender(a.Gender)
	w, created, err := r.words.CreateIfAbsent(ctx, store.Word{
		Surface:         a.Surface,
		Transliteration: a.Romanized,
		Gloss:           a.Gloss,
		Category:        category,
		Gender:          gender,
		Tier:            tier,
		Tags:            []string{},
		Source:          source,
	})
	if err != nil {
		return store.Word{}, err
	}
	if created {
		r.log.Debug("dictionary entry created", "surface", w.Surface, "category", string(w.Category), "source", string(source))
	}
	return w, nil
}

// assignIDs sets word_id on every annotation whose surface is in the
// dictionary.
func (r *Reconciler) assignIDs(ctx context.Context, doc *passage.Document) error {
	surfaces := doc.Surfaces()
	if len(surfaces) == 0 {
		return nil
	}
	found, err := r.words.FindBySurfaces(ctx, surfaces)
	if err != nil {
		return fmt.Errorf("resolve annotation ids: %w", err)
	}
	for surface, w := range found {
		doc.AssignWordID(surface, w.ID)
	}
	return nil
}

// newWordCandidates returns the annotations flagged new, deduplicated by
// surface form with the first occurrence winning.
func newWordCandidates(doc *passage.Document) []candidate {
	seen := make(map[string]bool)
	var out []candidate
	for _, s := range doc.Sentences {
		for _, w := range s.Words {
			if !w.IsNew || w.Surface == "" || seen[w.Surface] {
				continue
			}
			seen[w.Surface] = true
			out = append(out, candidate{annotation: w})
		}
	}
	return out
}
