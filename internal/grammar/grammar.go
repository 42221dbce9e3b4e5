// Package grammar manages the grammar concept catalog and each learner's
// progress through it.
package grammar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/store"
)

// Entry is a concept with the learner's status on it.
type Entry struct {
	Concept store.GrammarConcept
	Status  lexicon.GrammarStatus
	Comfort float64

	// Unlockable is set on locked concepts whose prerequisites are all
	// learned.
	Unlockable bool
}

// Service reads and updates learner grammar state.
type Service struct {
	store store.TxRepos
	log   *logger.Logger
	now   func() time.Time
}

// NewService creates a Service. A nil now uses time.Now.
func NewService(st store.TxRepos, log *logger.Logger, now func() time.Time) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, log: log, now: now}
}

// List returns every concept in teaching order with the learner's status.
// Concepts without a learner record are locked.
func (s *Service) List(ctx context.Context, learnerID string) ([]Entry, error) {
	concepts, err := s.store.Grammar().Concepts(ctx)
	if err != nil {
		return nil, err
	}
	states, err := s.store.Grammar().LearnerStates(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, len(concepts))
	for i, c := range concepts {
		e := Entry{Concept: c, Status: lexicon.GrammarLocked}
		if st, ok := states[c.ID]; ok {
			e.Status = st.Status
			e.Comfort = st.Comfort
		}
		if e.Status == lexicon.GrammarLocked {
			e.Unlockable = len(missingPrereqs(c, states)) == 0
		}
		out[i] = e
	}
	return out, nil
}

// Unlock makes a locked concept available to the learner. Every
// prerequisite must already be learned, otherwise apperr.ErrConflict is
// returned. Unlocking a concept that is already past locked is a no-op.
func (s *Service) Unlock(ctx context.Context, learnerID, conceptID string) (Entry, error) {
	var out Entry
	err := s.store.InTx(ctx, func(tx store.Repos) error {
		c, err := tx.Grammar().Concept(ctx, conceptID)
		if err != nil {
			return err
		}
		states, err := tx.Grammar().LearnerStates(ctx, learnerID)
		if err != nil {
			return err
		}
		if st, ok := states[c.ID]; ok && st.Status != lexicon.GrammarLocked {
			out = Entry{Concept: *c, Status: st.Status, Comfort: st.Comfort}
			return nil
		}

		if missing := missingPrereqs(*c, states); len(missing) > 0 {
			return fmt.Errorf("%w: prerequisites not learned: %s", apperr.ErrConflict, strings.Join(missing, ", "))
		}

		st := store.LearnerGrammar{
			LearnerID:    learnerID,
			ConceptID:    c.ID,
			Status:       lexicon.GrammarAvailable,
			IntroducedAt: s.now(),
		}
		if err := tx.Grammar().SaveLearnerState(ctx, st); err != nil {
			return err
		}
		out = Entry{Concept: *c, Status: st.Status}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.log.Info("grammar unlocked", "learner", learnerID, "concept", out.Concept.Slug)
	return out, nil
}

// SetStatus moves an unlocked concept to learning or learned with a comfort
// score in [0, 1].
func (s *Service) SetStatus(ctx context.Context, learnerID, conceptID string, status lexicon.GrammarStatus, comfort float64) (Entry, error) {
	if status != lexicon.GrammarLearning && status != lexicon.GrammarLearned {
		return Entry{}, apperr.Invalid("grammar status must be learning or learned, got %q", status)
	}
	if comfort < 0 || comfort > 1 {
		return Entry{}, apperr.Invalid("comfort must be between 0 and 1, got %v", comfort)
	}

	var out Entry
	err := s.store.InTx(ctx, func(tx store.Repos) error {
		c, err := tx.Grammar().Concept(ctx, conceptID)
		if err != nil {
			return err
		}
		states, err := tx.Grammar().LearnerStates(ctx, learnerID)
		if err != nil {
			return err
		}
		st, ok := states[c.ID]
		if !ok || st.Status == lexicon.GrammarLocked {
			return fmt.Errorf("%w: concept %q is locked", apperr.ErrConflict, c.Slug)
		}
		st.Status = status
		st.Comfort = comfort
		if err := tx.Grammar().SaveLearnerState(ctx, st); err != nil {
			return err
		}
		out = Entry{Concept: *c, Status: status, Comfort: comfort}
		return nil
	})
	return out, err
}

func missingPrereqs(c store.GrammarConcept, states map[string]store.LearnerGrammar) []string {
	var missing []string
	for _, p := range c.Prerequisites {
		if states[p].Status != lexicon.GrammarLearned {
			missing = append(missing, p)
		}
	}
	return missing
}
