// Package progress records passage completion and the vocabulary exposure
// it implies.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/srs"
	"github.com/abhisek/kahani/internal/store"
)

// Completion is the stored completion state of a passage.
type Completion struct {
	PassageID   string
	CompletedAt time.Time
	Rating      *int

	// WordsUpdated counts the learner records touched by this call. It is
	// zero when the passage had already been completed.
	WordsUpdated     int
	AlreadyCompleted bool
}

// Service completes passages.
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

// Complete marks the learner's passage completed and records one exposure
// for each of its target words. Completing an already-completed passage
// returns the stored completion and leaves progress untouched.
func (s *Service) Complete(ctx context.Context, learnerID, passageID string, rating *int) (*Completion, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, apperr.Invalid("rating must be between 1 and 5, got %d", *rating)
	}

	now := s.now()
	var out *Completion
	err := s.store.InTx(ctx, func(tx store.Repos) error {
		p, err := tx.Passages().Get(ctx, learnerID, passageID)
		if err != nil {
			return err
		}
		if p.CompletedAt != nil {
			out = stored(p)
			return nil
		}

		marked, err := tx.Passages().MarkCompleted(ctx, p.ID, now, rating)
		if err != nil {
			return err
		}
		if !marked {
			p, err = tx.Passages().Get(ctx, learnerID, passageID)
			if err != nil {
				return err
			}
			out = stored(p)
			return nil
		}

		n, err := recordExposure(ctx, tx.LearnerWords(), learnerID, p.TargetWordIDs, now)
		if err != nil {
			return err
		}
		out = &Completion{PassageID: p.ID, CompletedAt: now, Rating: rating, WordsUpdated: n}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete passage: %w", err)
	}

	if out.AlreadyCompleted {
		s.log.Debug("passage already completed", "learner", learnerID, "passage_id", passageID)
	} else {
		s.log.Info("passage completed", "learner", learnerID, "passage_id", passageID, "words", out.WordsUpdated)
	}
	return out, nil
}

func stored(p *store.Passage) *Completion {
	c := &Completion{PassageID: p.ID, Rating: p.Rating, AlreadyCompleted: true}
	if p.CompletedAt != nil {
		c.CompletedAt = *p.CompletedAt
	}
	return c
}

// recordExposure upserts the learner's record for each word. Existing
// records gain one exposure, leave "new" for "learning" and become due now
// if they had no due time. Missing records start in "learning", due now.
func recordExposure(ctx context.Context, repo store.LearnerWordRepo, learnerID string, wordIDs []string, now time.Time) (int, error) {
	existing, err := repo.GetMany(ctx, learnerID, wordIDs)
	if err != nil {
		return 0, err
	}

	n := 0
	seen := make(map[string]bool, len(wordIDs))
	for _, id := range wordIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		due := now
		lw, ok := existing[id]
		if ok {
			lw.TimesSeen++
			if lw.Status == lexicon.StatusNew {
				lw.Status = lexicon.StatusLearning
			}
			if lw.NextDueAt == nil {
				lw.NextDueAt = &due
			}
		} else {
			lw = store.LearnerWord{
				LearnerID: learnerID,
				WordID:    id,
				Status:    lexicon.StatusLearning,
				TimesSeen: 1,
				NextDueAt: &due,
				Ease:      srs.DefaultEase,
				Source:    lexicon.SourceStory,
			}
		}
		if err := repo.Save(ctx, &lw); err != nil {
			return n, fmt.Errorf("save word %s: %w", id, err)
		}
		n++
	}
	return n, nil
}
