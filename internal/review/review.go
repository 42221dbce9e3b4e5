// Package review serves due vocabulary and records review ratings.
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/passage"
	"github.com/abhisek/kahani/internal/srs"
	"github.com/abhisek/kahani/internal/store"
)

// Due queue bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// Item is one reviewable word.
type Item struct {
	State store.LearnerWord
	Word  store.Word

	// Example is a sentence from one of the learner's passages that used
	// the word, when one exists.
	Example *passage.Sentence
}

// Outcome is the result of one rating.
type Outcome struct {
	WordID       string
	Quality      srs.Quality
	Status       lexicon.WordStatus
	IntervalDays float64
	Ease         float64
	Familiarity  float64
	NextDueAt    time.Time
}

// Summary describes the learner's review workload.
type Summary struct {
	DueNow        int
	ReviewedToday int
	NextReviewAt  *time.Time
}

// Service reads and schedules the review queue.
type Service struct {
	repos store.Repos
	log   *logger.Logger
	now   func() time.Time
}

// NewService creates a Service. A nil now uses time.Now.
func NewService(repos store.Repos, log *logger.Logger, now func() time.Time) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repos: repos, log: log, now: now}
}

// Due returns up to limit due items, earliest due first with never-scheduled
// items leading. limit <= 0 selects DefaultLimit; larger values are capped
// at MaxLimit.
func (s *Service) Due(ctx context.Context, learnerID string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	entries, err := s.repos.LearnerWords().Due(ctx, learnerID, s.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("due words: %w", err)
	}

	items := make([]Item, len(entries))
	for i, e := range entries {
		ex, err := s.repos.Passages().ExampleSentence(ctx, learnerID, e.Word.ID)
		if err != nil {
			s.log.Warn("example sentence lookup failed", "word_id", e.Word.ID, "error", err)
		}
		items[i] = Item{State: e.State, Word: e.Word, Example: ex}
	}
	return items, nil
}

// Submit applies one rating to the learner's record for wordID and
// persists the new schedule.
func (s *Service) Submit(ctx context.Context, learnerID, wordID string, q srs.Quality) (Outcome, error) {
	updated, err := s.submit(ctx, learnerID, wordID, q)
	if err != nil {
		return Outcome{}, err
	}
	return outcome(updated, q), nil
}

func (s *Service) submit(ctx context.Context, learnerID, wordID string, q srs.Quality) (store.LearnerWord, error) {
	if err := validQuality(q); err != nil {
		return store.LearnerWord{}, err
	}

	lw, err := s.repos.LearnerWords().Get(ctx, learnerID, wordID)
	if err != nil {
		return store.LearnerWord{}, err
	}
	if lw == nil {
		return store.LearnerWord{}, apperr.NotFound("learner word", wordID)
	}

	updated := applyRating(*lw, q, s.now())
	if err := s.repos.LearnerWords().Save(ctx, &updated); err != nil {
		return store.LearnerWord{}, fmt.Errorf("save review: %w", err)
	}

	s.log.Debug("review recorded",
		"learner", learnerID,
		"word_id", wordID,
		"quality", int(q),
		"status", string(updated.Status),
		"interval_days", updated.IntervalDays,
	)
	return updated, nil
}

func validQuality(q srs.Quality) error {
	if !q.Valid() {
		return apperr.Invalid("quality must be between 0 and 5, got %d", q)
	}
	return nil
}

// Summary reports how many items are due, how many were reviewed since the
// start of today and when the next future review falls due.
func (s *Service) Summary(ctx context.Context, learnerID string) (Summary, error) {
	now := s.now()
	due, err := s.repos.LearnerWords().Due(ctx, learnerID, now, 0)
	if err != nil {
		return Summary{}, fmt.Errorf("due words: %w", err)
	}
	y, m, d := now.Date()
	reviewed, err := s.repos.LearnerWords().ReviewedSince(ctx, learnerID, time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
	if err != nil {
		return Summary{}, err
	}
	next, err := s.repos.LearnerWords().NextDueAfter(ctx, learnerID, now)
	if err != nil {
		return Summary{}, err
	}
	return Summary{DueNow: len(due), ReviewedToday: reviewed, NextReviewAt: next}, nil
}

func applyRating(lw store.LearnerWord, q srs.Quality, now time.Time) store.LearnerWord {
	c := srs.Apply(srs.Card{
		Status:        lw.Status,
		IntervalDays:  lw.IntervalDays,
		Ease:          lw.Ease,
		TimesReviewed: lw.TimesReviewed,
		TimesCorrect:  lw.TimesCorrect,
		Familiarity:   lw.Familiarity,
		LastSeenAt:    lw.LastSeenAt,
		NextDueAt:     lw.NextDueAt,
	}, q, now)

	lw.Status = c.Status
	lw.IntervalDays = c.IntervalDays
	lw.Ease = c.Ease
	lw.TimesReviewed = c.TimesReviewed
	lw.TimesCorrect = c.TimesCorrect
	lw.Familiarity = c.Familiarity
	lw.LastSeenAt = c.LastSeenAt
	lw.NextDueAt = c.NextDueAt
	return lw
}

func outcome(lw store.LearnerWord, q srs.Quality) Outcome {
	o := Outcome{
		WordID:       lw.WordID,
		Quality:      q,
		Status:       lw.Status,
		IntervalDays: lw.IntervalDays,
		Ease:         lw.Ease,
		Familiarity:  lw.Familiarity,
	}
	if lw.NextDueAt != nil {
		o.NextDueAt = *lw.NextDueAt
	}
	return o
}
