package storygen

import (
	"context"
	"fmt"

	"github.com/abhisek/kahani/internal/store"
)

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 50

// List returns the learner's passages, newest first. A nil completed
// returns both finished and unfinished passages.
func (s *Service) List(ctx context.Context, learnerID string, completed *bool, limit int) ([]store.Passage, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	ps, err := s.store.Passages().List(ctx, store.PassageFilter{
		LearnerID: learnerID,
		Completed: completed,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list passages: %w", err)
	}
	return ps, nil
}

// Get loads one of the learner's passages with its exercises and cast.
func (s *Service) Get(ctx context.Context, learnerID, id string) (*Result, error) {
	p, err := s.store.Passages().Get(ctx, learnerID, id)
	if err != nil {
		return nil, err
	}
	exercises, err := s.store.Exercises().ListByPassage(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	cast, err := s.store.Characters().ByPassage(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	return &Result{Passage: *p, Exercises: exercises, Characters: cast}, nil
}
