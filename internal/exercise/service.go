package exercise

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/store"
)

// Service lists exercises and records graded attempts.
type Service struct {
	repos store.Repos
	eval  *Evaluator
	log   *logger.Logger
	now   func() time.Time
}

// NewService creates a Service. A nil now uses time.Now.
func NewService(repos store.Repos, eval *Evaluator, log *logger.Logger, now func() time.Time) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repos: repos, eval: eval, log: log, now: now}
}

// List returns the exercises of one of the learner's passages in order.
func (s *Service) List(ctx context.Context, learnerID, passageID string) ([]store.Exercise, error) {
	if _, err := s.repos.Passages().Get(ctx, learnerID, passageID); err != nil {
		return nil, err
	}
	return s.repos.Exercises().ListByPassage(ctx, passageID)
}

// Answer grades answer and records the attempt.
func (s *Service) Answer(ctx context.Context, learnerID, exerciseID, answer string) (Result, error) {
	if strings.TrimSpace(answer) == "" {
		return Result{}, apperr.Invalid("answer is empty")
	}
	ex, err := s.repos.Exercises().Get(ctx, learnerID, exerciseID)
	if err != nil {
		return Result{}, err
	}

	res, err := s.eval.Evaluate(ctx, *ex, answer)
	if err != nil {
		return Result{}, err
	}

	err = s.repos.Exercises().RecordAttempt(ctx, &store.Attempt{
		LearnerID:  learnerID,
		ExerciseID: ex.ID,
		Answer:     answer,
		Correct:    res.Correct,
		Feedback:   res.Feedback,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("record attempt: %w", err)
	}

	s.log.Debug("exercise answered",
		"learner", learnerID,
		"exercise_id", ex.ID,
		"type", string(ex.Type),
		"correct", res.Correct,
		"method", string(res.Method),
	)
	return res, nil
}
