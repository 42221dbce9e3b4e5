package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/lexicon"
)

var exerciseColumns = []string{
	"id", "passage_id", "position", "type", "question", "correct_answer",
	"options", "target_word_id", "target_grammar_id",
}

var attemptColumns = []string{
	"id", "learner_id", "exercise_id", "answer", "correct", "feedback", "created_at",
}

// exerciseRepo implements ExerciseRepo.
type exerciseRepo struct {
	q querier
}

func (r *exerciseRepo) CreateBatch(ctx context.Context, exercises []Exercise) error {
	if len(exercises) == 0 {
		return nil
	}
	ins := sqlb.Insert(tableExercises).Columns(exerciseColumns...)
	for i := range exercises {
		e := &exercises[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		question, err := jsonObject(e.Question)
		if err != nil {
			return fmt.Errorf("encode question: %w", err)
		}
		options, err := jsonText(e.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		ins.Values(e.ID, e.PassageID, e.Position, string(e.Type), question, e.CorrectAnswer,
			options, e.TargetWordID, e.TargetGrammarID)
	}
	if _, err := exec(ctx, r.q, ins); err != nil {
		return fmt.Errorf("insert exercises: %w", err)
	}
	return nil
}

func (r *exerciseRepo) ListByPassage(ctx context.Context, passageID string) ([]Exercise, error) {
	sel := sqlb.Select(exerciseColumns...).
		From(entsql.Table(tableExercises)).
		Where(entsql.EQ("passage_id", passageID)).
		OrderBy("position")
	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer rows.Close()

	var out []Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *exerciseRepo) Get(ctx context.Context, learnerID, id string) (*Exercise, error) {
	e := entsql.Table(tableExercises).As("e")
	p := entsql.Table(tablePassages).As("p")
	sel := sqlb.Select(qualify(e, exerciseColumns)...).
		From(e).
		Join(p).
		On(e.C("passage_id"), p.C("id")).
		Where(entsql.And(
			entsql.EQ(e.C("id"), id),
			entsql.EQ(p.C("learner_id"), learnerID),
		))
	ex, err := scanExercise(queryRow(ctx, r.q, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("exercise", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get exercise: %w", err)
	}
	return &ex, nil
}

func (r *exerciseRepo) RecordAttempt(ctx context.Context, a *Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	ins := sqlb.Insert(tableAttempts).
		Columns(attemptColumns...).
		Values(a.ID, a.LearnerID, a.ExerciseID, a.Answer, boolInt(a.Correct), a.Feedback, toNanos(a.CreatedAt))
	if _, err := exec(ctx, r.q, ins); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (r *exerciseRepo) Attempts(ctx context.Context, learnerID, exerciseID string) ([]Attempt, error) {
	sel := sqlb.Select(attemptColumns...).
		From(entsql.Table(tableAttempts)).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.EQ("exercise_id", exerciseID),
		)).
		OrderBy("created_at")
	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a         Attempt
			correct   int
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.LearnerID, &a.ExerciseID, &a.Answer, &correct, &a.Feedback, &createdAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Correct = correct != 0
		a.CreatedAt = fromNanos(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanExercise(s scanner) (Exercise, error) {
	var (
		e        Exercise
		typ      string
		question string
		options  string
	)
	if err := s.Scan(&e.ID, &e.PassageID, &e.Position, &typ, &question, &e.CorrectAnswer,
		&options, &e.TargetWordID, &e.TargetGrammarID); err != nil {
		return Exercise{}, err
	}
	e.Type = lexicon.ExerciseType(typ)
	if err := fromJSON(question, &e.Question); err != nil {
		return Exercise{}, err
	}
	if err := fromJSON(options, &e.Options); err != nil {
		return Exercise{}, err
	}
	return e, nil
}
