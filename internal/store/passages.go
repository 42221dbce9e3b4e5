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
	"github.com/abhisek/kahani/internal/passage"
)

var passageColumns = []string{
	"id", "learner_id", "title", "content_script", "content_romanized", "content_translation",
	"sentences", "target_word_ids", "target_grammar_ids", "topic", "tier", "word_count",
	"origin", "prompt", "raw_response", "model", "rating", "created_at", "completed_at",
}

// passageRepo implements PassageRepo.
type passageRepo struct {
	q querier
}

func (r *passageRepo) Create(ctx context.Context, p *Passage) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	sentences, err := jsonText(p.Sentences)
	if err != nil {
		return fmt.Errorf("encode sentences: %w", err)
	}
	words, err := jsonText(p.TargetWordIDs)
	if err != nil {
		return fmt.Errorf("encode target words: %w", err)
	}
	grammar, err := jsonText(p.TargetGrammarIDs)
	if err != nil {
		return fmt.Errorf("encode target grammar: %w", err)
	}

	ins := sqlb.Insert(tablePassages).
		Columns(passageColumns...).
		Values(p.ID, p.LearnerID, p.Title, p.ContentScript, p.ContentRomanized, p.ContentTranslation,
			sentences, words, grammar, p.Topic, string(p.Tier), p.WordCount,
			string(p.Origin), p.Prompt, p.RawResponse, p.Model, nullInt(p.Rating),
			toNanos(p.CreatedAt), nullTime(p.CompletedAt))
	if _, err := exec(ctx, r.q, ins); err != nil {
		return fmt.Errorf("insert passage: %w", err)
	}
	return nil
}

func (r *passageRepo) Get(ctx context.Context, learnerID, id string) (*Passage, error) {
	sel := sqlb.Select(passageColumns...).
		From(entsql.Table(tablePassages)).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("learner_id", learnerID),
		))
	p, err := scanPassage(queryRow(ctx, r.q, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("passage", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get passage: %w", err)
	}
	return &p, nil
}

func (r *passageRepo) List(ctx context.Context, f PassageFilter) ([]Passage, error) {
	preds := []*entsql.Predicate{entsql.EQ("learner_id", f.LearnerID)}
	if f.Completed != nil {
		if *f.Completed {
			preds = append(preds, entsql.NotNull("completed_at"))
		} else {
			preds = append(preds, entsql.IsNull("completed_at"))
		}
	}
	sel := sqlb.Select(passageColumns...).
		From(entsql.Table(tablePassages)).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("created_at"))
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}

	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}
	defer rows.Close()

	var out []Passage
	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *passageRepo) MarkCompleted(ctx context.Context, id string, at time.Time, rating *int) (bool, error) {
	upd := sqlb.Update(tablePassages).
		Set("completed_at", toNanos(at)).
		Set("rating", nullInt(rating)).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.IsNull("completed_at"),
		))
	res, err := exec(ctx, r.q, upd)
	if err != nil {
		return false, fmt.Errorf("complete passage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *passageRepo) ExampleSentence(ctx context.Context, learnerID, wordID string) (*passage.Sentence, error) {
	sel := sqlb.Select("sentences").
		From(entsql.Table(tablePassages)).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.Contains("sentences", `"word_id":"`+wordID+`"`),
		)).
		OrderBy(entsql.Desc("created_at")).
		Limit(1)

	var raw string
	err := queryRow(ctx, r.q, sel).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find example sentence: %w", err)
	}

	var sentences []passage.Sentence
	if err := fromJSON(raw, &sentences); err != nil {
		return nil, err
	}
	for i := range sentences {
		for _, w := range sentences[i].Words {
			if w.WordID == wordID {
				return &sentences[i], nil
			}
		}
	}
	return nil, nil
}

func scanPassage(s scanner) (Passage, error) {
	var (
		p         Passage
		sentences string
		words     string
		grammar   string
		tier      string
		origin    string
		rating    sql.NullInt64
		createdAt int64
		completed sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.LearnerID, &p.Title, &p.ContentScript, &p.ContentRomanized, &p.ContentTranslation,
		&sentences, &words, &grammar, &p.Topic, &tier, &p.WordCount,
		&origin, &p.Prompt, &p.RawResponse, &p.Model, &rating, &createdAt, &completed); err != nil {
		return Passage{}, err
	}
	p.Tier = lexicon.Tier(tier)
	p.Origin = Origin(origin)
	p.Rating = intPtr(rating)
	p.CreatedAt = fromNanos(createdAt)
	p.CompletedAt = timePtr(completed)
	if err := fromJSON(sentences, &p.Sentences); err != nil {
		return Passage{}, err
	}
	if err := fromJSON(words, &p.TargetWordIDs); err != nil {
		return Passage{}, err
	}
	if err := fromJSON(grammar, &p.TargetGrammarIDs); err != nil {
		return Passage{}, err
	}
	return p, nil
}
