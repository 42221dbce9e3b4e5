package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/lexicon"
)

var grammarColumns = []string{
	"id", "slug", "name", "description", "tier", "sort_order", "examples", "prerequisites",
}

var learnerGrammarColumns = []string{
	"learner_id", "concept_id", "status", "comfort", "introduced_at",
}

// grammarRepo implements GrammarRepo.
type grammarRepo struct {
	q querier
}

func (r *grammarRepo) UpsertConcept(ctx context.Context, c GrammarConcept) error {
	examples, err := jsonText(c.Examples)
	if err != nil {
		return fmt.Errorf("encode examples: %w", err)
	}
	prereqs, err := jsonText(c.Prerequisites)
	if err != nil {
		return fmt.Errorf("encode prerequisites: %w", err)
	}

	ins := sqlb.Insert(tableGrammar).
		Columns(grammarColumns...).
		Values(c.ID, c.Slug, c.Name, c.Description, string(c.Tier), c.SortOrder, examples, prereqs).
		OnConflict(
			entsql.ConflictColumns("slug"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, col := range grammarColumns[2:] {
					u.SetExcluded(col)
				}
			}),
		)
	if _, err := exec(ctx, r.q, ins); err != nil {
		return fmt.Errorf("upsert grammar concept %q: %w", c.Slug, err)
	}
	return nil
}

func (r *grammarRepo) Concepts(ctx context.Context) ([]GrammarConcept, error) {
	sel := sqlb.Select(grammarColumns...).
		From(entsql.Table(tableGrammar)).
		OrderBy("sort_order", "slug")
	return r.collect(ctx, sel)
}

func (r *grammarRepo) Concept(ctx context.Context, id string) (*GrammarConcept, error) {
	sel := sqlb.Select(grammarColumns...).
		From(entsql.Table(tableGrammar)).
		Where(entsql.EQ("id", id))
	c, err := scanGrammar(queryRow(ctx, r.q, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("grammar concept", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get grammar concept: %w", err)
	}
	return &c, nil
}

func (r *grammarRepo) LearnerStates(ctx context.Context, learnerID string) (map[string]LearnerGrammar, error) {
	sel := sqlb.Select(learnerGrammarColumns...).
		From(entsql.Table(tableLearnerGrammar)).
		Where(entsql.EQ("learner_id", learnerID))
	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("query learner grammar: %w", err)
	}
	defer rows.Close()

	out := make(map[string]LearnerGrammar)
	for rows.Next() {
		var (
			s          LearnerGrammar
			status     string
			introduced int64
		)
		if err := rows.Scan(&s.LearnerID, &s.ConceptID, &status, &s.Comfort, &introduced); err != nil {
			return nil, fmt.Errorf("scan learner grammar: %w", err)
		}
		s.Status = lexicon.GrammarStatus(status)
		s.IntroducedAt = fromNanos(introduced)
		out[s.ConceptID] = s
	}
	return out, rows.Err()
}

func (r *grammarRepo) SaveLearnerState(ctx context.Context, s LearnerGrammar) error {
	if s.IntroducedAt.IsZero() {
		s.IntroducedAt = time.Now()
	}
	ins := sqlb.Insert(tableLearnerGrammar).
		Columns(learnerGrammarColumns...).
		Values(s.LearnerID, s.ConceptID, string(s.Status), s.Comfort, toNanos(s.IntroducedAt)).
		OnConflict(
			entsql.ConflictColumns("learner_id", "concept_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("status")
				u.SetExcluded("comfort")
			}),
		)
	if _, err := exec(ctx, r.q, ins); err != nil {
		return fmt.Errorf("save learner grammar: %w", err)
	}
	return nil
}

func (r *grammarRepo) InProgress(ctx context.Context, learnerID string, statuses []lexicon.GrammarStatus, limit int) ([]GrammarConcept, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	st := make([]any, len(statuses))
	for i, s := range statuses {
		st[i] = string(s)
	}

	g := entsql.Table(tableGrammar).As("g")
	lg := entsql.Table(tableLearnerGrammar).As("lg")
	sel := sqlb.Select(qualify(g, grammarColumns)...).
		From(g).
		Join(lg).
		On(g.C("id"), lg.C("concept_id")).
		Where(entsql.And(
			entsql.EQ(lg.C("learner_id"), learnerID),
			entsql.In(lg.C("status"), st...),
		)).
		OrderBy(g.C("sort_order"), g.C("slug"))
	if limit > 0 {
		sel.Limit(limit)
	}
	return r.collect(ctx, sel)
}

func (r *grammarRepo) collect(ctx context.Context, sel *entsql.Selector) ([]GrammarConcept, error) {
	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("query grammar concepts: %w", err)
	}
	defer rows.Close()

	var out []GrammarConcept
	for rows.Next() {
		c, err := scanGrammar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grammar concept: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanGrammar(s scanner) (GrammarConcept, error) {
	var (
		c        GrammarConcept
		tier     string
		examples string
		prereqs  string
	)
	if err := s.Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &tier, &c.SortOrder, &examples, &prereqs); err != nil {
		return GrammarConcept{}, err
	}
	c.Tier = lexicon.Tier(tier)
	if err := fromJSON(examples, &c.Examples); err != nil {
		return GrammarConcept{}, err
	}
	if err := fromJSON(prereqs, &c.Prerequisites); err != nil {
		return GrammarConcept{}, err
	}
	return c, nil
}
