package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/kahani/internal/lexicon"
)

var learnerWordColumns = []string{
	"id", "learner_id", "word_id", "status", "familiarity",
	"times_seen", "times_reviewed", "times_correct",
	"last_seen_at", "next_due_at", "interval_days", "ease", "source", "created_at",
}

// learnerWordMutable lists the columns an upsert overwrites. id, source
// and created_at keep their first-write values.
var learnerWordMutable = []string{
	"status", "familiarity", "times_seen", "times_reviewed", "times_correct",
	"last_seen_at", "next_due_at", "interval_days", "ease",
}

// reviewable statuses are the ones the review queue draws from.
var reviewable = []any{string(lexicon.StatusLearning), string(lexicon.StatusKnown)}

// learnerWordRepo implements LearnerWordRepo.
type learnerWordRepo struct {
	q querier
}

func (r *learnerWordRepo) Get(ctx context.Context, learnerID, wordID string) (*LearnerWord, error) {
	sel := sqlb.Select(learnerWordColumns...).
		From(entsql.Table(tableLearnerWords)).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.EQ("word_id", wordID),
		))
	lw, err := scanLearnerWord(queryRow(ctx, r.q, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get learner word: %w", err)
	}
	return &lw, nil
}

func (r *learnerWordRepo) GetMany(ctx context.Context, learnerID string, wordIDs []string) (map[string]LearnerWord, error) {
	out := make(map[string]LearnerWord, len(wordIDs))
	if len(wordIDs) == 0 {
		return out, nil
	}
	sel := sqlb.Select(learnerWordColumns...).
		From(entsql.Table(tableLearnerWords)).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.In("word_id", anySlice(wordIDs)...),
		))
	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("query learner words: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		lw, err := scanLearnerWord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan learner word: %w", err)
		}
		out[lw.WordID] = lw
	}
	return out, rows.Err()
}

func (r *learnerWordRepo) Save(ctx context.Context, lw *LearnerWord) error {
	if lw.IntervalDays < 0 || lw.Ease < 0 {
		return fmt.Errorf("learner word %s: negative interval or ease", lw.WordID)
	}
	if lw.ID == "" {
		lw.ID = uuid.NewString()
	}
	if lw.CreatedAt.IsZero() {
		lw.CreatedAt = time.Now()
	}
	if lw.Source == "" {
		lw.Source = lexicon.SourceStory
	}

	ins := sqlb.Insert(tableLearnerWords).
		Columns(learnerWordColumns...).
		Values(lw.ID, lw.LearnerID, lw.WordID, string(lw.Status), lw.Familiarity,
			lw.TimesSeen, lw.TimesReviewed, lw.TimesCorrect,
			nullTime(lw.LastSeenAt), nullTime(lw.NextDueAt), lw.IntervalDays, lw.Ease,
			string(lw.Source), toNanos(lw.CreatedAt)).
		OnConflict(
			entsql.ConflictColumns("learner_id", "word_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range learnerWordMutable {
					u.SetExcluded(c)
				}
			}),
		)
	if _, err := exec(ctx, r.q, ins); err != nil {
		return fmt.Errorf("upsert learner word: %w", err)
	}

	// The row may predate this call, in which case its id wins.
	sel := sqlb.Select("id").
		From(entsql.Table(tableLearnerWords)).
		Where(entsql.And(
			entsql.EQ("learner_id", lw.LearnerID),
			entsql.EQ("word_id", lw.WordID),
		))
	if err := queryRow(ctx, r.q, sel).Scan(&lw.ID); err != nil {
		return fmt.Errorf("read learner word id: %w", err)
	}
	return nil
}

func (r *learnerWordRepo) ListByStatus(ctx context.Context, learnerID string, statuses []lexicon.WordStatus, limit int) ([]LearnerWordEntry, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	st := make([]any, len(statuses))
	for i, s := range statuses {
		st[i] = string(s)
	}

	lw, v, sel := r.joined()
	sel.Where(entsql.And(
		entsql.EQ(lw.C("learner_id"), learnerID),
		entsql.In(lw.C("status"), st...),
	)).OrderBy(v.C("surface"))
	if limit > 0 {
		sel.Limit(limit)
	}
	return r.collect(ctx, sel)
}

func (r *learnerWordRepo) Due(ctx context.Context, learnerID string, now time.Time, limit int) ([]LearnerWordEntry, error) {
	lw, _, sel := r.joined()
	sel.Where(entsql.And(
		entsql.EQ(lw.C("learner_id"), learnerID),
		entsql.In(lw.C("status"), reviewable...),
		entsql.Or(
			entsql.IsNull(lw.C("next_due_at")),
			entsql.LTE(lw.C("next_due_at"), toNanos(now)),
		),
	)).OrderBy(lw.C("next_due_at"), lw.C("created_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	return r.collect(ctx, sel)
}

func (r *learnerWordRepo) CountByStatus(ctx context.Context, learnerID string) (map[lexicon.WordStatus]int, error) {
	sel := sqlb.Select("status", entsql.Count("*")).
		From(entsql.Table(tableLearnerWords)).
		Where(entsql.EQ("learner_id", learnerID)).
		GroupBy("status")
	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("count learner words: %w", err)
	}
	defer rows.Close()

	out := make(map[lexicon.WordStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[lexicon.WordStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *learnerWordRepo) ReviewedSince(ctx context.Context, learnerID string, since time.Time) (int, error) {
	sel := sqlb.Select(entsql.Count("*")).
		From(entsql.Table(tableLearnerWords)).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.GT("times_reviewed", 0),
			entsql.GTE("last_seen_at", toNanos(since)),
		))
	var n int
	if err := queryRow(ctx, r.q, sel).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviewed: %w", err)
	}
	return n, nil
}

func (r *learnerWordRepo) NextDueAfter(ctx context.Context, learnerID string, now time.Time) (*time.Time, error) {
	sel := sqlb.Select(entsql.Min("next_due_at")).
		From(entsql.Table(tableLearnerWords)).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.In("status", reviewable...),
			entsql.GT("next_due_at", toNanos(now)),
		))
	var next sql.NullInt64
	if err := queryRow(ctx, r.q, sel).Scan(&next); err != nil {
		return nil, fmt.Errorf("next due: %w", err)
	}
	return timePtr(next), nil
}

// joined selects learner rows with their dictionary entries. Both tables
// carry explicit aliases; Join renames an unaliased table to t1, which would
// orphan columns qualified before the join.
func (r *learnerWordRepo) joined() (lw, v *entsql.SelectTable, sel *entsql.Selector) {
	lw = entsql.Table(tableLearnerWords).As("lw")
	v = entsql.Table(tableWords).As("v")
	cols := append(qualify(lw, learnerWordColumns), qualify(v, wordColumns)...)
	sel = sqlb.Select(cols...).
		From(lw).
		Join(v).
		On(lw.C("word_id"), v.C("id"))
	return lw, v, sel
}

func (r *learnerWordRepo) collect(ctx context.Context, sel *entsql.Selector) ([]LearnerWordEntry, error) {
	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("query learner words: %w", err)
	}
	defer rows.Close()

	var out []LearnerWordEntry
	for rows.Next() {
		e, err := scanLearnerWordEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan learner word: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// learnerWordFields returns scan targets for a learner_words row and a
// function that finishes decoding once Scan has run.
func learnerWordFields(lw *LearnerWord) ([]any, func()) {
	var (
		status    string
		lastSeen  sql.NullInt64
		nextDue   sql.NullInt64
		source    string
		createdAt int64
	)
	dest := []any{
		&lw.ID, &lw.LearnerID, &lw.WordID, &status, &lw.Familiarity,
		&lw.TimesSeen, &lw.TimesReviewed, &lw.TimesCorrect,
		&lastSeen, &nextDue, &lw.IntervalDays, &lw.Ease, &source, &createdAt,
	}
	return dest, func() {
		lw.Status = lexicon.WordStatus(status)
		lw.LastSeenAt = timePtr(lastSeen)
		lw.NextDueAt = timePtr(nextDue)
		lw.Source = lexicon.Source(source)
		lw.CreatedAt = fromNanos(createdAt)
	}
}

func scanLearnerWord(s scanner) (LearnerWord, error) {
	var lw LearnerWord
	dest, finish := learnerWordFields(&lw)
	if err := s.Scan(dest...); err != nil {
		return LearnerWord{}, err
	}
	finish()
	return lw, nil
}

func scanLearnerWordEntry(s scanner) (LearnerWordEntry, error) {
	var e LearnerWordEntry
	stateDest, finishState := learnerWordFields(&e.State)
	wordDest, finishWord := wordFields(&e.Word)
	if err := s.Scan(append(stateDest, wordDest...)...); err != nil {
		return LearnerWordEntry{}, err
	}
	finishState()
	if err := finishWord(); err != nil {
		return LearnerWordEntry{}, err
	}
	return e, nil
}
