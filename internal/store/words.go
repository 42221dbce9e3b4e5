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

var wordColumns = []string{
	"id", "surface", "transliteration", "gloss", "category", "gender",
	"tier", "tags", "notes", "source", "created_at",
}

// wordRepo implements WordRepo.
type wordRepo struct {
	q querier
}

func (r *wordRepo) CreateIfAbsent(ctx context.Context, w Word) (Word, bool, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	if w.Category != lexicon.Noun {
		w.Gender = ""
	}
	tags, err := jsonText(w.Tags)
	if err != nil {
		return Word{}, false, fmt.Errorf("encode tags: %w", err)
	}

	ins := sqlb.Insert(tableWords).
		Columns(wordColumns...).
		Values(w.ID, w.Surface, w.Transliteration, w.Gloss, string(w.Category),
			nullString(string(w.Gender)), string(w.Tier), tags, w.Notes,
			string(w.Source), toNanos(w.CreatedAt)).
		OnConflict(entsql.ConflictColumns("surface"), entsql.DoNothing())

	res, err := exec(ctx, r.q, ins)
	if err != nil {
		return Word{}, false, fmt.Errorf("insert vocabulary entry %q: %w", w.Surface, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Word{}, false, fmt.Errorf("rows affected: %w", err)
	}

	stored, err := r.FindBySurface(ctx, w.Surface)
	if err != nil {
		return Word{}, false, err
	}
	if stored == nil {
		return Word{}, false, fmt.Errorf("vocabulary entry %q vanished after insert", w.Surface)
	}
	return *stored, n > 0, nil
}

func (r *wordRepo) Get(ctx context.Context, id string) (*Word, error) {
	sel := sqlb.Select(wordColumns...).
		From(entsql.Table(tableWords)).
		Where(entsql.EQ("id", id))
	w, err := scanWord(queryRow(ctx, r.q, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("word", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get word: %w", err)
	}
	return &w, nil
}

func (r *wordRepo) FindBySurface(ctx context.Context, surface string) (*Word, error) {
	sel := sqlb.Select(wordColumns...).
		From(entsql.Table(tableWords)).
		Where(entsql.EQ("surface", surface))
	w, err := scanWord(queryRow(ctx, r.q, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find word by surface: %w", err)
	}
	return &w, nil
}

func (r *wordRepo) FindBySurfaces(ctx context.Context, surfaces []string) (map[string]Word, error) {
	out := make(map[string]Word, len(surfaces))
	if len(surfaces) == 0 {
		return out, nil
	}
	words, err := r.list(ctx, entsql.In("surface", anySlice(surfaces)...), 0)
	if err != nil {
		return nil, err
	}
	for _, w := range words {
		out[w.Surface] = w
	}
	return out, nil
}

func (r *wordRepo) GetMany(ctx context.Context, ids []string) (map[string]Word, error) {
	out := make(map[string]Word, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	words, err := r.list(ctx, entsql.In("id", anySlice(ids)...), 0)
	if err != nil {
		return nil, err
	}
	for _, w := range words {
		out[w.ID] = w
	}
	return out, nil
}

func (r *wordRepo) Unseen(ctx context.Context, learnerID string, tier lexicon.Tier, limit int) ([]Word, error) {
	seen := sqlb.Select("word_id").
		From(entsql.Table(tableLearnerWords)).
		Where(entsql.EQ("learner_id", learnerID))
	return r.list(ctx, entsql.And(
		entsql.EQ("tier", string(tier)),
		entsql.NotIn("id", seen),
	), limit)
}

func (r *wordRepo) Count(ctx context.Context) (int, error) {
	sel := sqlb.Select(entsql.Count("*")).From(entsql.Table(tableWords))
	var n int
	if err := queryRow(ctx, r.q, sel).Scan(&n); err != nil {
		return 0, fmt.Errorf("count words: %w", err)
	}
	return n, nil
}

func (r *wordRepo) list(ctx context.Context, where *entsql.Predicate, limit int) ([]Word, error) {
	sel := sqlb.Select(wordColumns...).
		From(entsql.Table(tableWords)).
		Where(where).
		OrderBy("surface")
	if limit > 0 {
		sel.Limit(limit)
	}
	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	var out []Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// wordFields returns scan targets for a vocabulary_entries row and a
// function that finishes decoding once Scan has run.
func wordFields(w *Word) ([]any, func() error) {
	var (
		category  string
		gender    sql.NullString
		tier      string
		tags      string
		source    string
		createdAt int64
	)
	dest := []any{
		&w.ID, &w.Surface, &w.Transliteration, &w.Gloss, &category,
		&gender, &tier, &tags, &w.Notes, &source, &createdAt,
	}
	return dest, func() error {
		w.Category = lexicon.Category(category)
		w.Gender = lexicon.Gender(gender.String)
		w.Tier = lexicon.Tier(tier)
		w.Source = lexicon.Source(source)
		w.CreatedAt = fromNanos(createdAt)
		return fromJSON(tags, &w.Tags)
	}
}

func scanWord(s scanner) (Word, error) {
	var w Word
	dest, finish := wordFields(&w)
	if err := s.Scan(dest...); err != nil {
		return Word{}, err
	}
	if err := finish(); err != nil {
		return Word{}, err
	}
	return w, nil
}
