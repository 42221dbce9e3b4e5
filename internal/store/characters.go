package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var characterColumns = []string{
	"id", "learner_id", "name", "description", "traits", "appearances", "active", "created_at",
}

// characterRepo implements CharacterRepo.
type characterRepo struct {
	q querier
}

func (r *characterRepo) Create(ctx context.Context, c *Character) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	ins := sqlb.Insert(tableCharacters).
		Columns(characterColumns...).
		Values(c.ID, c.LearnerID, c.Name, c.Description, c.Traits, c.Appearances, boolInt(c.Active), toNanos(c.CreatedAt)).
		OnConflict(entsql.ConflictColumns("learner_id", "name"), entsql.DoNothing())
	if _, err := exec(ctx, r.q, ins); err != nil {
		return fmt.Errorf("insert character: %w", err)
	}
	stored, err := r.byName(ctx, c.LearnerID, c.Name)
	if err != nil {
		return err
	}
	*c = stored
	return nil
}

func (r *characterRepo) TopActive(ctx context.Context, learnerID string, limit int) ([]Character, error) {
	sel := sqlb.Select(characterColumns...).
		From(entsql.Table(tableCharacters)).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.EQ("active", 1),
		)).
		OrderBy(entsql.Desc("appearances"), "name")
	if limit > 0 {
		sel.Limit(limit)
	}
	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()

	var out []Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *characterRepo) Relationships(ctx context.Context, ids []string) ([]Relationship, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sel := sqlb.Select("from_id", "to_id", "kind", "description").
		From(entsql.Table(tableRelationships)).
		Where(entsql.And(
			entsql.In("from_id", anySlice(ids)...),
			entsql.In("to_id", anySlice(ids)...),
		)).
		OrderBy("from_id", "to_id", "kind")
	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()

	var out []Relationship
	for rows.Next() {
		var rel Relationship
		if err := rows.Scan(&rel.FromID, &rel.ToID, &rel.Kind, &rel.Description); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

func (r *characterRepo) AddRelationship(ctx context.Context, rel Relationship) error {
	ins := sqlb.Insert(tableRelationships).
		Columns("from_id", "to_id", "kind", "description").
		Values(rel.FromID, rel.ToID, rel.Kind, rel.Description).
		OnConflict(
			entsql.ConflictColumns("from_id", "to_id", "kind"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("description")
			}),
		)
	if _, err := exec(ctx, r.q, ins); err != nil {
		return fmt.Errorf("insert relationship: %w", err)
	}
	return nil
}

func (r *characterRepo) RecordAppearance(ctx context.Context, learnerID, passageID, name, role string, at time.Time) (Character, error) {
	ins := sqlb.Insert(tableCharacters).
		Columns(characterColumns...).
		Values(uuid.NewString(), learnerID, name, "", "", 1, 1, toNanos(at)).
		OnConflict(
			entsql.ConflictColumns("learner_id", "name"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.Add("appearances", 1)
			}),
		)
	if _, err := exec(ctx, r.q, ins); err != nil {
		return Character{}, fmt.Errorf("record appearance of %q: %w", name, err)
	}

	c, err := r.byName(ctx, learnerID, name)
	if err != nil {
		return Character{}, err
	}

	link := sqlb.Insert(tablePassageCharacter).
		Columns("passage_id", "character_id", "role").
		Values(passageID, c.ID, role).
		OnConflict(entsql.ConflictColumns("passage_id", "character_id"), entsql.DoNothing())
	if _, err := exec(ctx, r.q, link); err != nil {
		return Character{}, fmt.Errorf("link character to passage: %w", err)
	}
	return c, nil
}

func (r *characterRepo) ByPassage(ctx context.Context, passageID string) ([]PassageCharacter, error) {
	pc := entsql.Table(tablePassageCharacter).As("pc")
	c := entsql.Table(tableCharacters).As("c")
	sel := sqlb.Select(pc.C("passage_id"), pc.C("character_id"), c.C("name"), pc.C("role")).
		From(pc).
		Join(c).
		On(pc.C("character_id"), c.C("id")).
		Where(entsql.EQ(pc.C("passage_id"), passageID)).
		OrderBy(c.C("name"))
	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("query passage characters: %w", err)
	}
	defer rows.Close()

	var out []PassageCharacter
	for rows.Next() {
		var p PassageCharacter
		if err := rows.Scan(&p.PassageID, &p.CharacterID, &p.Name, &p.Role); err != nil {
			return nil, fmt.Errorf("scan passage character: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *characterRepo) byName(ctx context.Context, learnerID, name string) (Character, error) {
	sel := sqlb.Select(characterColumns...).
		From(entsql.Table(tableCharacters)).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.EQ("name", name),
		))
	c, err := scanCharacter(queryRow(ctx, r.q, sel))
	if err != nil {
		return Character{}, fmt.Errorf("get character %q: %w", name, err)
	}
	return c, nil
}

func scanCharacter(s scanner) (Character, error) {
	var (
		c         Character
		active    int
		createdAt int64
	)
	if err := s.Scan(&c.ID, &c.LearnerID, &c.Name, &c.Description, &c.Traits, &c.Appearances, &active, &createdAt); err != nil {
		return Character{}, err
	}
	c.Active = active != 0
	c.CreatedAt = fromNanos(createdAt)
	return c, nil
}
