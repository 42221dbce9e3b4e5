package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// ResetCounts reports how many rows ResetLearner removed per table.
type ResetCounts map[string]int64

// learnerTables hold learner-scoped rows. Exercises, attempts on them,
// relationships and passage links cascade from passages and characters.
var learnerTables = []string{
	tableAttempts,
	tableLearnerWords,
	tableLearnerGrammar,
	tablePassages,
	tableCharacters,
}

// ResetLearner deletes all progress, passages and characters of one
// learner in a single transaction. The dictionary, grammar catalog and LLM
// event log are shared and kept.
func (s *Store) ResetLearner(ctx context.Context, learnerID string) (ResetCounts, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	counts := make(ResetCounts, len(learnerTables))
	for _, table := range learnerTables {
		res, err := exec(ctx, tx, sqlb.Delete(table).Where(entsql.EQ("learner_id", learnerID)))
		if err != nil {
			return nil, fmt.Errorf("clear %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		counts[table] = n
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return counts, nil
}
