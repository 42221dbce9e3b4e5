package store

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	tableWords            = "vocabulary_entries"
	tableLearnerWords     = "learner_words"
	tableGrammar          = "grammar_concepts"
	tableLearnerGrammar   = "learner_grammar"
	tablePassages         = "passages"
	tableExercises        = "exercises"
	tableAttempts         = "exercise_attempts"
	tableCharacters       = "characters"
	tableRelationships    = "character_relationships"
	tablePassageCharacter = "passage_characters"
	tableLLMEvents        = "llm_request_events"
)

// schema is applied on every Open. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS vocabulary_entries (
		id TEXT PRIMARY KEY,
		surface TEXT NOT NULL UNIQUE,
		transliteration TEXT NOT NULL DEFAULT '',
		gloss TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		gender TEXT,
		tier TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		notes TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vocabulary_entries_tier ON vocabulary_entries (tier)`,

	`CREATE TABLE IF NOT EXISTS learner_words (
		id TEXT PRIMARY KEY,
		learner_id TEXT NOT NULL,
		word_id TEXT NOT NULL REFERENCES vocabulary_entries (id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		familiarity REAL NOT NULL DEFAULT 0,
		times_seen INTEGER NOT NULL DEFAULT 0,
		times_reviewed INTEGER NOT NULL DEFAULT 0,
		times_correct INTEGER NOT NULL DEFAULT 0,
		last_seen_at INTEGER,
		next_due_at INTEGER,
		interval_days REAL NOT NULL DEFAULT 0 CHECK (interval_days >= 0),
		ease REAL NOT NULL DEFAULT 2.5 CHECK (ease >= 0),
		source TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE (learner_id, word_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_learner_words_due ON learner_words (learner_id, status, next_due_at)`,

	`CREATE TABLE IF NOT EXISTS grammar_concepts (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		tier TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		examples TEXT NOT NULL DEFAULT '[]',
		prerequisites TEXT NOT NULL DEFAULT '[]'
	)`,

	`CREATE TABLE IF NOT EXISTS learner_grammar (
		learner_id TEXT NOT NULL,
		concept_id TEXT NOT NULL REFERENCES grammar_concepts (id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		comfort REAL NOT NULL DEFAULT 0,
		introduced_at INTEGER NOT NULL,
		UNIQUE (learner_id, concept_id)
	)`,

	`CREATE TABLE IF NOT EXISTS passages (
		id TEXT PRIMARY KEY,
		learner_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content_script TEXT NOT NULL DEFAULT '',
		content_romanized TEXT NOT NULL DEFAULT '',
		content_translation TEXT NOT NULL DEFAULT '',
		sentences TEXT NOT NULL DEFAULT '[]',
		target_word_ids TEXT NOT NULL DEFAULT '[]',
		target_grammar_ids TEXT NOT NULL DEFAULT '[]',
		topic TEXT NOT NULL DEFAULT '',
		tier TEXT NOT NULL,
		word_count INTEGER NOT NULL DEFAULT 0,
		origin TEXT NOT NULL,
		prompt TEXT NOT NULL DEFAULT '',
		raw_response TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		rating INTEGER,
		created_at INTEGER NOT NULL,
		completed_at INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_passages_learner ON passages (learner_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS exercises (
		id TEXT PRIMARY KEY,
		passage_id TEXT NOT NULL REFERENCES passages (id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		type TEXT NOT NULL,
		question TEXT NOT NULL DEFAULT '{}',
		correct_answer TEXT NOT NULL DEFAULT '',
		options TEXT NOT NULL DEFAULT '[]',
		target_word_id TEXT NOT NULL DEFAULT '',
		target_grammar_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_exercises_passage ON exercises (passage_id, position)`,

	`CREATE TABLE IF NOT EXISTS exercise_attempts (
		id TEXT PRIMARY KEY,
		learner_id TEXT NOT NULL,
		exercise_id TEXT NOT NULL REFERENCES exercises (id) ON DELETE CASCADE,
		answer TEXT NOT NULL,
		correct INTEGER NOT NULL,
		feedback TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS characters (
		id TEXT PRIMARY KEY,
		learner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		traits TEXT NOT NULL DEFAULT '',
		appearances INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		UNIQUE (learner_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS character_relationships (
		from_id TEXT NOT NULL REFERENCES characters (id) ON DELETE CASCADE,
		to_id TEXT NOT NULL REFERENCES characters (id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		UNIQUE (from_id, to_id, kind)
	)`,

	`CREATE TABLE IF NOT EXISTS passage_characters (
		passage_id TEXT NOT NULL REFERENCES passages (id) ON DELETE CASCADE,
		character_id TEXT NOT NULL REFERENCES characters (id) ON DELETE CASCADE,
		role TEXT NOT NULL DEFAULT '',
		UNIQUE (passage_id, character_id)
	)`,

	`CREATE TABLE IF NOT EXISTS llm_request_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_llm_request_events_sequence ON llm_request_events (sequence)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%.60s: %w", stmt, err)
		}
	}
	return nil
}
