package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// sqlb builds every statement in this package.
var sqlb = entsql.Dialect(dialect.SQLite)

// pragmas are applied to every pooled connection through the DSN, since
// SQLite pragmas are per-connection.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

// querier is the subset of *sql.DB and *sql.Tx the repositories need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repos gives access to the domain repositories over one connection scope:
// either the whole database or a single transaction.
type Repos interface {
	Words() WordRepo
	LearnerWords() LearnerWordRepo
	Grammar() GrammarRepo
	Passages() PassageRepo
	Exercises() ExerciseRepo
	Characters() CharacterRepo
}

// TxRepos is a Repos that can also run a function inside a transaction.
type TxRepos interface {
	Repos
	InTx(ctx context.Context, fn func(Repos) error) error
}

// repos binds the repositories to a querier.
type repos struct {
	q querier
}

func (r repos) Words() WordRepo               { return &wordRepo{q: r.q} }
func (r repos) LearnerWords() LearnerWordRepo { return &learnerWordRepo{q: r.q} }
func (r repos) Grammar() GrammarRepo          { return &grammarRepo{q: r.q} }
func (r repos) Passages() PassageRepo         { return &passageRepo{q: r.q} }
func (r repos) Exercises() ExerciseRepo       { return &exerciseRepo{q: r.q} }
func (r repos) Characters() CharacterRepo     { return &characterRepo{q: r.q} }

// Store owns the database handle and provides access to repositories.
type Store struct {
	repos
	db  *sql.DB
	seq *sequenceCounter
}

var _ TxRepos = (*Store)(nil)

// Open creates a new Store connected to the SQLite database at path.
// It applies the recommended pragmas and creates missing tables.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", withPragmas(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx := context.Background()
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{repos: repos{q: db}, db: db, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{q: s.db, seq: s.seq}
}

// InTx runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise, so
// callers never observe a partial write.
func (s *Store) InTx(ctx context.Context, fn func(Repos) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(repos{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// withPragmas appends the pragma and transaction-lock parameters to a
// modernc.org/sqlite DSN. Write transactions take the lock up front so
// concurrent writers wait on busy_timeout instead of failing on upgrade.
func withPragmas(path string) string {
	params := url.Values{}
	for _, p := range pragmas {
		params.Add("_pragma", p)
	}
	params.Set("_txlock", "immediate")

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode()
}

// DefaultDBPath returns $XDG_DATA_HOME/kahani/kahani.db, falling back to
// ~/.local/share/kahani/kahani.db, and creates its directory.
func DefaultDBPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "kahani", "kahani.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
