package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// exec runs a built statement.
func exec(ctx context.Context, q querier, b entsql.Querier) (sql.Result, error) {
	query, args := b.Query()
	return q.ExecContext(ctx, query, args...)
}

// query runs a built SELECT.
func query(ctx context.Context, q querier, b entsql.Querier) (*sql.Rows, error) {
	query, args := b.Query()
	return q.QueryContext(ctx, query, args...)
}

// queryRow runs a built SELECT expected to return at most one row.
func queryRow(ctx context.Context, q querier, b entsql.Querier) *sql.Row {
	query, args := b.Query()
	return q.QueryRowContext(ctx, query, args...)
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// nullTime maps an optional timestamp to a column value.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toNanos(*t)
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// jsonText encodes v for a TEXT column. Nil slices encode as "[]".
func jsonText[T any](v []T) (string, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func jsonObject(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func fromJSON(s string, dst any) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

// anySlice converts ids for use with entsql.In.
func anySlice(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// boolInt stores booleans as 0/1.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// qualify prefixes columns with the table name.
func qualify(t *entsql.SelectTable, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = t.C(c)
	}
	return out
}
