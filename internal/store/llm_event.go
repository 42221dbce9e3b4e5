package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var llmEventColumns = []string{
	"id", "sequence", "timestamp", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success", "error_message",
	"request_body", "response_body",
}

// eventRepo implements EventRepo backed by the global sequence counter.
type eventRepo struct {
	q   querier
	seq *sequenceCounter
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	ins := sqlb.Insert(tableLLMEvents).
		Columns(llmEventColumns[1:]...).
		Values(seqNum, toNanos(time.Now()), data.Provider, data.Model, data.Purpose,
			data.InputTokens, data.OutputTokens, data.LatencyMs, boolInt(data.Success),
			data.ErrorMessage, data.RequestBody, data.ResponseBody)
	if _, err := exec(ctx, r.q, ins); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", toNanos(opts.From)))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", toNanos(opts.To)))
	}
	if opts.Purpose != "" {
		preds = append(preds, entsql.EQ("purpose", opts.Purpose))
	}

	sel := sqlb.Select(llmEventColumns...).
		From(entsql.Table(tableLLMEvents)).
		OrderBy(entsql.Desc("sequence"))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEvent
	for rows.Next() {
		e, err := scanLLMEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan LLM event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error) {
	sel := sqlb.Select(llmEventColumns...).
		From(entsql.Table(tableLLMEvents)).
		Where(entsql.EQ("id", id))
	e, err := scanLLMEvent(queryRow(ctx, r.q, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get LLM event: %w", err)
	}
	return &e, nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "purpose", func(u *LLMUsage) *string { return &u.Purpose })
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "model", func(u *LLMUsage) *string { return &u.Model })
}

// usage aggregates successful and failed calls grouped by one column.
func (r *eventRepo) usage(ctx context.Context, column string, key func(*LLMUsage) *string) ([]LLMUsage, error) {
	sel := sqlb.Select(
		column,
		entsql.Count("*"),
		entsql.Sum("input_tokens"),
		entsql.Sum("output_tokens"),
		entsql.Avg("latency_ms"),
	).
		From(entsql.Table(tableLLMEvents)).
		GroupBy(column).
		OrderBy(column)

	rows, err := query(ctx, r.q, sel)
	if err != nil {
		return nil, fmt.Errorf("query LLM usage by %s: %w", column, err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var (
			u   LLMUsage
			in  sql.NullInt64
			o   sql.NullInt64
			avg sql.NullFloat64
		)
		if err := rows.Scan(key(&u), &u.Calls, &in, &o, &avg); err != nil {
			return nil, fmt.Errorf("scan LLM usage: %w", err)
		}
		u.InputTokens = int(in.Int64)
		u.OutputTokens = int(o.Int64)
		u.AvgLatencyMs = int64(avg.Float64)
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanLLMEvent(s scanner) (LLMRequestEvent, error) {
	var (
		e       LLMRequestEvent
		ts      int64
		success int
	)
	if err := s.Scan(&e.ID, &e.Sequence, &ts, &e.Provider, &e.Model, &e.Purpose,
		&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &success, &e.ErrorMessage,
		&e.RequestBody, &e.ResponseBody); err != nil {
		return LLMRequestEvent{}, err
	}
	e.Timestamp = fromNanos(ts)
	e.Success = success != 0
	return e, nil
}
