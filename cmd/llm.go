package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/kahani/internal/llm"
	"github.com/abhisek/kahani/internal/store"
)

const eventTimeLayout = "2006-01-02 15:04:05"

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect the LLM request log",
	Long: `Every generation, validation, import and grading call is recorded with
its purpose, model, token counts, latency and the exact request and response.`,
}

// withEvents opens the store for the duration of fn and hands it the event log.
func withEvents(fn func(ctx context.Context, cmd *cobra.Command, args []string, events store.EventRepo) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd.Context(), cmd, args, s.EventRepo())
	}
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM calls",
	Args:  cobra.NoArgs,
	RunE: withEvents(func(ctx context.Context, cmd *cobra.Command, _ []string, events store.EventRepo) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		since, _ := cmd.Flags().GetDuration("since")

		opts := store.QueryOpts{Limit: limit, Purpose: purpose}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}
		list, err := events.QueryLLMEvents(ctx, opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		printEventTable(cmd.OutOrStdout(), list)
		return nil
	}),
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full request and response of one call",
	Args:  cobra.ExactArgs(1),
	RunE: withEvents(func(ctx context.Context, cmd *cobra.Command, args []string, events store.EventRepo) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}
		e, err := events.GetLLMEvent(ctx, id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}
		printEvent(cmd.OutOrStdout(), e)
		return nil
	}),
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage per purpose and estimated cost per model",
	Args:  cobra.NoArgs,
	RunE: withEvents(func(ctx context.Context, cmd *cobra.Command, _ []string, events store.EventRepo) error {
		byPurpose, err := events.LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		byModel, err := events.LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		printUsage(cmd.OutOrStdout(), byPurpose, byModel)
		return nil
	}),
}

func printEventTable(w io.Writer, events []store.LLMRequestEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No LLM events found.")
		return
	}
	fmt.Fprintf(w, "%-5s  %-19s  %-17s  %-28s  %6s  %6s  %7s  %s\n",
		"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
	fmt.Fprintln(w, rule(103))
	for _, e := range events {
		fmt.Fprintf(w, "%-5d  %-19s  %-17s  %-28s  %6d  %6d  %7d  %s\n",
			e.ID, e.Timestamp.Local().Format(eventTimeLayout), e.Purpose, truncate(e.Model, 28),
			e.InputTokens, e.OutputTokens, e.LatencyMs, mark(e.Success))
	}
}

func printEvent(w io.Writer, e *store.LLMRequestEvent) {
	fields := [][2]string{
		{"ID", strconv.FormatInt(e.ID, 10)},
		{"Time", e.Timestamp.Local().Format(eventTimeLayout)},
		{"Provider", e.Provider},
		{"Model", e.Model},
		{"Purpose", e.Purpose},
		{"Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens)},
		{"Latency", fmt.Sprintf("%dms", e.LatencyMs)},
		{"Success", mark(e.Success)},
	}
	if e.ErrorMessage != "" {
		fields = append(fields, [2]string{"Error", e.ErrorMessage})
	}
	for _, f := range fields {
		fmt.Fprintf(w, "%-10s %s\n", f[0]+":", f[1])
	}
	section(w, "REQUEST", e.RequestBody)
	section(w, "RESPONSE", e.ResponseBody)
}

func section(w io.Writer, title, body string) {
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule(60), title, rule(60))
	if body == "" {
		body = "(not captured)"
	}
	fmt.Fprintln(w, body)
}

func printUsage(w io.Writer, byPurpose, byModel []store.LLMUsage) {
	if len(byPurpose) == 0 {
		fmt.Fprintln(w, "No LLM usage recorded yet.")
		return
	}

	fmt.Fprintf(w, "Usage by purpose\n%s\n", rule(72))
	fmt.Fprintf(w, "%-17s  %6s  %10s  %10s  %10s  %8s\n", "Purpose", "Calls", "Input", "Output", "Total", "Avg Ms")
	var total store.LLMUsage
	for _, u := range byPurpose {
		fmt.Fprintf(w, "%-17s  %6d  %10d  %10d  %10d  %8d\n",
			u.Purpose, u.Calls, u.InputTokens, u.OutputTokens, u.InputTokens+u.OutputTokens, u.AvgLatencyMs)
		total.Calls += u.Calls
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
	}
	fmt.Fprintln(w, rule(72))
	fmt.Fprintf(w, "%-17s  %6d  %10d  %10d  %10d\n",
		"TOTAL", total.Calls, total.InputTokens, total.OutputTokens, total.InputTokens+total.OutputTokens)

	if len(byModel) == 0 {
		return
	}
	fmt.Fprintf(w, "\nEstimated cost (USD)\n%s\n", rule(72))
	var sum float64
	var unpriced []string
	for _, u := range byModel {
		cost := "?"
		if p := llm.LookupCost(u.Model); p != nil {
			c := p.Cost(u.InputTokens, u.OutputTokens)
			sum += c
			cost = formatCost(c)
		} else {
			unpriced = append(unpriced, u.Model)
		}
		fmt.Fprintf(w, "%-32s  %6d calls  %10s\n", truncate(u.Model, 32), u.Calls, cost)
	}
	label := "TOTAL"
	if len(unpriced) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Fprintln(w, rule(72))
	fmt.Fprintf(w, "%-32s  %12s  %10s\n", label, "", formatCost(sum))
	if len(unpriced) > 0 {
		fmt.Fprintf(w, "\nPricing unavailable for: %s\n", strings.Join(unpriced, ", "))
	}
}

func rule(n int) string { return strings.Repeat("─", n) }

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only this purpose (passage-generate, passage-validate, passage-import, exercise-grade)")
	llmListCmd.Flags().Duration("since", 0, "Only events newer than this (e.g. 24h)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
