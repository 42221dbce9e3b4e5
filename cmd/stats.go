package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		ctx := cmd.Context()
		learner := a.Config.Learner

		counts, err := a.Store.LearnerWords().CountByStatus(ctx, learner)
		if err != nil {
			return fmt.Errorf("count words: %w", err)
		}
		dict, err := a.Store.Words().Count(ctx)
		if err != nil {
			return fmt.Errorf("count dictionary: %w", err)
		}
		passages, err := a.Store.Passages().List(ctx, store.PassageFilter{LearnerID: learner})
		if err != nil {
			return fmt.Errorf("list passages: %w", err)
		}
		ready, err := a.Passages.Ready(ctx, learner)
		if err != nil {
			return err
		}
		sum, err := a.Reviews.Summary(ctx, learner)
		if err != nil {
			return err
		}

		completed, rated, ratingSum := 0, 0, 0
		for _, p := range passages {
			if p.CompletedAt != nil {
				completed++
			}
			if p.Rating != nil {
				rated++
				ratingSum += *p.Rating
			}
		}

		fmt.Printf("Learner %s, level %s\n", learner, ready.Tier)
		fmt.Println(strings.Repeat("─", 40))
		fmt.Println("Vocabulary")
		for _, st := range []lexicon.WordStatus{lexicon.StatusLearning, lexicon.StatusKnown, lexicon.StatusMastered} {
			fmt.Printf("  %-10s %6d\n", st, counts[st])
		}
		fmt.Printf("  %-10s %6d\n", "dictionary", dict)
		fmt.Println("Passages")
		fmt.Printf("  %-10s %6d\n", "read", completed)
		fmt.Printf("  %-10s %6d\n", "unread", len(passages)-completed)
		if rated > 0 {
			fmt.Printf("  %-10s %6.1f\n", "avg rating", float64(ratingSum)/float64(rated))
		}
		fmt.Println("Reviews")
		fmt.Printf("  %-10s %6d\n", "due now", sum.DueNow)
		fmt.Printf("  %-10s %6d\n", "today", sum.ReviewedToday)
		return nil
	},
}
