package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/kahani/internal/review"
	"github.com/abhisek/kahani/internal/srs"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review vocabulary on a spaced-repetition schedule",
}

var reviewDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List words due for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		items, err := a.Reviews.Due(cmd.Context(), a.Config.Learner, limit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("Nothing due. Come back later!")
			return nil
		}

		fmt.Printf("%-36s  %-16s  %-16s  %-9s  %5s  %s\n", "Word ID", "Word", "Romanized", "Status", "Reps", "Meaning")
		fmt.Println(strings.Repeat("─", 110))
		for _, it := range items {
			fmt.Printf("%-36s  %-16s  %-16s  %-9s  %5d  %s\n",
				it.Word.ID, it.Word.Surface, it.Word.Transliteration,
				it.State.Status, it.State.TimesReviewed, truncate(it.Word.Gloss, 30))
		}
		return nil
	},
}

var reviewSubmitCmd = &cobra.Command{
	Use:   "submit <word-id> <quality 0-5>",
	Short: "Record one review rating",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quality %q: %w", args[1], err)
		}

		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		out, err := a.Reviews.Submit(cmd.Context(), a.Config.Learner, args[0], srs.Quality(q))
		if err != nil {
			return err
		}
		printOutcome(out)
		return nil
	},
}

var reviewSessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Review due words interactively",
	Long: `Walk through the due queue one word at a time. Rate each recall 0-5:

  0 blackout   1 wrong   2 wrong but familiar
  3 hard       4 good    5 easy

Words rated below 3 come back at the end of the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		ctx := cmd.Context()
		items, err := a.Reviews.Due(ctx, a.Config.Learner, a.Config.ReviewSessionSize)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("Nothing due. Come back later!")
			return nil
		}

		sess := a.Reviews.NewSession(a.Config.Learner, items)
		in := bufio.NewReader(cmd.InOrStdin())
		for !sess.Done() {
			it, _ := sess.Current()
			tag := ""
			if sess.IsRetry() {
				tag = " (again)"
			}
			fmt.Printf("\n[%d left]%s  %s\n", sess.Remaining(), tag, it.Word.Surface)
			if it.Example != nil {
				fmt.Printf("  e.g. %s\n", it.Example.Script)
			}
			fmt.Print("  press Enter to reveal ")
			if _, err := in.ReadString('\n'); err != nil {
				break
			}
			fmt.Printf("  %s: %s\n", it.Word.Transliteration, it.Word.Gloss)

			q, err := promptQuality(in)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			out, err := sess.Answer(ctx, q)
			if err != nil {
				return err
			}
			fmt.Printf("  next review in %s\n", humanDuration(out.NextDueAt.Sub(time.Now())))
		}

		fmt.Println()
		fmt.Printf("Reviewed %d words, %d correct, %d retried in %s.\n",
			sess.Reviewed, sess.Correct, sess.Retries, sess.Elapsed().Round(time.Second))
		return nil
	},
}

var reviewSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show your review workload",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		sum, err := a.Reviews.Summary(cmd.Context(), a.Config.Learner)
		if err != nil {
			return err
		}
		fmt.Printf("Due now:         %d\n", sum.DueNow)
		fmt.Printf("Reviewed today:  %d\n", sum.ReviewedToday)
		if sum.NextReviewAt != nil {
			fmt.Printf("Next review:     %s\n", sum.NextReviewAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	reviewDueCmd.Flags().IntP("limit", "n", review.DefaultLimit, "Number of words to show (max 50)")

	reviewCmd.AddCommand(reviewDueCmd)
	reviewCmd.AddCommand(reviewSubmitCmd)
	reviewCmd.AddCommand(reviewSessionCmd)
	reviewCmd.AddCommand(reviewSummaryCmd)
}

func promptQuality(in *bufio.Reader) (srs.Quality, error) {
	for {
		fmt.Print("  how well did you recall it? [0-5] ")
		line, err := in.ReadString('\n')
		if err != nil {
			return 0, err
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(line))
		if q := srs.Quality(n); convErr == nil && q.Valid() {
			return q, nil
		}
		fmt.Println("  please enter a number from 0 to 5")
	}
}

func printOutcome(o review.Outcome) {
	fmt.Printf("Status:       %s\n", o.Status)
	fmt.Printf("Interval:     %.2f days\n", o.IntervalDays)
	fmt.Printf("Ease:         %.2f\n", o.Ease)
	fmt.Printf("Familiarity:  %.0f%%\n", o.Familiarity*100)
	fmt.Printf("Next review:  %s\n", o.NextDueAt.Local().Format("2006-01-02 15:04"))
}

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%d min", int(d.Round(time.Minute).Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%d h", int(d.Round(time.Hour).Hours()))
	default:
		return fmt.Sprintf("%d days", int(d.Hours()/24+0.5))
	}
}
