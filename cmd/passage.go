package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/storygen"
)

var passageCmd = &cobra.Command{
	Use:     "passage",
	Aliases: []string{"story"},
	Short:   "Generate, import and read passages",
}

var passageReadyCmd = &cobra.Command{
	Use:   "ready",
	Short: "Check whether enough new vocabulary exists for a new passage",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		r, err := a.Passages.Ready(cmd.Context(), a.Config.Learner)
		if err != nil {
			return err
		}
		state := "not ready"
		if r.Ready {
			state = "ready"
		}
		fmt.Printf("Status:          %s\n", state)
		fmt.Printf("Level:           %s (%d known words)\n", r.Tier, r.KnownWords)
		fmt.Printf("New words:       %d available at this level\n", r.NewWords)
		fmt.Printf("Suggested topic: %s\n", r.SuggestedTopic)
		return nil
	},
}

var passageGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new passage at your level",
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		tierVal, _ := cmd.Flags().GetString("tier")
		include, _ := cmd.Flags().GetStringSlice("include")
		focus, _ := cmd.Flags().GetString("focus-grammar")

		tier, err := parseTierFlag(tierVal)
		if err != nil {
			return err
		}

		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		res, err := a.Passages.Generate(cmd.Context(), storygen.GenerateInput{
			LearnerID:      a.Config.Learner,
			Topic:          topic,
			Tier:           tier,
			IncludeWordIDs: include,
			FocusGrammarID: focus,
		})
		if err != nil {
			return err
		}
		printPassage(res)
		return nil
	},
}

var passageImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Annotate your own text as a passage (reads stdin when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		tierVal, _ := cmd.Flags().GetString("tier")
		tier, err := parseTierFlag(tierVal)
		if err != nil {
			return err
		}

		var r io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()
			r = f
		}
		text, err := io.ReadAll(io.LimitReader(r, 4*storygen.MaxImportRunes+1))
		if err != nil {
			return fmt.Errorf("read text: %w", err)
		}

		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		res, err := a.Passages.Import(cmd.Context(), storygen.ImportInput{
			LearnerID: a.Config.Learner,
			Text:      string(text),
			Topic:     topic,
			Tier:      tier,
		})
		if err != nil {
			return err
		}
		printPassage(res)
		return nil
	},
}

var passageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your passages, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		onlyOpen, _ := cmd.Flags().GetBool("open")
		onlyDone, _ := cmd.Flags().GetBool("completed")
		if onlyOpen && onlyDone {
			return fmt.Errorf("use --open or --completed, not both")
		}
		var completed *bool
		switch {
		case onlyOpen:
			completed = new(bool)
		case onlyDone:
			v := true
			completed = &v
		}

		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		ps, err := a.Passages.List(cmd.Context(), a.Config.Learner, completed, limit)
		if err != nil {
			return err
		}
		if len(ps) == 0 {
			fmt.Println("No passages yet. Try: kahani passage generate")
			return nil
		}

		fmt.Printf("%-36s  %-4s  %-9s  %-16s  %-6s  %s\n", "ID", "Tier", "Origin", "Created", "Rating", "Title")
		fmt.Println(strings.Repeat("─", 100))
		for _, p := range ps {
			rating := "-"
			if p.Rating != nil {
				rating = fmt.Sprintf("%d/5", *p.Rating)
			} else if p.CompletedAt != nil {
				rating = "done"
			}
			fmt.Printf("%-36s  %-4s  %-9s  %-16s  %-6s  %s\n",
				p.ID, p.Tier, p.Origin,
				p.CreatedAt.Local().Format("2006-01-02 15:04"),
				rating, truncate(p.Title, 40))
		}
		return nil
	},
}

var passageShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a passage with its annotations and exercises",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		res, err := a.Passages.Get(cmd.Context(), a.Config.Learner, args[0])
		if err != nil {
			return err
		}
		printPassage(res)
		return nil
	},
}

var passageCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Mark a passage as read and record exposure to its new words",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var rating *int
		if cmd.Flags().Changed("rating") {
			r, _ := cmd.Flags().GetInt("rating")
			rating = &r
		}

		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		c, err := a.Progress.Complete(cmd.Context(), a.Config.Learner, args[0], rating)
		if err != nil {
			return err
		}
		if c.AlreadyCompleted {
			fmt.Printf("Passage was already completed on %s.\n", c.CompletedAt.Local().Format("2006-01-02 15:04"))
			return nil
		}
		fmt.Printf("Completed. %d words added to your review queue.\n", c.WordsUpdated)
		return nil
	},
}

func init() {
	passageGenerateCmd.Flags().String("topic", "", "Story topic (default: chosen for you)")
	passageGenerateCmd.Flags().String("tier", "", "Override the estimated level: A1, A2, B1 or B2")
	passageGenerateCmd.Flags().StringSlice("include", nil, "Dictionary word ids to introduce")
	passageGenerateCmd.Flags().String("focus-grammar", "", "Grammar concept id to focus on")

	passageImportCmd.Flags().String("topic", "", "Topic of the text")
	passageImportCmd.Flags().String("tier", "", "Level of the text: A1, A2, B1 or B2")

	passageListCmd.Flags().IntP("limit", "n", 20, "Number of passages to show")
	passageListCmd.Flags().Bool("open", false, "Only unfinished passages")
	passageListCmd.Flags().Bool("completed", false, "Only completed passages")

	passageCompleteCmd.Flags().Int("rating", 0, "Rate the passage from 1 to 5")

	passageCmd.AddCommand(passageReadyCmd)
	passageCmd.AddCommand(passageGenerateCmd)
	passageCmd.AddCommand(passageImportCmd)
	passageCmd.AddCommand(passageListCmd)
	passageCmd.AddCommand(passageShowCmd)
	passageCmd.AddCommand(passageCompleteCmd)
}

func parseTierFlag(v string) (lexicon.Tier, error) {
	if strings.TrimSpace(v) == "" {
		return "", nil
	}
	return lexicon.ParseTier(v)
}

func printPassage(res *storygen.Result) {
	p := res.Passage
	sep := strings.Repeat("─", 60)

	fmt.Printf("ID:     %s\n", p.ID)
	fmt.Printf("Title:  %s\n", p.Title)
	fmt.Printf("Level:  %s   Topic: %s   Words: %d\n", p.Tier, p.Topic, p.WordCount)
	if len(res.Characters) > 0 {
		names := make([]string, 0, len(res.Characters))
		for _, c := range res.Characters {
			if c.Role != "" {
				names = append(names, c.Name+" ("+c.Role+")")
			} else {
				names = append(names, c.Name)
			}
		}
		fmt.Printf("Cast:   %s\n", strings.Join(names, ", "))
	}
	if res.Fallback {
		fmt.Println()
		fmt.Println("The model's answer could not be used; an empty passage was stored. Try generating again.")
		return
	}

	fmt.Println(sep)
	for _, s := range p.Sentences {
		fmt.Printf("%d. %s\n   %s\n   %s\n", s.Index+1, s.Script, s.Romanized, s.Translation)
		for _, w := range s.Words {
			if w.IsNew {
				fmt.Printf("   * %s (%s): %s\n", w.Surface, w.Romanized, w.Gloss)
			}
		}
		for _, note := range s.GrammarNotes {
			fmt.Printf("   ~ %s\n", note)
		}
	}

	if len(res.Exercises) > 0 {
		fmt.Println(sep)
		fmt.Println("EXERCISES")
		for _, e := range res.Exercises {
			fmt.Printf("[%s] %s: %s\n", e.ID, e.Type, e.Question.Prompt)
			if len(e.Options) > 0 {
				fmt.Printf("    options: %s\n", strings.Join(e.Options, " / "))
			}
		}
	}
}
