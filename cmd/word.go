package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var wordCmd = &cobra.Command{
	Use:   "word",
	Short: "Look up dictionary words and manage their status",
}

var wordLookupCmd = &cobra.Command{
	Use:   "lookup <word>",
	Short: "Look up a word and your progress on it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		e, err := a.Vocab.Lookup(cmd.Context(), a.Config.Learner, strings.Join(args, " "))
		if err != nil {
			return err
		}
		w := e.Word
		fmt.Printf("ID:        %s\n", w.ID)
		fmt.Printf("Word:      %s (%s)\n", w.Surface, w.Transliteration)
		fmt.Printf("Meaning:   %s\n", w.Gloss)
		kind := string(w.Category)
		if w.Gender != "" {
			kind += ", " + string(w.Gender)
		}
		fmt.Printf("Category:  %s\n", kind)
		fmt.Printf("Level:     %s\n", w.Tier)
		if len(w.Tags) > 0 {
			fmt.Printf("Tags:      %s\n", strings.Join(w.Tags, ", "))
		}
		if w.Notes != "" {
			fmt.Printf("Notes:     %s\n", w.Notes)
		}
		if e.State == nil {
			fmt.Println("Progress:  not seen yet")
			return nil
		}
		s := e.State
		fmt.Printf("Progress:  %s, seen %d times, %d/%d reviews correct\n",
			s.Status, s.TimesSeen, s.TimesCorrect, s.TimesReviewed)
		if s.NextDueAt != nil {
			fmt.Printf("Next due:  %s\n", s.NextDueAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var wordKnownCmd = &cobra.Command{
	Use:   "known <word-id>",
	Short: "Mark a word as already known",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		lw, err := a.Vocab.MarkKnown(cmd.Context(), a.Config.Learner, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Marked %s as %s.\n", lw.WordID, lw.Status)
		return nil
	},
}

func init() {
	wordCmd.AddCommand(wordLookupCmd)
	wordCmd.AddCommand(wordKnownCmd)
}
