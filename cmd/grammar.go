package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/kahani/internal/grammar"
	"github.com/abhisek/kahani/internal/lexicon"
)

var grammarCmd = &cobra.Command{
	Use:   "grammar",
	Short: "Browse grammar concepts and unlock new ones",
}

var grammarListCmd = &cobra.Command{
	Use:   "list",
	Short: "List grammar concepts in teaching order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		entries, err := a.Grammar.List(cmd.Context(), a.Config.Learner)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No grammar concepts. Load some with: kahani seed")
			return nil
		}

		fmt.Printf("%-36s  %-4s  %-10s  %7s  %s\n", "ID", "Tier", "Status", "Comfort", "Name")
		fmt.Println(strings.Repeat("─", 100))
		for _, e := range entries {
			fmt.Printf("%-36s  %-4s  %-10s  %6.0f%%  %s\n",
				e.Concept.ID, e.Concept.Tier, grammarStatusLabel(e), e.Comfort*100, e.Concept.Name)
		}
		return nil
	},
}

var grammarUnlockCmd = &cobra.Command{
	Use:   "unlock <concept-id>",
	Short: "Unlock a concept whose prerequisites you have learned",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		e, err := a.Grammar.Unlock(cmd.Context(), a.Config.Learner, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s is now %s.\n", e.Concept.Name, e.Status)
		return nil
	},
}

var grammarStatusCmd = &cobra.Command{
	Use:   "status <concept-id> <learning|learned>",
	Short: "Record progress on an unlocked concept",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		comfort, _ := cmd.Flags().GetFloat64("comfort")
		status, err := lexicon.ParseGrammarStatus(args[1])
		if err != nil {
			return err
		}

		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		e, err := a.Grammar.SetStatus(cmd.Context(), a.Config.Learner, args[0], status, comfort)
		if err != nil {
			return err
		}
		fmt.Printf("%s is now %s (comfort %.0f%%).\n", e.Concept.Name, e.Status, e.Comfort*100)
		return nil
	},
}

func init() {
	grammarStatusCmd.Flags().Float64("comfort", 0.5, "Comfort score from 0 to 1")

	grammarCmd.AddCommand(grammarListCmd)
	grammarCmd.AddCommand(grammarUnlockCmd)
	grammarCmd.AddCommand(grammarStatusCmd)
}

func grammarStatusLabel(e grammar.Entry) string {
	if e.Status == lexicon.GrammarLocked && e.Unlockable {
		return "unlockable"
	}
	return string(e.Status)
}
