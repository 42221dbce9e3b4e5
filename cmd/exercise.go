package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var exerciseCmd = &cobra.Command{
	Use:   "exercise",
	Short: "Practice with the exercises attached to a passage",
}

var exerciseListCmd = &cobra.Command{
	Use:   "list <passage-id>",
	Short: "List the exercises of a passage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		exs, err := a.Exercises.List(cmd.Context(), a.Config.Learner, args[0])
		if err != nil {
			return err
		}
		if len(exs) == 0 {
			fmt.Println("This passage has no exercises.")
			return nil
		}
		for _, e := range exs {
			fmt.Printf("%d. [%s] %s\n", e.Position+1, e.Type, e.Question.Prompt)
			if e.Question.Context != "" {
				fmt.Printf("   %s\n", e.Question.Context)
			}
			if len(e.Options) > 0 {
				fmt.Printf("   options: %s\n", strings.Join(e.Options, " / "))
			}
			fmt.Printf("   id: %s\n", e.ID)
		}
		return nil
	},
}

var exerciseAnswerCmd = &cobra.Command{
	Use:   "answer <exercise-id> <answer...>",
	Short: "Answer an exercise",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer done()

		r, err := a.Exercises.Answer(cmd.Context(), a.Config.Learner, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		verdict := "✗ Not quite."
		if r.Correct {
			verdict = "✓ Correct!"
		}
		fmt.Println(verdict)
		if r.Feedback != "" {
			fmt.Println(r.Feedback)
		}
		return nil
	},
}

func init() {
	exerciseCmd.AddCommand(exerciseListCmd)
	exerciseCmd.AddCommand(exerciseAnswerCmd)
}
