package cmd

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset learner data",
	Long: `Delete one learner's word progress, grammar progress, passages and
characters. The dictionary, grammar catalog and LLM event log are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if !yes {
			fmt.Printf("Delete all progress for learner %q? [y/N] ", cfg.Learner)
			line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(line)); a != "y" && a != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		counts, err := s.ResetLearner(cmd.Context(), cfg.Learner)
		if err != nil {
			return err
		}
		tables := make([]string, 0, len(counts))
		for t := range counts {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		for _, t := range tables {
			fmt.Printf("%-24s %d rows removed\n", t, counts[t])
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}
