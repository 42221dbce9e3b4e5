package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed [catalog.yaml]",
	Short: "Load dictionary words and grammar concepts",
	Long: `Load a YAML catalog of dictionary words and grammar concepts.

Without a file the built-in starter catalog is loaded. Existing words are
kept; grammar concepts are updated by slug. The grammar prerequisite graph
is validated before anything is written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.LogMode)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer log.Sync()

		var catalog *seed.Catalog
		if len(args) == 1 {
			catalog, err = seed.LoadFile(args[0])
		} else {
			catalog, err = seed.Default()
		}
		if err != nil {
			return err
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := seed.Apply(cmd.Context(), s, catalog, log)
		if err != nil {
			return err
		}
		fmt.Printf("Words:    %d added, %d already present\n", stats.WordsCreated, stats.WordsKept)
		fmt.Printf("Grammar:  %d concepts\n", stats.Concepts)
		return nil
	},
}
