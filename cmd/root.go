package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/kahani/internal/app"
	"github.com/abhisek/kahani/internal/config"
	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "kahani",
	Short:         "Learn a language by reading stories written for you",
	Long:          "Kahani generates short reading passages at your level and schedules vocabulary reviews with spaced repetition.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides KAHANI_DB env var)")
	rootCmd.PersistentFlags().String("learner", "", "Learner id (overrides KAHANI_LEARNER env var)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before reading KAHANI_* variables")

	rootCmd.AddCommand(passageCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(wordCmd)
	rootCmd.AddCommand(grammarCmd)
	rootCmd.AddCommand(exerciseCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path: the --db flag, then the
// configured KAHANI_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	p, _ := cmd.Flags().GetString("db")
	if p == "" {
		p = cfg.DBPath
	}
	if p == "" {
		return store.DefaultDBPath()
	}
	return p, store.EnsureDir(p)
}

// loadConfig reads the env file and environment, then applies flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if l, _ := cmd.Flags().GetString("learner"); l != "" {
		cfg.Learner = l
	}
	return cfg, nil
}

// openApp builds the services for a command. The returned func releases
// them and flushes the logger.
func openApp(cmd *cobra.Command) (*app.App, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve DB path: %w", err)
	}
	a, err := app.New(cmd.Context(), cfg, dbPath, log)
	if err != nil {
		return nil, nil, err
	}
	return a, func() {
		if err := a.Close(); err != nil {
			log.Warn("close app", "error", err)
		}
		log.Sync()
	}, nil
}

// openStore opens only the database, for commands that need no services.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
