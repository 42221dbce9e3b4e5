package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/kahani/internal/docparse"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/llm"
	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/passage"
	"github.com/abhisek/kahani/internal/storygen"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview a generated passage (no database)",
	Long: `Generate one passage from an empty learner context and print it.

Nothing is read from or written to the database and no LLM events are
recorded. Useful for evaluating prompt and model quality.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().String("topic", "", "Passage topic")
	previewCmd.Flags().String("tier", "A1", "CEFR tier (A1-B2)")
	previewCmd.Flags().Bool("json", false, "Print the raw parsed document as JSON")
	previewCmd.Flags().Bool("prompt", false, "Print the prompt and exit without calling the model")
}

func runPreview(cmd *cobra.Command, args []string) error {
	topic, _ := cmd.Flags().GetString("topic")
	tierVal, _ := cmd.Flags().GetString("tier")
	asJSON, _ := cmd.Flags().GetBool("json")
	promptOnly, _ := cmd.Flags().GetBool("prompt")

	tier, err := lexicon.ParseTier(tierVal)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	req := storygen.BuildGenerateRequest(storygen.GenerateParams{
		Language: cfg.Generation.Language,
		Tier:     tier,
		Topic:    topic,
	}, cfg.Generation)

	if promptOnly {
		fmt.Println(req.System)
		fmt.Println(strings.Repeat("─", 60))
		fmt.Println(req.UserPrompt())
		return nil
	}

	ctx := cmd.Context()
	provider, err := llm.NewProvider(ctx, cfg.LLM, nil, log)
	if err != nil {
		return fmt.Errorf("LLM provider: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Generating a %s %s passage with %s...\n", tier, cfg.Generation.Language, provider.ModelID())
	resp, err := provider.Generate(llm.WithPurpose(ctx, storygen.PurposeGenerate), req)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	var doc passage.Document
	if err := docparse.Decode(resp.Text, storygen.PassageSchema, &doc); err != nil {
		fmt.Println(resp.Text)
		return fmt.Errorf("model output did not parse: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	fmt.Printf("%s  (%d words, %d in / %d out tokens)\n", doc.Title, doc.WordCount, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	fmt.Println(strings.Repeat("─", 60))
	for _, s := range doc.Sentences {
		fmt.Println(s.Script)
		fmt.Printf("  %s\n", s.Romanized)
		fmt.Printf("  %s\n", s.Translation)
	}
	if len(doc.Exercises) > 0 {
		fmt.Println(strings.Repeat("─", 60))
		for i, e := range doc.Exercises {
			fmt.Printf("%d. [%s] %s\n", i+1, e.Type, e.Question.Prompt)
			if len(e.Options) > 0 {
				fmt.Printf("   options: %s\n", strings.Join(e.Options, " / "))
			}
			fmt.Printf("   answer: %s\n", e.CorrectAnswer)
		}
	}
	return nil
}
