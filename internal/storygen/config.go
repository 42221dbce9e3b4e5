package storygen

import "time"

// Config holds passage generation settings.
type Config struct {
	// Language is the target language named in prompts.
	Language string

	// KnownSample bounds how many learner words are read for context;
	// KnownInPrompt bounds how many of them are rendered.
	KnownSample   int
	KnownInPrompt int

	GrammarLimit   int
	CharacterLimit int

	// MinNewWords and MaxNewWords bound the suggested new words.
	MinNewWords int
	MaxNewWords int

	// ReadyThreshold is the number of unseen words at the learner's tier
	// needed before a passage is worth generating.
	ReadyThreshold int

	DefaultTopic string

	// Timeout bounds each provider call.
	Timeout time.Duration

	// Validate enables the corrective second pass.
	Validate bool

	MaxTokens         int
	ValidateMaxTokens int
	Temperature       float64
}

// DefaultConfig returns sensible defaults for passage generation.
func DefaultConfig() Config {
	return Config{
		Language:          "Hindi",
		KnownSample:       300,
		KnownInPrompt:     200,
		GrammarLimit:      2,
		CharacterLimit:    5,
		MinNewWords:       3,
		MaxNewWords:       5,
		ReadyThreshold:    3,
		DefaultTopic:      "daily life",
		Timeout:           90 * time.Second,
		Validate:          true,
		MaxTokens:         4096,
		ValidateMaxTokens: 4096,
		Temperature:       0.7,
	}
}
