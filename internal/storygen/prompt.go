package storygen

import (
	"fmt"
	"strings"

	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/llm"
	"github.com/abhisek/kahani/internal/passage"
)

const generateSystemPrompt = `You are a %s language teaching assistant. You write short graded reading passages for adult learners and annotate every word so the learner can study it.`

const importSystemPrompt = `You are a %s language teaching assistant. You annotate texts supplied by learners for study. You never rewrite, correct or paraphrase the learner's text.`

const validateSystemPrompt = `You are a meticulous %s editor reviewing a graded reading passage written for a language learner.`

// documentFormat describes the passage document both prompt types request.
const documentFormat = `Return your response as valid JSON with this exact structure:
{
  "title": "Title in %[1]s and English",
  "content_script": "Full text in %[1]s script",
  "content_romanized": "Full text romanized",
  "content_translation": "English translation",
  "word_count": number,
  "characters_used": [
    {"name": "Character name", "role": "Role in this passage"}
  ],
  "sentences": [
    {
      "index": 0,
      "script": "Sentence in %[1]s script",
      "romanized": "Sentence romanized",
      "translation": "English translation",
      "words": [
        {
          "surface": "word as written",
          "romanized": "word romanized",
          "gloss": "English meaning",
          "is_new": true/false,
          "category": "NOUN/VERB/ADJECTIVE/ADVERB/POSTPOSITION/PARTICLE/PRONOUN/CONJUNCTION",
          "gender": "masculine/feminine (nouns only)"
        }
      ],
      "grammar_notes": ["Optional grammar explanations"]
    }
  ],
  "exercises": [
    {
      "type": "COMPREHENSION/FILL_BLANK/TRANSLATE_TO_TARGET/TRANSLATE_TO_SOURCE/WORD_ORDER/MULTIPLE_CHOICE",
      "question": {
        "prompt": "Question text",
        "context": "Optional context",
        "sentence_index": 0
      },
      "correct_answer": "The correct answer",
      "options": ["option1", "option2", "option3", "option4"]
    }
  ]
}`

// GenerateParams are the inputs of a generation prompt.
type GenerateParams struct {
	Language string
	Tier     lexicon.Tier
	Topic    string
	Context  Context
}

// ImportParams are the inputs of an import prompt.
type ImportParams struct {
	Language string
	Tier     lexicon.Tier
	Topic    string
	Text     string
	Known    string
}

// BuildGenerateRequest composes the request for a new passage. Identical
// params always yield an identical request.
func BuildGenerateRequest(p GenerateParams, cfg Config) llm.Request {
	return llm.Request{
		System: fmt.Sprintf(generateSystemPrompt, p.Language),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildGenerateUserMessage(p)},
		},
		JSON:        true,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
}

func buildGenerateUserMessage(p GenerateParams) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate a short story for a %s learner at %s level.\n", p.Language, p.Tier)

	b.WriteString("\nKNOWN VOCABULARY (the learner can read these):\n")
	b.WriteString(orDefault(p.Context.KnownWords, "Basic greetings and pronouns"))
	b.WriteString("\n")

	if p.Context.NewWords != "" {
		b.WriteString("\nNEW WORDS TO INTRODUCE (use each at least twice):\n")
		b.WriteString(p.Context.NewWords)
		b.WriteString("\n")
	}

	b.WriteString("\nGRAMMAR TO PRACTICE:\n")
	b.WriteString(orDefault(p.Context.Grammar, "Basic sentence structure"))
	b.WriteString("\n")

	if p.Context.Characters != "" {
		b.WriteString("\nRECURRING CHARACTERS (reuse them where natural and keep their relationships consistent):\n")
		b.WriteString(p.Context.Characters)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nTOPIC: %s\n", p.Topic)

	b.WriteString(`
CONSTRAINTS:
- 8-12 sentences long
- Use only known vocabulary + new words (proper nouns like names are OK)
- Every new word must appear at least twice in different sentences
- Mark a word "is_new": true only if it is not in the known vocabulary
- Include 1-2 lines of dialogue
- Keep sentences simple and clear

`)
	fmt.Fprintf(&b, documentFormat, p.Language)
	b.WriteString("\n\nGenerate 4-6 exercises mixing comprehension and vocabulary practice.")

	return b.String()
}

// writeAuditSentences lists each sentence by index with its romanization and
// translation. Annotations are left out since the validator corrects prose only.
func writeAuditSentences(b *strings.Builder, sentences []passage.Sentence) {
	for _, s := range sentences {
		fmt.Fprintf(b, "[%d] %s\n", s.Index, s.Script)
		fmt.Fprintf(b, "    romanized: %s\n", s.Romanized)
		fmt.Fprintf(b, "    translation: %s\n", s.Translation)
	}
}

// BuildImportRequest composes the request that annotates learner-supplied
// text without changing it.
func BuildImportRequest(p ImportParams, cfg Config) llm.Request {
	return llm.Request{
		System: fmt.Sprintf(importSystemPrompt, p.Language),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildImportUserMessage(p)},
		},
		JSON:        true,
		MaxTokens:   cfg.MaxTokens,
		Temperature: 0,
	}
}

func buildImportUserMessage(p ImportParams) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Annotate the following %s text for a learner at %s level.\n", p.Language, p.Tier)
	b.WriteString("\nTEXT (preserve exactly as written):\n<<<\n")
	b.WriteString(p.Text)
	b.WriteString("\n>>>\n")

	if p.Known != "" {
		b.WriteString("\nKNOWN VOCABULARY (words the learner already knows; mark others as new):\n")
		b.WriteString(p.Known)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nTOPIC: %s\n", p.Topic)

	b.WriteString(`
RULES:
- Do NOT paraphrase, correct, shorten or reorder the text. "content_script" must equal the text above verbatim.
- Split the text into sentences in their original order; each sentence's "script" must be copied verbatim.
- Annotate every word of every sentence.
- Mark a word "is_new": true if it is not in the known vocabulary.
- Leave "characters_used" empty unless the text names people.

`)
	fmt.Fprintf(&b, documentFormat, p.Language)
	b.WriteString("\n\nGenerate 3-5 exercises about the text.")

	return b.String()
}

// BuildValidateRequest composes the audit request for a parsed document.
func BuildValidateRequest(language string, tier lexicon.Tier, topic string, doc passage.Document, cfg Config) llm.Request {
	return llm.Request{
		System: fmt.Sprintf(validateSystemPrompt, language),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildValidateUserMessage(language, tier, topic, doc)},
		},
		JSON:        true,
		MaxTokens:   cfg.ValidateMaxTokens,
		Temperature: 0,
	}
}

func buildValidateUserMessage(language string, tier lexicon.Tier, topic string, doc passage.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review this %s passage written for a %s learner.\n", language, tier)
	fmt.Fprintf(&b, "\nTOPIC: %s\n", topic)
	fmt.Fprintf(&b, "\nTITLE: %s\n", doc.Title)
	fmt.Fprintf(&b, "\nFULL TEXT:\n%s\n", doc.ContentScript)
	fmt.Fprintf(&b, "\nROMANIZED:\n%s\n", doc.ContentRomanized)
	fmt.Fprintf(&b, "\nTRANSLATION:\n%s\n", doc.ContentTranslation)
	b.WriteString("\nSENTENCES:\n")
	writeAuditSentences(&b, doc.Sentences)

	b.WriteString(`
Check for:
1. Grammatical form errors (agreement, case, tense, postpositions).
2. Breaks in narrative cohesion between sentences.
3. Unnatural or non-idiomatic phrasing for the level.

Keep the vocabulary and level unchanged. Fix only real problems.

Return valid JSON with this exact structure:
{
  "has_issues": true/false,
  "issues": ["Short description of each issue"],
  "corrected_script": "Full corrected text, or empty if unchanged",
  "corrected_romanized": "Full corrected romanization, or empty if unchanged",
  "corrected_translation": "Full corrected translation, or empty if unchanged",
  "sentences": [
    {"index": 0, "changed": true/false, "script": "...", "romanized": "...", "translation": "..."}
  ]
}`)

	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
