// Package exercise grades learner answers to passage exercises.
package exercise

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/kahani/internal/docparse"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/llm"
	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/store"
)

// PurposeGrade labels grading calls in the LLM event log.
const PurposeGrade = "exercise-grade"

// Method names how an answer was judged.
type Method string

const (
	MethodExact    Method = "exact"
	MethodFuzzy    Method = "fuzzy"
	MethodModel    Method = "model"
	MethodFallback Method = "fallback"
)

// Result is the verdict on one answer.
type Result struct {
	Correct  bool
	Feedback string
	Method   Method
}

var gradeSchema = &docparse.Schema{
	Name: "exercise-grade",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_correct": map[string]any{"type": "boolean"},
			"feedback":   map[string]any{"type": "string"},
		},
		"required": []any{"is_correct"},
	},
}

const gradePrompt = `You are evaluating a %s language learner's translation.
Be lenient with minor spelling variations in romanized text.
Accept synonyms and alternative phrasings that convey the same meaning.
Focus on whether the grammar structure and meaning are correct.

Question: %s
Expected answer: %s
Learner's answer: %s

Decide whether the answer is correct and give brief, encouraging feedback in 1-2 sentences.

Respond in JSON format:
{
  "is_correct": true,
  "feedback": "..."
}`

// Evaluator grades answers. Translations go to the model; everything else
// is compared locally.
type Evaluator struct {
	provider llm.Provider
	language string
	timeout  time.Duration
	log      *logger.Logger
}

// NewEvaluator creates an Evaluator. A nil provider grades translations by
// fuzzy match.
func NewEvaluator(provider llm.Provider, language string, timeout time.Duration, log *logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Evaluator{provider: provider, language: language, timeout: timeout, log: log}
}

// Evaluate grades answer against ex. Model failures fall back to a fuzzy
// match; only cancellation of ctx is returned as an error.
func (e *Evaluator) Evaluate(ctx context.Context, ex store.Exercise, answer string) (Result, error) {
	switch ex.Type {
	case lexicon.ExerciseMultipleChoice, lexicon.ExerciseComprehension:
		return exact(answer, ex.CorrectAnswer, "The correct answer was: "), nil
	case lexicon.ExerciseWordOrder:
		return exact(answer, ex.CorrectAnswer, "Correct order: "), nil
	case lexicon.ExerciseFillBlank:
		ok := FuzzyMatch(answer, ex.CorrectAnswer)
		r := Result{Correct: ok, Method: MethodFuzzy}
		if !ok {
			r.Feedback = "Expected: " + ex.CorrectAnswer
		}
		return r, nil
	case lexicon.ExerciseTranslateToTarget, lexicon.ExerciseTranslateToSource:
		return e.grade(ctx, ex, answer)
	}
	return Result{Feedback: "Unknown exercise type", Method: MethodExact}, nil
}

func exact(answer, expected, prefix string) Result {
	ok := Normalize(answer) == Normalize(expected)
	r := Result{Correct: ok, Method: MethodExact}
	if !ok {
		r.Feedback = prefix + expected
	}
	return r
}

type gradeReport struct {
	IsCorrect bool   `json:"is_correct"`
	Feedback  string `json:"feedback"`
}

func (e *Evaluator) grade(ctx context.Context, ex store.Exercise, answer string) (Result, error) {
	if e.provider != nil {
		report, err := e.ask(ctx, ex, answer)
		if err == nil {
			return Result{Correct: report.IsCorrect, Feedback: report.Feedback, Method: MethodModel}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		e.log.Warn("model grading failed, using fuzzy match", "exercise_id", ex.ID, "error", err)
	}

	ok := FuzzyMatch(answer, ex.CorrectAnswer)
	r := Result{Correct: ok, Method: MethodFallback, Feedback: "Good attempt!"}
	if !ok {
		r.Feedback = "Expected something like: " + ex.CorrectAnswer
	}
	return r, nil
}

func (e *Evaluator) ask(ctx context.Context, ex store.Exercise, answer string) (*gradeReport, error) {
	ctx, cancel := context.WithTimeout(llm.WithPurpose(ctx, PurposeGrade), e.timeout)
	defer cancel()

	prompt := fmt.Sprintf(gradePrompt, e.language, strings.TrimSpace(ex.Question.Prompt), ex.CorrectAnswer, answer)
	resp, err := e.provider.Generate(ctx, llm.Request{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		JSON:      true,
		MaxTokens: 200,
	})
	if err != nil {
		return nil, err
	}

	var report gradeReport
	if err := docparse.Decode(resp.Text, gradeSchema, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
