package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/kahani/internal/exercise"
	"github.com/abhisek/kahani/internal/grammar"
	"github.com/abhisek/kahani/internal/passage"
	"github.com/abhisek/kahani/internal/progress"
	"github.com/abhisek/kahani/internal/review"
	"github.com/abhisek/kahani/internal/store"
	"github.com/abhisek/kahani/internal/storygen"
	"github.com/abhisek/kahani/internal/vocab"
)

type passageSummary struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Topic       string     `json:"topic"`
	Tier        string     `json:"tier"`
	WordCount   int        `json:"word_count"`
	Origin      string     `json:"origin"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Rating      *int       `json:"rating,omitempty"`
}

type passageDetail struct {
	passageSummary
	ContentScript      string             `json:"content_script"`
	ContentRomanized   string             `json:"content_romanized"`
	ContentTranslation string             `json:"content_translation"`
	Sentences          []passage.Sentence `json:"sentences"`
	TargetWordIDs      []string           `json:"target_word_ids"`
	TargetGrammarIDs   []string           `json:"target_grammar_ids"`
	Model              string             `json:"model,omitempty"`
	Exercises          []exerciseJSON     `json:"exercises"`
	Characters         []characterJSON    `json:"characters"`
	Fallback           bool               `json:"fallback,omitempty"`
}

type exerciseJSON struct {
	ID       string           `json:"id"`
	Position int              `json:"position"`
	Type     string           `json:"type"`
	Question passage.Question `json:"question"`
	Options  []string         `json:"options,omitempty"`
}

type characterJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

type wordJSON struct {
	ID              string   `json:"id"`
	Surface         string   `json:"surface"`
	Transliteration string   `json:"transliteration,omitempty"`
	Gloss           string   `json:"gloss"`
	Category        string   `json:"category"`
	Gender          string   `json:"gender,omitempty"`
	Tier            string   `json:"tier"`
	Tags            []string `json:"tags,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

type learnerWordJSON struct {
	Status        string     `json:"status"`
	Familiarity   float64    `json:"familiarity"`
	TimesSeen     int        `json:"times_seen"`
	TimesReviewed int        `json:"times_reviewed"`
	TimesCorrect  int        `json:"times_correct"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
	NextDueAt     *time.Time `json:"next_due_at,omitempty"`
	IntervalDays  float64    `json:"interval_days"`
	Ease          float64    `json:"ease"`
	Source        string     `json:"source"`
}

type reviewItemJSON struct {
	Word    wordJSON          `json:"word"`
	State   learnerWordJSON   `json:"state"`
	Example *passage.Sentence `json:"example,omitempty"`
}

type outcomeJSON struct {
	WordID       string    `json:"word_id"`
	Quality      int       `json:"quality"`
	Status       string    `json:"status"`
	IntervalDays float64   `json:"interval_days"`
	Ease         float64   `json:"ease"`
	Familiarity  float64   `json:"familiarity"`
	NextDueAt    time.Time `json:"next_due_at"`
}

type grammarJSON struct {
	ID            string   `json:"id"`
	Slug          string   `json:"slug"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Tier          string   `json:"tier"`
	Examples      []string `json:"examples,omitempty"`
	Prerequisites []string `json:"prerequisites"`
	Status        string   `json:"status"`
	Comfort       float64  `json:"comfort"`
	Unlockable    bool     `json:"unlockable"`
}

func toPassageSummary(p store.Passage) passageSummary {
	return passageSummary{
		ID:          p.ID,
		Title:       p.Title,
		Topic:       p.Topic,
		Tier:        string(p.Tier),
		WordCount:   p.WordCount,
		Origin:      string(p.Origin),
		CreatedAt:   p.CreatedAt,
		CompletedAt: p.CompletedAt,
		Rating:      p.Rating,
	}
}

func toPassageDetail(r *storygen.Result) passageDetail {
	p := r.Passage
	d := passageDetail{
		passageSummary:     toPassageSummary(p),
		ContentScript:      p.ContentScript,
		ContentRomanized:   p.ContentRomanized,
		ContentTranslation: p.ContentTranslation,
		Sentences:          nonNil(p.Sentences),
		TargetWordIDs:      nonNil(p.TargetWordIDs),
		TargetGrammarIDs:   nonNil(p.TargetGrammarIDs),
		Model:              p.Model,
		Exercises:          make([]exerciseJSON, 0, len(r.Exercises)),
		Characters:         make([]characterJSON, 0, len(r.Characters)),
		Fallback:           r.Fallback,
	}
	for _, e := range r.Exercises {
		d.Exercises = append(d.Exercises, toExercise(e))
	}
	for _, c := range r.Characters {
		d.Characters = append(d.Characters, characterJSON{ID: c.CharacterID, Name: c.Name, Role: c.Role})
	}
	return d
}

// toExercise omits the correct answer.
func toExercise(e store.Exercise) exerciseJSON {
	return exerciseJSON{
		ID:       e.ID,
		Position: e.Position,
		Type:     string(e.Type),
		Question: e.Question,
		Options:  e.Options,
	}
}

func toWord(w store.Word) wordJSON {
	return wordJSON{
		ID:              w.ID,
		Surface:         w.Surface,
		Transliteration: w.Transliteration,
		Gloss:           w.Gloss,
		Category:        string(w.Category),
		Gender:          string(w.Gender),
		Tier:            string(w.Tier),
		Tags:            w.Tags,
		Notes:           w.Notes,
	}
}

func toLearnerWord(lw store.LearnerWord) learnerWordJSON {
	return learnerWordJSON{
		Status:        string(lw.Status),
		Familiarity:   lw.Familiarity,
		TimesSeen:     lw.TimesSeen,
		TimesReviewed: lw.TimesReviewed,
		TimesCorrect:  lw.TimesCorrect,
		LastSeenAt:    lw.LastSeenAt,
		NextDueAt:     lw.NextDueAt,
		IntervalDays:  lw.IntervalDays,
		Ease:          lw.Ease,
		Source:        string(lw.Source),
	}
}

func toReviewItem(it review.Item) reviewItemJSON {
	return reviewItemJSON{Word: toWord(it.Word), State: toLearnerWord(it.State), Example: it.Example}
}

func toOutcome(o review.Outcome) outcomeJSON {
	return outcomeJSON{
		WordID:       o.WordID,
		Quality:      int(o.Quality),
		Status:       string(o.Status),
		IntervalDays: o.IntervalDays,
		Ease:         o.Ease,
		Familiarity:  o.Familiarity,
		NextDueAt:    o.NextDueAt,
	}
}

func toGrammar(e grammar.Entry) grammarJSON {
	return grammarJSON{
		ID:            e.Concept.ID,
		Slug:          e.Concept.Slug,
		Name:          e.Concept.Name,
		Description:   e.Concept.Description,
		Tier:          string(e.Concept.Tier),
		Examples:      e.Concept.Examples,
		Prerequisites: nonNil(e.Concept.Prerequisites),
		Status:        string(e.Status),
		Comfort:       e.Comfort,
		Unlockable:    e.Unlockable,
	}
}

func toLookup(e *vocab.Entry) gin.H {
	out := gin.H{"word": toWord(e.Word)}
	if e.State != nil {
		out["state"] = toLearnerWord(*e.State)
	}
	return out
}

func toCompletion(c *progress.Completion) gin.H {
	return gin.H{
		"passage_id":        c.PassageID,
		"completed_at":      c.CompletedAt,
		"rating":            c.Rating,
		"words_updated":     c.WordsUpdated,
		"already_completed": c.AlreadyCompleted,
	}
}

func toAnswer(r exercise.Result) gin.H {
	return gin.H{"correct": r.Correct, "feedback": r.Feedback, "method": string(r.Method)}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
