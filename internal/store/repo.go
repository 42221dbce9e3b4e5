package store

import (
	"context"
	"time"

	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/passage"
)

// Word is a dictionary entry, unique by surface form.
type Word struct {
	ID              string
	Surface         string
	Transliteration string
	Gloss           string
	Category        lexicon.Category
	Gender          lexicon.Gender // empty unless Category is NOUN
	Tier            lexicon.Tier
	Tags            []string
	Notes           string
	Source          lexicon.Source
	CreatedAt       time.Time
}

// WordRepo manages dictionary entries.
type WordRepo interface {
	// CreateIfAbsent inserts w unless an entry with the same surface form
	// exists, and returns the stored entry either way. created reports
	// whether this call inserted it.
	CreateIfAbsent(ctx context.Context, w Word) (stored Word, created bool, err error)

	// Get returns an entry by id, or an apperr not-found error.
	Get(ctx context.Context, id string) (*Word, error)

	// FindBySurface returns the entry for surface, or nil if none exists.
	FindBySurface(ctx context.Context, surface string) (*Word, error)

	// FindBySurfaces returns the entries that exist, keyed by surface form.
	FindBySurfaces(ctx context.Context, surfaces []string) (map[string]Word, error)

	// GetMany returns the entries that exist, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]Word, error)

	// Unseen returns entries at tier the learner has no record for,
	// ordered by surface form.
	Unseen(ctx context.Context, learnerID string, tier lexicon.Tier, limit int) ([]Word, error)

	// Count returns the number of dictionary entries.
	Count(ctx context.Context) (int, error)
}

// LearnerWord is one learner's progress on one dictionary entry.
type LearnerWord struct {
	ID            string
	LearnerID     string
	WordID        string
	Status        lexicon.WordStatus
	Familiarity   float64
	TimesSeen     int
	TimesReviewed int
	TimesCorrect  int
	LastSeenAt    *time.Time
	NextDueAt     *time.Time
	IntervalDays  float64
	Ease          float64
	Source        lexicon.Source
	CreatedAt     time.Time
}

// LearnerWordEntry pairs a learner record with its dictionary entry.
type LearnerWordEntry struct {
	State LearnerWord
	Word  Word
}

// LearnerWordRepo manages per-learner word progress.
type LearnerWordRepo interface {
	// Get returns the learner's record for wordID, or nil if none exists.
	Get(ctx context.Context, learnerID, wordID string) (*LearnerWord, error)

	// GetMany returns existing records for the given words, keyed by word id.
	GetMany(ctx context.Context, learnerID string, wordIDs []string) (map[string]LearnerWord, error)

	// Save upserts lw by (learner, word) and sets lw.ID to the stored id.
	Save(ctx context.Context, lw *LearnerWord) error

	// ListByStatus returns records in any of statuses ordered by surface
	// form. limit <= 0 means unlimited.
	ListByStatus(ctx context.Context, learnerID string, statuses []lexicon.WordStatus, limit int) ([]LearnerWordEntry, error)

	// Due returns learning/known records whose next due time is unset or
	// not after now, earliest first with unset times leading.
	Due(ctx context.Context, learnerID string, now time.Time, limit int) ([]LearnerWordEntry, error)

	// CountByStatus counts the learner's records per status.
	CountByStatus(ctx context.Context, learnerID string) (map[lexicon.WordStatus]int, error)

	// ReviewedSince counts records last seen at or after since that have
	// at least one review.
	ReviewedSince(ctx context.Context, learnerID string, since time.Time) (int, error)

	// NextDueAfter returns the earliest due time after now among reviewable
	// records, or nil.
	NextDueAfter(ctx context.Context, learnerID string, now time.Time) (*time.Time, error)
}

// GrammarConcept is a teachable grammar point.
type GrammarConcept struct {
	ID            string
	Slug          string
	Name          string
	Description   string
	Tier          lexicon.Tier
	SortOrder     int
	Examples      []string
	Prerequisites []string // concept ids
}

// LearnerGrammar is one learner's status on one grammar concept.
type LearnerGrammar struct {
	LearnerID    string
	ConceptID    string
	Status       lexicon.GrammarStatus
	Comfort      float64
	IntroducedAt time.Time
}

// GrammarRepo manages grammar concepts and per-learner grammar status.
type GrammarRepo interface {
	// UpsertConcept inserts or updates a concept by slug.
	UpsertConcept(ctx context.Context, c GrammarConcept) error

	// Concepts returns all concepts in teaching order.
	Concepts(ctx context.Context) ([]GrammarConcept, error)

	// Concept returns a concept by id, or an apperr not-found error.
	Concept(ctx context.Context, id string) (*GrammarConcept, error)

	// LearnerStates returns the learner's rows keyed by concept id.
	LearnerStates(ctx context.Context, learnerID string) (map[string]LearnerGrammar, error)

	// SaveLearnerState upserts a learner row by (learner, concept).
	SaveLearnerState(ctx context.Context, s LearnerGrammar) error

	// InProgress returns concepts whose learner status is one of statuses,
	// in teaching order.
	InProgress(ctx context.Context, learnerID string, statuses []lexicon.GrammarStatus, limit int) ([]GrammarConcept, error)
}

// Origin tells generated passages from imported ones.
type Origin string

const (
	OriginGenerated Origin = "generated"
	OriginImported  Origin = "imported"
)

// Passage is a persisted reading unit.
type Passage struct {
	ID                 string
	LearnerID          string
	Title              string
	ContentScript      string
	ContentRomanized   string
	ContentTranslation string
	Sentences          []passage.Sentence
	TargetWordIDs      []string
	TargetGrammarIDs   []string
	Topic              string
	Tier               lexicon.Tier
	WordCount          int
	Origin             Origin
	Prompt             string
	RawResponse        string
	Model              string
	Rating             *int
	CreatedAt          time.Time
	CompletedAt        *time.Time
}

// PassageFilter narrows List results.
type PassageFilter struct {
	LearnerID string
	Completed *bool
	Limit     int
}

// PassageRepo manages passages.
type PassageRepo interface {
	Create(ctx context.Context, p *Passage) error

	// Get returns the learner's passage, or an apperr not-found error when
	// it does not exist or belongs to someone else.
	Get(ctx context.Context, learnerID, id string) (*Passage, error)

	// List returns passages newest first.
	List(ctx context.Context, f PassageFilter) ([]Passage, error)

	// MarkCompleted stamps completion and rating. It reports false when the
	// passage was already completed.
	MarkCompleted(ctx context.Context, id string, at time.Time, rating *int) (bool, error)

	// ExampleSentence returns a sentence annotated with wordID from the
	// learner's most recent passage that used it, or nil.
	ExampleSentence(ctx context.Context, learnerID, wordID string) (*passage.Sentence, error)
}

// Exercise belongs to exactly one passage.
type Exercise struct {
	ID              string
	PassageID       string
	Position        int
	Type            lexicon.ExerciseType
	Question        passage.Question
	CorrectAnswer   string
	Options         []string
	TargetWordID    string
	TargetGrammarID string
}

// Attempt is one learner answer to an exercise.
type Attempt struct {
	ID         string
	LearnerID  string
	ExerciseID string
	Answer     string
	Correct    bool
	Feedback   string
	CreatedAt  time.Time
}

// ExerciseRepo manages exercises and answer attempts.
type ExerciseRepo interface {
	CreateBatch(ctx context.Context, exercises []Exercise) error
	ListByPassage(ctx context.Context, passageID string) ([]Exercise, error)

	// Get returns an exercise whose passage belongs to the learner, or an
	// apperr not-found error.
	Get(ctx context.Context, learnerID, id string) (*Exercise, error)

	RecordAttempt(ctx context.Context, a *Attempt) error
	Attempts(ctx context.Context, learnerID, exerciseID string) ([]Attempt, error)
}

// Character is a learner-scoped recurring persona.
type Character struct {
	ID          string
	LearnerID   string
	Name        string
	Description string
	Traits      string
	Appearances int
	Active      bool
	CreatedAt   time.Time
}

// Relationship is a directed, typed edge between two characters.
type Relationship struct {
	FromID      string
	ToID        string
	Kind        string
	Description string
}

// PassageCharacter records a character's role in one passage.
type PassageCharacter struct {
	PassageID   string
	CharacterID string
	Name        string
	Role        string
}

// CharacterRepo manages continuity characters.
type CharacterRepo interface {
	// Create inserts a character; an existing (learner, name) is kept.
	Create(ctx context.Context, c *Character) error

	// TopActive returns the learner's active characters, most appearances
	// first.
	TopActive(ctx context.Context, learnerID string, limit int) ([]Character, error)

	// Relationships returns edges whose ends are both in ids.
	Relationships(ctx context.Context, ids []string) ([]Relationship, error)

	AddRelationship(ctx context.Context, r Relationship) error

	// RecordAppearance bumps the appearance counter of the named character
	// (creating it if needed) and links it to the passage.
	RecordAppearance(ctx context.Context, learnerID, passageID, name, role string, at time.Time) (Character, error)

	ByPassage(ctx context.Context, passageID string) ([]PassageCharacter, error)
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match when set
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int64
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates events by purpose or by model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}
