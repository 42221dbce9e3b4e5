package httpapi

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/srs"
	"github.com/abhisek/kahani/internal/storygen"
)

type generateBody struct {
	Topic          string   `json:"topic"`
	Tier           string   `json:"tier"`
	IncludeWordIDs []string `json:"include_word_ids"`
	FocusGrammarID string   `json:"focus_grammar_id"`
}

type importBody struct {
	Text  string `json:"text"`
	Topic string `json:"topic"`
	Tier  string `json:"tier"`
}

type completeBody struct {
	Rating *int `json:"rating"`
}

type answerBody struct {
	Answer string `json:"answer"`
}

type reviewBody struct {
	Quality *int `json:"quality"`
}

type grammarStatusBody struct {
	Status  string  `json:"status"`
	Comfort float64 `json:"comfort"`
}

func tier(raw string) lexicon.Tier {
	return lexicon.Tier(strings.ToUpper(strings.TrimSpace(raw)))
}

// bindOptional decodes a JSON body that may be absent.
func bindOptional(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Invalid("malformed body: %v", err)
	}
	return nil
}

func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Invalid("malformed body: %v", err)
	}
	return nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Invalid("%s must be an integer", name)
	}
	return n, nil
}

func (s *Server) ready(c *gin.Context) {
	r, err := s.app.Passages.Ready(c.Request.Context(), learnerID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondOK(c, gin.H{
		"ready":           r.Ready,
		"tier":            string(r.Tier),
		"known_words":     r.KnownWords,
		"new_words":       r.NewWords,
		"suggested_topic": r.SuggestedTopic,
	})
}

func (s *Server) generatePassage(c *gin.Context) {
	var body generateBody
	if err := bindOptional(c, &body); err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.app.Passages.Generate(c.Request.Context(), storygen.GenerateInput{
		LearnerID:      learnerID(c),
		Topic:          body.Topic,
		Tier:           tier(body.Tier),
		IncludeWordIDs: body.IncludeWordIDs,
		FocusGrammarID: body.FocusGrammarID,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondCreated(c, toPassageDetail(res))
}

func (s *Server) importPassage(c *gin.Context) {
	var body importBody
	if err := bind(c, &body); err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.app.Passages.Import(c.Request.Context(), storygen.ImportInput{
		LearnerID: learnerID(c),
		Text:      body.Text,
		Topic:     body.Topic,
		Tier:      tier(body.Tier),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondCreated(c, toPassageDetail(res))
}

func (s *Server) listPassages(c *gin.Context) {
	var completed *bool
	if raw := c.Query("completed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.fail(c, apperr.Invalid("completed must be true or false"))
			return
		}
		completed = &v
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		s.fail(c, err)
		return
	}
	ps, err := s.app.Passages.List(c.Request.Context(), learnerID(c), completed, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]passageSummary, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPassageSummary(p))
	}
	RespondOK(c, gin.H{"passages": out})
}

func (s *Server) getPassage(c *gin.Context) {
	res, err := s.app.Passages.Get(c.Request.Context(), learnerID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondOK(c, toPassageDetail(res))
}

func (s *Server) completePassage(c *gin.Context) {
	var body completeBody
	if err := bindOptional(c, &body); err != nil {
		s.fail(c, err)
		return
	}
	done, err := s.app.Progress.Complete(c.Request.Context(), learnerID(c), c.Param("id"), body.Rating)
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondOK(c, toCompletion(done))
}

func (s *Server) listExercises(c *gin.Context) {
	exs, err := s.app.Exercises.List(c.Request.Context(), learnerID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]exerciseJSON, 0, len(exs))
	for _, e := range exs {
		out = append(out, toExercise(e))
	}
	RespondOK(c, gin.H{"exercises": out})
}

func (s *Server) answerExercise(c *gin.Context) {
	var body answerBody
	if err := bind(c, &body); err != nil {
		s.fail(c, err)
		return
	}
	r, err := s.app.Exercises.Answer(c.Request.Context(), learnerID(c), c.Param("id"), body.Answer)
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondOK(c, toAnswer(r))
}

func (s *Server) dueReviews(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		s.fail(c, err)
		return
	}
	items, err := s.app.Reviews.Due(c.Request.Context(), learnerID(c), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]reviewItemJSON, 0, len(items))
	for _, it := range items {
		out = append(out, toReviewItem(it))
	}
	RespondOK(c, gin.H{"items": out})
}

func (s *Server) submitReview(c *gin.Context) {
	var body reviewBody
	if err := bind(c, &body); err != nil {
		s.fail(c, err)
		return
	}
	if body.Quality == nil {
		s.fail(c, apperr.Invalid("quality is required"))
		return
	}
	o, err := s.app.Reviews.Submit(c.Request.Context(), learnerID(c), c.Param("wordID"), srs.Quality(*body.Quality))
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondOK(c, toOutcome(o))
}

func (s *Server) reviewSummary(c *gin.Context) {
	sum, err := s.app.Reviews.Summary(c.Request.Context(), learnerID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondOK(c, gin.H{
		"due_now":        sum.DueNow,
		"reviewed_today": sum.ReviewedToday,
		"next_review_at": sum.NextReviewAt,
	})
}

func (s *Server) lookupWord(c *gin.Context) {
	e, err := s.app.Vocab.Lookup(c.Request.Context(), learnerID(c), c.Query("word"))
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondOK(c, toLookup(e))
}

func (s *Server) markKnown(c *gin.Context) {
	lw, err := s.app.Vocab.MarkKnown(c.Request.Context(), learnerID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondOK(c, toLearnerWord(*lw))
}

func (s *Server) listGrammar(c *gin.Context) {
	entries, err := s.app.Grammar.List(c.Request.Context(), learnerID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]grammarJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toGrammar(e))
	}
	RespondOK(c, gin.H{"concepts": out})
}

func (s *Server) unlockGrammar(c *gin.Context) {
	e, err := s.app.Grammar.Unlock(c.Request.Context(), learnerID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondOK(c, toGrammar(e))
}

func (s *Server) setGrammarStatus(c *gin.Context) {
	var body grammarStatusBody
	if err := bind(c, &body); err != nil {
		s.fail(c, err)
		return
	}
	status, err := lexicon.ParseGrammarStatus(body.Status)
	if err != nil {
		s.fail(c, apperr.Invalid("%v", err))
		return
	}
	e, err := s.app.Grammar.SetStatus(c.Request.Context(), learnerID(c), c.Param("id"), status, body.Comfort)
	if err != nil {
		s.fail(c, err)
		return
	}
	RespondOK(c, toGrammar(e))
}
