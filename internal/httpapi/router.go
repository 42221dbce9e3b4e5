// Package httpapi exposes the learning services over HTTP with gin.
package httpapi

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/abhisek/kahani/internal/app"
	"github.com/abhisek/kahani/internal/config"
	"github.com/abhisek/kahani/internal/logger"
)

// LearnerHeader carries the learner id on every API request.
const LearnerHeader = "X-Learner-ID"

const learnerKey = "kahani.learner"

// Server serves the API for one App.
type Server struct {
	app *app.App
	log *logger.Logger
}

// NewServer creates a Server.
func NewServer(a *app.App) *Server {
	return &Server{app: a, log: a.Log.With("component", "httpapi")}
}

// Router builds the gin engine. serviceName names the otelgin spans.
func (s *Server) Router(serviceName string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(s.accessLog())

	r.GET("/healthz", func(c *gin.Context) { RespondOK(c, gin.H{"status": "ok"}) })

	api := r.Group("/api")
	api.Use(learner(s.app.Config.Learner))
	{
		api.GET("/passages/ready", s.ready)
		api.POST("/passages", s.generatePassage)
		api.POST("/passages/import", s.importPassage)
		api.GET("/passages", s.listPassages)
		api.GET("/passages/:id", s.getPassage)
		api.POST("/passages/:id/complete", s.completePassage)
		api.GET("/passages/:id/exercises", s.listExercises)

		api.POST("/exercises/:id/answer", s.answerExercise)

		api.GET("/reviews/due", s.dueReviews)
		api.GET("/reviews/summary", s.reviewSummary)
		api.POST("/reviews/:wordID", s.submitReview)

		api.GET("/words/lookup", s.lookupWord)
		api.POST("/words/:id/known", s.markKnown)

		api.GET("/grammar", s.listGrammar)
		api.POST("/grammar/:id/unlock", s.unlockGrammar)
		api.PUT("/grammar/:id/status", s.setGrammarStatus)
	}
	return r
}

// learner resolves the learner id from the request header.
func learner(fallback string) gin.HandlerFunc {
	if fallback == "" {
		fallback = config.DefaultLearner
	}
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(LearnerHeader))
		if id == "" {
			id = fallback
		}
		c.Set(learnerKey, id)
		c.Next()
	}
}

func learnerID(c *gin.Context) string {
	return c.GetString(learnerKey)
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}
