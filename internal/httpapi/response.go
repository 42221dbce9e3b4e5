package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/kahani/internal/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// fail reports err with the status its class maps to. Internal failures are
// logged and reported without detail.
func (s *Server) fail(c *gin.Context, err error) {
	ae := apperr.Classify(err)
	if ae.Status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	RespondError(c, ae.Status, ae.Code, ae)
}

