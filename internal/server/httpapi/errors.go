package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkeller/flowdeck/internal/server/db"
	"github.com/mkeller/flowdeck/internal/server/session"
)

// apiError is the uniform error envelope every endpoint produces.
type apiError struct {
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	Message       string `json:"message"`
}

// statusMessages maps codes to their canonical envelope text.
var statusMessages = map[int]string{
	http.StatusBadRequest:          "Bad Request",
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusNotFound:            "Not Found",
	http.StatusConflict:            "Conflict",
	http.StatusInternalServerError: "Internal Server Error",
}

// fail logs the error and writes the envelope, aborting the handler chain.
func (s *Server) fail(c *gin.Context, status int, message string) {
	s.logger.Printf("Error in %s %s: %d %s", c.Request.Method, c.Request.URL.Path, status, message)
	c.AbortWithStatusJSON(status, apiError{
		StatusCode:    status,
		StatusMessage: statusMessages[status],
		Message:       message,
	})
}

// failFrom maps known storage/session errors to statuses; anything
// unrecognized becomes a 500 with the fallback message.
func (s *Server) failFrom(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		s.fail(c, http.StatusNotFound, "Record not found or you don't have permission to modify it")
	case errors.Is(err, db.ErrDuplicateEmail):
		s.fail(c, http.StatusConflict, "Email already exists")
	case errors.Is(err, session.ErrNoSession):
		s.fail(c, http.StatusUnauthorized, "You must be logged in")
	default:
		s.logger.Printf("Internal error in %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		s.fail(c, http.StatusInternalServerError, fallback)
	}
}
