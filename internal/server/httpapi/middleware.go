package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// userIDKey is the gin context key the session middleware populates.
const userIDKey = "userID"

// requireSession resolves the session cookie to a numeric user ID and stores
// it in the request context. Handlers never touch the cookie themselves.
func (s *Server) requireSession(c *gin.Context) {
	cookie, err := c.Request.Cookie(sessionCookieName())
	if err != nil {
		s.fail(c, http.StatusUnauthorized, "You must be logged in")
		return
	}

	userID, err := s.sessions.Lookup(c.Request.Context(), cookie.Value)
	if err != nil {
		s.fail(c, http.StatusUnauthorized, "You must be logged in")
		return
	}

	c.Set(userIDKey, userID)
	c.Next()
}

// currentUser returns the authenticated user ID the middleware stored.
func currentUser(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
