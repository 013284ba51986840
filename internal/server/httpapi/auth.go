package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkeller/flowdeck/internal/server/session"
)

func sessionCookieName() string {
	return session.CookieName
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type registerRequest struct {
	Name            string `json:"name" binding:"required,min=2,max=100"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

// handleLogin verifies credentials and issues a session cookie.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := s.db.VerifyUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// ErrNotFound covers both unknown email and bad password.
		s.fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := s.sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		s.failFrom(c, err, "Failed to create session")
		return
	}

	s.setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleRegister validates the payload before any database write, creates
// the account, and auto-logs the new user in.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := s.db.CreateUser(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.failFrom(c, err, "An error occurred during registration")
		return
	}

	token, err := s.sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		s.failFrom(c, err, "Failed to create session")
		return
	}

	s.setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

// handleLogout revokes the current session if one exists.
func (s *Server) handleLogout(c *gin.Context) {
	if cookie, err := c.Request.Cookie(sessionCookieName()); err == nil {
		if err := s.sessions.Delete(c.Request.Context(), cookie.Value); err != nil {
			s.logger.Printf("Failed to delete session: %v", err)
		}
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) setSessionCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookieName(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(session.DefaultTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
