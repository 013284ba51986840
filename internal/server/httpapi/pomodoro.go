package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkeller/flowdeck/internal/model"
	"github.com/mkeller/flowdeck/internal/server/db"
	"github.com/mkeller/flowdeck/internal/server/events"
)

type sessionRequest struct {
	Date     string `json:"date"`
	Duration int    `json:"duration"`
	Type     string `json:"type"`
}

// handleCreateSession stores a pomodoro session. Work sessions also bump the
// per-user statistics aggregate, with day/week rollover handled in the same
// transaction.
func (s *Server) handleCreateSession(c *gin.Context) {
	userID := currentUser(c)

	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "Missing or malformed request body")
		return
	}

	rec := model.SessionRecord{
		Date:     req.Date,
		Duration: req.Duration,
		Type:     model.SessionType(req.Type),
	}
	if err := rec.Validate(); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	err := s.db.InsertSession(c.Request.Context(), &db.SessionRow{
		UserID:   userID,
		Date:     rec.Date,
		Duration: rec.Duration,
		Type:     string(rec.Type),
	})
	if err != nil {
		s.failFrom(c, err, "Failed to save session data")
		return
	}

	s.hub.PublishChange(events.MessageTypeSessionRecorded, userID, events.RecordChange{
		Action: "created",
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Session saved successfully"})
}

// handlePomodoroStatistics returns the aggregate plus the most recent 100
// work sessions, all marked synced.
func (s *Server) handlePomodoroStatistics(c *gin.Context) {
	userID := currentUser(c)

	stats, err := s.db.GetPomodoroStatistics(c.Request.Context(), userID)
	if err != nil {
		s.failFrom(c, err, "Failed to retrieve statistics data")
		return
	}
	if stats.SessionsHistory == nil {
		stats.SessionsHistory = []model.SessionRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "statistics": stats})
}
