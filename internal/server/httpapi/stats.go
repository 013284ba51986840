package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkeller/flowdeck/internal/model"
	"github.com/mkeller/flowdeck/internal/server/events"
)

// handleGetStatistics returns the user's streak/activity state, flattened
// into the response the way the client stores expect it.
func (s *Server) handleGetStatistics(c *gin.Context) {
	userID := currentUser(c)

	stats, err := s.db.GetUserStatistics(c.Request.Context(), userID)
	if err != nil {
		s.failFrom(c, err, "Failed to retrieve statistics data")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"currentStreak":  stats.CurrentStreak,
		"longestStreak":  stats.LongestStreak,
		"lastActiveDate": stats.LastActiveDate,
		"activityLogs":   stats.ActivityLogs,
		"timeOfDayStats": stats.TimeOfDayStats,
	})
}

// handleSaveStatistics overwrites the single per-user statistics row with the
// client-pushed full state.
func (s *Server) handleSaveStatistics(c *gin.Context) {
	userID := currentUser(c)

	var stats model.UserStatistics
	if err := c.ShouldBindJSON(&stats); err != nil {
		s.fail(c, http.StatusBadRequest, "Missing or malformed request body")
		return
	}

	if err := s.db.SaveUserStatistics(c.Request.Context(), userID, &stats); err != nil {
		s.failFrom(c, err, "Failed to save statistics data")
		return
	}

	s.hub.PublishChange(events.MessageTypeStatsUpdate, userID, events.RecordChange{
		Action: "updated",
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Statistics saved successfully"})
}
