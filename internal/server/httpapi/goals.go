package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkeller/flowdeck/internal/model"
	"github.com/mkeller/flowdeck/internal/server/db"
	"github.com/mkeller/flowdeck/internal/server/events"
)

// handleListGoals returns all of the user's goals, newest first.
func (s *Server) handleListGoals(c *gin.Context) {
	userID := currentUser(c)

	rows, err := s.db.ListGoals(c.Request.Context(), userID)
	if err != nil {
		s.failFrom(c, err, "Failed to retrieve goals data")
		return
	}

	goals := make([]model.Goal, 0, len(rows))
	for _, row := range rows {
		goals = append(goals, model.Goal{
			ID:          row.ClientID,
			Title:       row.Title,
			Description: row.Description,
			Category:    model.GoalCategory(row.Category),
			TargetDate:  row.TargetDate,
			Completed:   row.Completed,
			CreatedAt:   row.CreatedAt,
			SyncState:   model.StateSynced,
			ServerID:    row.ID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "goals": goals})
}

// handleCreateGoal stores a new goal and returns both IDs.
func (s *Server) handleCreateGoal(c *gin.Context) {
	userID := currentUser(c)

	var goal model.Goal
	if err := c.ShouldBindJSON(&goal); err != nil {
		s.fail(c, http.StatusBadRequest, "Missing or malformed request body")
		return
	}
	if err := goal.Validate(); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	serverID, err := s.db.InsertGoal(c.Request.Context(), &db.GoalRow{
		UserID:      userID,
		Title:       goal.Title,
		Description: goal.Description,
		Category:    string(goal.Category),
		TargetDate:  goal.TargetDate,
		Completed:   goal.Completed,
		CreatedAt:   goal.CreatedAt,
		ClientID:    goal.ID,
	})
	if err != nil {
		s.failFrom(c, err, "Failed to save goal data")
		return
	}

	s.hub.PublishChange(events.MessageTypeGoalUpdate, userID, events.RecordChange{
		ClientID: goal.ID,
		Action:   "created",
	})

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Goal saved successfully",
		"goalId":   serverID,
		"clientId": goal.ID,
	})
}

// handleUpdateGoal replaces the full row for (clientId, user).
func (s *Server) handleUpdateGoal(c *gin.Context) {
	userID := currentUser(c)

	clientID, ok := s.clientIDParam(c)
	if !ok {
		return
	}

	var goal model.Goal
	if err := c.ShouldBindJSON(&goal); err != nil {
		s.fail(c, http.StatusBadRequest, "Missing or malformed request body")
		return
	}
	if err := goal.Validate(); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	err := s.db.UpdateGoal(c.Request.Context(), &db.GoalRow{
		UserID:      userID,
		Title:       goal.Title,
		Description: goal.Description,
		Category:    string(goal.Category),
		TargetDate:  goal.TargetDate,
		Completed:   goal.Completed,
		ClientID:    clientID,
	})
	if err != nil {
		s.failFrom(c, err, "Failed to update goal data")
		return
	}

	s.hub.PublishChange(events.MessageTypeGoalUpdate, userID, events.RecordChange{
		ClientID: clientID,
		Action:   "updated",
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Goal updated successfully"})
}

// handleDeleteGoal hard-deletes the row for (clientId, user).
func (s *Server) handleDeleteGoal(c *gin.Context) {
	userID := currentUser(c)

	clientID, ok := s.clientIDParam(c)
	if !ok {
		return
	}

	if err := s.db.DeleteGoal(c.Request.Context(), clientID, userID); err != nil {
		s.failFrom(c, err, "Failed to delete goal")
		return
	}

	s.hub.PublishChange(events.MessageTypeGoalUpdate, userID, events.RecordChange{
		ClientID: clientID,
		Action:   "deleted",
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Goal deleted successfully"})
}
