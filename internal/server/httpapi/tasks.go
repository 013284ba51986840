package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mkeller/flowdeck/internal/model"
	"github.com/mkeller/flowdeck/internal/server/db"
	"github.com/mkeller/flowdeck/internal/server/events"
)

// handleListTasks returns all of the user's tasks, newest first, reshaped to
// the client field names with the client ID as the primary id.
func (s *Server) handleListTasks(c *gin.Context) {
	userID := currentUser(c)

	rows, err := s.db.ListTasks(c.Request.Context(), userID)
	if err != nil {
		s.failFrom(c, err, "Failed to retrieve tasks data")
		return
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, model.Task{
			ID:          row.ClientID,
			Title:       row.Title,
			Description: row.Description,
			Completed:   row.Completed,
			Favorited:   row.Favorited,
			Date:        row.Date,
			Time:        row.Time,
			SyncState:   model.StateSynced,
			ServerID:    row.ID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": tasks})
}

// handleCreateTask stores a new task and returns both the server row ID and
// the echoed client correlation ID.
func (s *Server) handleCreateTask(c *gin.Context) {
	userID := currentUser(c)

	var task model.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		s.fail(c, http.StatusBadRequest, "Missing or malformed request body")
		return
	}
	if err := task.Validate(); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	serverID, err := s.db.InsertTask(c.Request.Context(), &db.TaskRow{
		UserID:      userID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		Favorited:   task.Favorited,
		Date:        task.Date,
		Time:        task.Time,
		ClientID:    task.ID,
	})
	if err != nil {
		s.failFrom(c, err, "Failed to save task data")
		return
	}

	s.hub.PublishChange(events.MessageTypeTaskUpdate, userID, events.RecordChange{
		ClientID: task.ID,
		Action:   "created",
	})

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Task saved successfully",
		"taskId":   serverID,
		"clientId": task.ID,
	})
}

// handleUpdateTask replaces the full row for (clientId, user). 404 when the
// ownership check fails.
func (s *Server) handleUpdateTask(c *gin.Context) {
	userID := currentUser(c)

	clientID, ok := s.clientIDParam(c)
	if !ok {
		return
	}

	var task model.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		s.fail(c, http.StatusBadRequest, "Missing or malformed request body")
		return
	}
	if err := task.Validate(); err != nil {
		s.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	err := s.db.UpdateTask(c.Request.Context(), &db.TaskRow{
		UserID:      userID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		Favorited:   task.Favorited,
		Date:        task.Date,
		Time:        task.Time,
		ClientID:    clientID,
	})
	if err != nil {
		s.failFrom(c, err, "Failed to update task data")
		return
	}

	s.hub.PublishChange(events.MessageTypeTaskUpdate, userID, events.RecordChange{
		ClientID: clientID,
		Action:   "updated",
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task updated successfully"})
}

// handleDeleteTask hard-deletes the row for (clientId, user).
func (s *Server) handleDeleteTask(c *gin.Context) {
	userID := currentUser(c)

	clientID, ok := s.clientIDParam(c)
	if !ok {
		return
	}

	if err := s.db.DeleteTask(c.Request.Context(), clientID, userID); err != nil {
		s.failFrom(c, err, "Failed to delete task")
		return
	}

	s.hub.PublishChange(events.MessageTypeTaskUpdate, userID, events.RecordChange{
		ClientID: clientID,
		Action:   "deleted",
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted successfully"})
}

// clientIDParam parses the :clientId path segment.
func (s *Server) clientIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("clientId"), 10, 64)
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Invalid client ID")
		return 0, false
	}
	return id, true
}
