package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"planner/internal/models"
	"planner/internal/schedule"
)

type addTaskRequest struct {
	Title       string   `json:"title"`
	Time        string   `json:"time"`
	Description string   `json:"description"`
	Kind        string   `json:"kind"`
	Days        []string `json:"days"`
	Date        string   `json:"date"`
	Importance  int      `json:"importance"`
}

type editTaskRequest struct {
	Title       string `json:"title"`
	Time        string `json:"time"`
	Description string `json:"description"`
}

type completeRequest struct {
	Date string `json:"date"`
}

// handleAddTask creates a new recurring or exact-date task.
func (s *Server) handleAddTask(c *gin.Context) {
	var req addTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.repo.Add(c.Request.Context(), schedule.AddRequest{
		Title:           req.Title,
		Time:            req.Time,
		Description:     req.Description,
		Kind:            models.TaskKind(req.Kind),
		Days:            req.Days,
		Date:            req.Date,
		ImportanceIndex: req.Importance,
	})
	if err != nil && !isRemoteFailure(err) {
		s.respondError(c, err)
		return
	}
	if err != nil {
		// The task exists locally; the sync failure is reported alongside it.
		c.JSON(http.StatusBadGateway, gin.H{"task": task, "error": err.Error()})
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleEditTask updates a task's title, description and time. The calendar
// binding and color are fixed at creation.
func (s *Server) handleEditTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req editTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.repo.Edit(c.Request.Context(), id, req.Title, req.Description, req.Time)
	if err != nil && !isRemoteFailure(err) {
		s.respondError(c, err)
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"task": task, "error": err.Error()})
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task and its completion entries. Refused while
// offline or signed out; nothing changes unless the remote write succeeds.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.repo.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleToggleComplete flips the done flag of one task occurrence. Always
// allowed, connectivity does not apply.
func (s *Server) handleToggleComplete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	done, err := s.repo.ToggleComplete(c.Request.Context(), id, req.Date)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"id": id, "date": req.Date, "completed": done})
}

func isRemoteFailure(err error) bool {
	var remoteErr *schedule.RemoteError
	return errors.As(err, &remoteErr)
}
