package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"planner/internal/models"
	"planner/internal/schedule"
)

// weekDay is one column of the week grid.
type weekDay struct {
	Date    string        `json:"date"`
	Label   string        `json:"label"` // D.M short form shown in the grid header
	Weekday string        `json:"weekday"`
	Today   bool          `json:"today"`
	Tasks   []models.Task `json:"tasks"`
}

// dayTask is a task annotated with its completion flag for the viewed date.
type dayTask struct {
	models.Task
	Completed bool `json:"completed"`
}

// hourBucket is one row of the day view's 24-hour breakdown.
type hourBucket struct {
	Hour  string    `json:"hour"`
	Tasks []dayTask `json:"tasks"`
}

// handleWeek renders the Monday-first week containing the anchor date.
// Navigation is client-driven: the caller moves the anchor plus or minus
// seven days and asks again.
func (s *Server) handleWeek(c *gin.Context) {
	anchor := time.Now()
	if raw := c.Query("anchor"); raw != "" {
		parsed, err := models.ParseISODate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		anchor = parsed
	}

	today := models.FormatISODate(time.Now())
	week := schedule.TasksInWeek(anchor, s.repo.Tasks())

	days := make([]weekDay, 0, len(week))
	for _, d := range week {
		tasks := d.Tasks
		if tasks == nil {
			tasks = []models.Task{}
		}
		days = append(days, weekDay{
			Date:    d.ISO,
			Label:   fmt.Sprintf("%d.%d", d.Date.Day(), int(d.Date.Month())),
			Weekday: d.Weekday,
			Today:   d.ISO == today,
			Tasks:   tasks,
		})
	}
	respondSuccess(c, http.StatusOK, gin.H{"days": days})
}

// handleDay renders one date as 24 hour buckets with per-task completion
// state resolved for that exact date.
func (s *Server) handleDay(c *gin.Context) {
	date, err := models.ParseISODate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	iso := models.FormatISODate(date)

	buckets := schedule.TasksByHour(date, s.repo.Tasks())
	status := s.repo.Completion()

	hours := make([]hourBucket, 0, 24)
	for hour := 0; hour < 24; hour++ {
		key := schedule.HourKey(hour)
		tasks := make([]dayTask, 0, len(buckets[key]))
		for _, t := range buckets[key] {
			tasks = append(tasks, dayTask{
				Task:      t,
				Completed: schedule.IsCompleted(status, t.ID, iso),
			})
		}
		hours = append(hours, hourBucket{Hour: key, Tasks: tasks})
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"date":    iso,
		"weekday": models.WeekdayAbbrOf(date),
		"hours":   hours,
	})
}

// handleImportance exposes the importance palette used for recurring tasks.
func (s *Server) handleImportance(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{
		"levels":           models.ImportanceColors,
		"exact_date_color": models.ExactDateColor,
	})
}
