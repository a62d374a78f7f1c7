package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"planner/internal/schedule"
)

// Server provides the HTTP view controllers over the task repository: the
// week grid, the per-day hour grid and the mutation entry points.
type Server struct {
	engine    *gin.Engine
	repo      *schedule.Repository
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(repo *schedule.Repository, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api"))

	srv := &Server{
		engine:    router,
		repo:      repo,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.GET("/status", s.handleStatus)
		api.POST("/status/online", s.handleSetOnline)
		api.GET("/meta/importance", s.handleImportance)

		api.GET("/week", s.handleWeek)
		api.GET("/day/:date", s.handleDay)

		tasks := api.Group("/tasks")
		{
			tasks.POST("", s.handleAddTask)
			tasks.PUT(":id", s.handleEditTask)
			tasks.DELETE(":id", s.handleDeleteTask)
			tasks.POST(":id/complete", s.handleToggleComplete)
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStatus reports the session's connectivity and identity signals.
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online": s.repo.Online(),
		"user":   s.repo.Identity(),
	})
}

// handleSetOnline feeds the external online/offline signal. It gates delete
// only; flipping it moves no data.
func (s *Server) handleSetOnline(c *gin.Context) {
	var req struct {
		Online *bool `json:"online"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Online == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "online flag is required"})
		return
	}
	s.repo.SetOnline(*req.Online)
	c.JSON(http.StatusOK, gin.H{"online": *req.Online})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// respondError logs the error and returns a JSON payload with a status code
// matching the repository's error taxonomy.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusFor maps repository errors onto HTTP status codes: validation is a
// bad request, the delete preconditions are conflict/unauthorized, and a
// failed remote write is a bad gateway.
func statusFor(err error) int {
	var remoteErr *schedule.RemoteError
	switch {
	case schedule.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, schedule.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, schedule.ErrOffline):
		return http.StatusConflict
	case errors.Is(err, schedule.ErrNoIdentity):
		return http.StatusUnauthorized
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
