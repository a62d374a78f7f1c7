package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"planner/internal/models"
)

// DocumentServer exposes the per-user task records over HTTP: read, replace
// and an event stream. It is the self-hosted counterpart of the client in
// this package.
type DocumentServer struct {
	engine *gin.Engine
	store  *Memory
	logger *slog.Logger
}

// NewDocumentServer wires the sync endpoints onto a fresh engine.
func NewDocumentServer(store *Memory, logger *slog.Logger) *DocumentServer {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &DocumentServer{
		engine: router,
		store:  store,
		logger: logger,
	}

	v1 := router.Group("/v1")
	{
		v1.GET("/healthz", srv.handleHealth)
		v1.GET("/tasks/:user", srv.handleGet)
		v1.PUT("/tasks/:user", srv.handlePut)
		v1.GET("/tasks/:user/events", srv.handleEvents)
	}
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *DocumentServer) Engine() *gin.Engine {
	return s.engine
}

func (s *DocumentServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGet returns the user's record, or 404 while none exists.
func (s *DocumentServer) handleGet(c *gin.Context) {
	doc, ok := s.store.Get(c.Param("user"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no record for user"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// handlePut replaces the user's record with the posted document.
func (s *DocumentServer) handlePut(c *gin.Context) {
	var doc models.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, t := range doc.Tasks {
		if err := t.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	user := c.Param("user")
	if err := s.store.Put(c.Request.Context(), user, doc); err != nil {
		s.logger.Error("record write failed", slog.String("user", user), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleEvents streams document snapshots as server-sent events until the
// client goes away. Every change fires, the caller's own writes included.
func (s *DocumentServer) handleEvents(c *gin.Context) {
	user := c.Param("user")
	stream, err := s.store.Subscribe(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case doc, ok := <-stream:
			if !ok {
				return false
			}
			payload := []byte("null")
			if doc != nil {
				encoded, err := json.Marshal(doc)
				if err != nil {
					s.logger.Error("encode snapshot failed", slog.String("user", user), slog.String("error", err.Error()))
					return false
				}
				payload = encoded
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
