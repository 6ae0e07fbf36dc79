// ABOUTME: Local HTTP API consumed by the field-ops PWA
// ABOUTME: Enqueue/remove endpoints, live status, manual sync trigger, and the offline read fallback
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ruteo/fieldsync/models"
	"github.com/ruteo/fieldsync/sync"
)

// Server exposes the sync engine to the PWA over loopback HTTP.
type Server struct {
	ctrl   *sync.Controller
	logger zerolog.Logger
}

// NewServer wires the API around a running controller.
func NewServer(ctrl *sync.Controller, logger zerolog.Logger) *Server {
	return &Server{ctrl: ctrl, logger: logger.With().Str("component", "web").Logger()}
}

// Router builds the gin engine. CORS is open to any origin: the caller is a
// browser PWA served from the field-ops domain, and the API binds loopback.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	corsCfg := cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.POST("/sync", s.handleTriggerSync)
		api.POST("/clear", s.handleClear)

		api.GET("/reports", s.handleListReports)
		api.POST("/reports", s.handleEnqueueReport)
		api.DELETE("/reports/:id", s.handleRemoveReport)

		api.GET("/drafts", s.handleListDrafts)
		api.POST("/drafts", s.handleEnqueueDraft)
		api.DELETE("/drafts/:id", s.handleRemoveDraft)

		api.GET("/planned", s.handleListPlanned)
		api.POST("/planned/refresh", s.handleRefreshPlanned)

		api.GET("/visits/:id", s.handleLookupVisit)
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	status, err := s.ctrl.Snapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleTriggerSync(c *gin.Context) {
	if s.ctrl.TriggerSync() {
		c.JSON(http.StatusAccepted, gin.H{"started": true})
		return
	}
	// Offline or already syncing; either way the trigger is a safe no-op.
	c.JSON(http.StatusOK, gin.H{"started": false, "online": s.ctrl.IsOnline(), "syncing": s.ctrl.IsSyncing()})
}

func (s *Server) handleClear(c *gin.Context) {
	if err := s.ctrl.ClearAll(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Warn().Msg("both pending queues cleared via API")
	c.JSON(http.StatusOK, gin.H{"pending": s.ctrl.PendingCount()})
}

// enqueueReportRequest is the PWA's completion-report submission.
type enqueueReportRequest struct {
	ID        uuid.UUID       `json:"id" binding:"required"`
	BuyerName string          `json:"buyer_name" binding:"required"`
	Data      json.RawMessage `json:"data" binding:"required"`
	Coords    *models.Coords  `json:"coords"`
}

func (s *Server) handleEnqueueReport(c *gin.Context) {
	var req enqueueReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report := models.NewVisitReport(req.ID, req.BuyerName, req.Data, req.Coords)
	if err := s.ctrl.EnqueueReport(report); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": report.ID, "pending": s.ctrl.PendingCount()})
}

// enqueueDraftRequest is the PWA's new-visit submission. The client may mint
// the id itself; when absent the agent mints one and returns it.
type enqueueDraftRequest struct {
	ID        *uuid.UUID      `json:"id"`
	BuyerName string          `json:"buyer_name" binding:"required"`
	Payload   json.RawMessage `json:"payload" binding:"required"`
}

func (s *Server) handleEnqueueDraft(c *gin.Context) {
	var req enqueueDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft := models.NewVisitDraft(req.BuyerName, req.Payload)
	if req.ID != nil && *req.ID != uuid.Nil {
		draft.ID = *req.ID
	}
	if err := s.ctrl.EnqueueDraft(draft); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": draft.ID, "pending": s.ctrl.PendingCount()})
}

func (s *Server) handleRemoveReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visit id"})
		return
	}
	if err := s.ctrl.RemoveReport(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": s.ctrl.PendingCount()})
}

func (s *Server) handleRemoveDraft(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visit id"})
		return
	}
	if err := s.ctrl.RemoveDraft(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": s.ctrl.PendingCount()})
}

func (s *Server) handleListReports(c *gin.Context) {
	s.list(c, func() (interface{}, error) { return s.ctrl.Reports() })
}

func (s *Server) handleListDrafts(c *gin.Context) {
	s.list(c, func() (interface{}, error) { return s.ctrl.Drafts() })
}

func (s *Server) handleListPlanned(c *gin.Context) {
	s.list(c, func() (interface{}, error) { return s.ctrl.PlannedVisits() })
}

func (s *Server) list(c *gin.Context, fetch func() (interface{}, error)) {
	items, err := fetch()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) handleRefreshPlanned(c *gin.Context) {
	if err := s.ctrl.RefreshPlanned(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": true})
}

func (s *Server) handleLookupVisit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visit id"})
		return
	}
	resolved, err := s.ctrl.LookupVisit(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if resolved == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "visit not known locally"})
		return
	}
	c.JSON(http.StatusOK, resolved)
}
