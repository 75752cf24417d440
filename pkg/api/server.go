// Package api serves scans and scan history over HTTP.
package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/reconforge/pkg/config"
	"github.com/ExclusiveAccount/reconforge/pkg/knowledge"
	"github.com/ExclusiveAccount/reconforge/pkg/models"
	"github.com/ExclusiveAccount/reconforge/pkg/storage"
)

// ErrNotAuthorized is returned to callers that did not confirm they may scan the target
var ErrNotAuthorized = errors.New("scanning requires explicit authorization: set \"authorized\": true")

// Runner executes a scan. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, cfg models.RunConfig) (*models.ScanResult, error)
}

// ServerConfig contains configuration for the API server
type ServerConfig struct {
	Port           string
	EnableCORS     bool
	ResultsHistory int    // Scans kept in memory
	AllowExports   bool   // Serve Markdown reports
	OutputDir      string // Persist each scan under this directory when set
}

// Server is the HTTP front end for the orchestrator
type Server struct {
	router  *gin.Engine
	logger  *logrus.Logger
	runner  Runner
	config  ServerConfig
	busy    chan struct{}
	results []*models.ScanResult
	mu      sync.RWMutex
}

// NewServer creates a new API server
func NewServer(cfg ServerConfig, runner Runner, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	// Set default values if not specified
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.ResultsHistory <= 0 {
		cfg.ResultsHistory = 10
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		router:  router,
		logger:  logger,
		runner:  runner,
		config:  cfg,
		busy:    make(chan struct{}, 1),
		results: make([]*models.ScanResult, 0, cfg.ResultsHistory),
	}
	s.setupRoutes()

	return s
}

// requestLogger logs each request through logrus
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Debug("request")
	}
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	if s.config.EnableCORS {
		s.router.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}

			c.Next()
		})
	}

	api := s.router.Group("/api")
	{
		api.GET("/profiles", s.handleGetProfiles)
		api.GET("/risk-tags", s.handleGetRiskTags)

		api.POST("/scans", s.handleStartScan)
		api.GET("/scans", s.handleGetHistory)
		api.GET("/scans/latest", s.handleGetLatest)
		api.GET("/scans/:id", s.handleGetScan)

		if s.config.AllowExports {
			api.GET("/scans/:id/report", s.handleExportReport)
		}
	}
}

// Handler returns the HTTP handler, for embedding or tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Infof("API listening on :%s", s.config.Port)
	return s.router.Run(":" + s.config.Port)
}

// AddScanResult records a finished scan, dropping the oldest beyond the history size
func (s *Server) AddScanResult(result *models.ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, result)
	if len(s.results) > s.config.ResultsHistory {
		s.results = s.results[len(s.results)-s.config.ResultsHistory:]
	}
}

func (s *Server) find(id string) (*models.ScanResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.results) - 1; i >= 0; i-- {
		if s.results[i].Summary.RunID == id {
			return s.results[i], true
		}
	}
	return nil, false
}

// API handlers

type profileView struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Modules     []string `json:"modules"`
	PortCount   int      `json:"port_count"`
	Concurrency int      `json:"concurrency"`
	Timeout     float64  `json:"timeout"`
	WebProbe    bool     `json:"web_probe"`
}

func (s *Server) handleGetProfiles(c *gin.Context) {
	views := make([]profileView, 0, len(config.ProfileNames()))
	for _, name := range config.ProfileNames() {
		p, _ := config.LookupProfile(name)
		views = append(views, profileView{
			Name:        p.Name,
			Description: p.Description,
			Modules:     p.Modules,
			PortCount:   len(config.PortsFor(name)),
			Concurrency: p.Concurrency,
			Timeout:     p.Timeout,
			WebProbe:    p.WebProbe,
		})
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) handleGetRiskTags(c *gin.Context) {
	kb := knowledge.Default()
	c.JSON(http.StatusOK, kb.Descriptions(kb.Tags()))
}

type scanRequest struct {
	config.Options
	Authorized bool `json:"authorized"`
}

func (s *Server) handleStartScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Authorized {
		c.JSON(http.StatusForbidden, gin.H{"error": ErrNotAuthorized.Error()})
		return
	}

	cfg, err := config.NewRunConfig(req.Options)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// one scan at a time
	select {
	case s.busy <- struct{}{}:
		defer func() { <-s.busy }()
	default:
		c.JSON(http.StatusConflict, gin.H{"error": "a scan is already running"})
		return
	}

	result, err := s.runner.Run(c.Request.Context(), cfg)
	if err != nil {
		s.logger.Errorf("Scan of %s failed: %v", cfg.TargetInput, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if s.config.OutputDir != "" {
		s.persist(result)
	}
	s.AddScanResult(result)

	c.JSON(http.StatusOK, result)
}

// persist writes the result to disk. Failures are logged; the scan still succeeds.
func (s *Server) persist(result *models.ScanResult) {
	writer, err := storage.NewResultWriter(s.config.OutputDir)
	if err != nil {
		s.logger.Errorf("Failed to save results: %v", err)
		return
	}
	if _, err := writer.Save(result); err != nil {
		s.logger.Errorf("Failed to save results: %v", err)
		return
	}
	if _, err := writer.SaveReport(result); err != nil {
		s.logger.Errorf("Failed to save report: %v", err)
		return
	}
	s.logger.Infof("Results saved to %s", writer.RunDir())
}

type historyEntry struct {
	RunID          string            `json:"run_id"`
	Target         string            `json:"target"`
	Type           models.TargetType `json:"type"`
	StartTime      time.Time         `json:"start_time"`
	DurationTotal  float64           `json:"duration_total"`
	OpenPortsTotal int               `json:"open_ports_total"`
	RiskTags       []string          `json:"risk_tags"`
}

func (s *Server) handleGetHistory(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// newest first
	history := make([]historyEntry, 0, len(s.results))
	for i := len(s.results) - 1; i >= 0; i-- {
		sum := s.results[i].Summary
		history = append(history, historyEntry{
			RunID:          sum.RunID,
			Target:         sum.Target,
			Type:           sum.Type,
			StartTime:      sum.StartTime,
			DurationTotal:  sum.DurationTotal,
			OpenPortsTotal: sum.OpenPortsTotal,
			RiskTags:       sum.RiskTags,
		})
	}

	c.JSON(http.StatusOK, history)
}

func (s *Server) handleGetLatest(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.results) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No scan results available"})
		return
	}
	c.JSON(http.StatusOK, s.results[len(s.results)-1])
}

func (s *Server) handleGetScan(c *gin.Context) {
	result, ok := s.find(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleExportReport(c *gin.Context) {
	result, ok := s.find(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
		return
	}

	var buf bytes.Buffer
	if err := storage.WriteMarkdown(result, &buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=report-"+result.Summary.RunID+".md")
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", buf.Bytes())
}
