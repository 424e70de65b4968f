// Package ui serves the production console: run lifecycle endpoints, the
// live boardroom event stream, and rendered transcripts.
package ui

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"reelforge/adapters/vertex"
	"reelforge/internal/auth"
	"reelforge/internal/config"
	"reelforge/internal/dispatch"
	"reelforge/ports"
)

// Server is the HTTP surface over the orchestration pipeline.
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	runs   *RunManager
	log    *logrus.Logger
}

// NewServer wires the full stack: auth proxy client, dispatcher, backend
// client, run manager, and routes.
func NewServer(cfg *config.Config, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	gin.SetMode(cfg.Server.GinMode)

	tokens := auth.NewService(cfg.Auth.ProxyEndpoint, log)
	dispatcher := dispatch.New(cfg.AI.Regions, log)
	backend := vertex.NewClient(vertex.Config{
		CompletionModel: cfg.AI.CompletionModel,
		FallbackModel:   cfg.AI.FallbackModel,
		ImageModel:      cfg.AI.ImageModel,
		VideoModel:      cfg.AI.VideoModel,
		TTSModel:        cfg.AI.TTSModel,
		TTSVoice:        cfg.AI.TTSVoice,
	}, dispatcher, tokens, log)

	hub := NewHub(log)
	s := &Server{
		cfg:    cfg,
		engine: gin.New(),
		runs:   NewRunManager(backend, hub, log),
		log:    log,
	}
	s.engine.Use(gin.Recovery(), requestLogger(log))
	s.registerRoutes(hub)
	return s
}

// NewServerWithBackend wires the routes over an existing backend, for tests.
func NewServerWithBackend(cfg *config.Config, backend ports.GenerativeBackend, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	gin.SetMode(gin.TestMode)
	hub := NewHub(log)
	s := &Server{
		cfg:    cfg,
		engine: gin.New(),
		runs:   NewRunManager(backend, hub, log),
		log:    log,
	}
	s.registerRoutes(hub)
	return s
}

func (s *Server) registerRoutes(hub *Hub) {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	{
		api.POST("/runs", s.runs.HandleCreate)
		api.GET("/runs/:id", s.runs.HandleGet)
		api.POST("/runs/:id/approve", s.runs.HandleApprove)
		api.POST("/runs/:id/cancel", s.runs.HandleCancel)
		api.GET("/runs/:id/events", hub.HandleSSE)
		api.GET("/runs/:id/transcript", s.runs.HandleTranscript)
	}
}

// Engine exposes the router, for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run blocks serving HTTP on the configured port.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.cfg.Server.Port)
	s.log.WithField("addr", addr).Info("[Server] listening")
	return s.engine.Run(addr)
}

// requestLogger is a minimal structured access log.
func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("[Server] request")
	}
}
