// Package server exposes the task API over HTTP. Handlers validate and
// translate requests, all business logic lives in the app services.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GiladLeef/ShortsTurbo/internal/app/cancel"
	"github.com/GiladLeef/ShortsTurbo/internal/app/list"
	"github.com/GiladLeef/ShortsTurbo/internal/app/remove"
	"github.com/GiladLeef/ShortsTurbo/internal/app/status"
	"github.com/GiladLeef/ShortsTurbo/internal/app/submit"
	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/music"
)

// Prober measures the duration of a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (time.Duration, error)
}

// ServerConfig is the configuration for the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address. Defaults to ":8080".
	Addr    string
	Submit  *submit.Service
	Status  *status.Service
	Cancel  *cancel.Service
	List    *list.Service
	Remove  *remove.Service
	Music   *music.Library
	Prober  Prober
	DataDir string
	Logger  log.Logger
}

func (c *ServerConfig) defaults() error {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Submit == nil {
		return fmt.Errorf("submit service is required")
	}
	if c.Status == nil {
		return fmt.Errorf("status service is required")
	}
	if c.Cancel == nil {
		return fmt.Errorf("cancel service is required")
	}
	if c.List == nil {
		return fmt.Errorf("list service is required")
	}
	if c.Remove == nil {
		return fmt.Errorf("remove service is required")
	}
	if c.Music == nil {
		return fmt.Errorf("music library is required")
	}
	if c.Prober == nil {
		return fmt.Errorf("prober is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "server.Server"})
	return nil
}

// Server is the HTTP API server.
type Server struct {
	server  *http.Server
	engine  *gin.Engine
	submit  *submit.Service
	status  *status.Service
	cancel  *cancel.Service
	list    *list.Service
	remove  *remove.Service
	music   *music.Library
	prober  Prober
	dataDir string
	logger  log.Logger
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		engine:  engine,
		submit:  cfg.Submit,
		status:  cfg.Status,
		cancel:  cfg.Cancel,
		list:    cfg.List,
		remove:  cfg.Remove,
		music:   cfg.Music,
		prober:  cfg.Prober,
		dataDir: cfg.DataDir,
		logger:  cfg.Logger,
	}

	engine.Use(requestID(), accessLog(cfg.Logger), gin.Recovery())
	s.routes()

	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: engine,
	}

	return s, nil
}

// Handler returns the HTTP handler, used by tests to drive the API without
// a listener.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/videos", s.handleSubmitVideo)
		v1.POST("/subtitles", s.handleSubmitSubtitle)
		v1.POST("/audios", s.handleSubmitAudio)

		v1.GET("/tasks", s.handleListTasks)
		v1.GET("/tasks/:id", s.handleGetTask)
		v1.POST("/tasks/:id/cancel", s.handleCancelTask)
		v1.DELETE("/tasks/:id", s.handleDeleteTask)

		v1.GET("/musics", s.handleListMusics)
		v1.POST("/musics", s.handleUploadMusic)

		v1.GET("/stream/*path", s.handleStream)
		v1.GET("/download/*path", s.handleDownload)
	}
}

// Run starts the server and blocks until ctx is cancelled. It performs a
// graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("API server listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Infof("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, response{Status: http.StatusOK, Message: "ok"})
}
