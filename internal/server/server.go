// Package server exposes the analysis pipeline and the feedback relay over
// HTTP. The optional collector route persists feedback to the local store.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ppiankov/distortia/internal/feedback"
	"github.com/ppiankov/distortia/internal/pipeline"
)

// Server holds the gin engine and the components behind each route
type Server struct {
	router     *gin.Engine
	pipeline   *pipeline.Pipeline
	submitter  *feedback.Submitter
	store      *feedback.Store
	logger     *zap.Logger
	disclaimer bool
	addr       string
	shutdown   time.Duration
}

// Options configures a Server
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	Disclaimer      bool
	// Store enables POST /feedback when set
	Store *feedback.Store
}

// NewServer wires the routes. sender relays feedback from /api/feedback.
func NewServer(p *pipeline.Pipeline, sender feedback.Sender, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors())

	s := &Server{
		router:     router,
		pipeline:   p,
		submitter:  feedback.NewSubmitter(sender, p.Catalog()),
		store:      opts.Store,
		logger:     logger,
		disclaimer: opts.Disclaimer,
		addr:       opts.Addr,
		shutdown:   opts.ShutdownTimeout,
	}
	if s.addr == "" {
		s.addr = ":8080"
	}
	if s.shutdown <= 0 {
		s.shutdown = 5 * time.Second
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/labels", s.handleLabels)
		api.POST("/analyze", s.handleAnalyze)
		api.POST("/feedback", s.handleFeedback)
	}

	if s.store != nil {
		s.router.POST("/feedback", s.handleCollect)
		s.router.GET("/feedback", s.handleListFeedback)
		s.router.GET("/feedback/stats", s.handleStats)
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting",
			zap.String("addr", s.addr),
			zap.Bool("collector", s.store != nil),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()

	s.logger.Info("Server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
