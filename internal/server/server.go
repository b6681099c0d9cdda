// Package server exposes the catalog, the selection and the advisor as a small JSON API
// for the browser front end.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"RoutineBuilder/internal/advisor"
	"RoutineBuilder/internal/catalog"
	"RoutineBuilder/internal/selection"
)

// Server wires the HTTP routes to the application state.
type Server struct {
	catalog   *catalog.Catalog
	selection *selection.Selection
	advisor   *advisor.Advisor
	logger    *slog.Logger
	engine    *gin.Engine
}

// New builds the router.
func New(cat *catalog.Catalog, sel *selection.Selection, adv *advisor.Advisor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		catalog:   cat,
		selection: sel,
		advisor:   adv,
		logger:    logger,
		engine:    gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger(logger))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	api.GET("/products", s.listProducts)
	api.GET("/categories", s.listCategories)

	api.GET("/selection", s.getSelection)
	api.POST("/selection/:id", s.toggleSelection)
	api.DELETE("/selection/:id", s.removeSelection)
	api.DELETE("/selection", s.clearSelection)

	api.POST("/routine", s.generateRoutine)
	api.GET("/chat", s.getChat)
	api.POST("/chat", s.postChat)
	api.DELETE("/chat", s.resetChat)
}

// Handler returns the http.Handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
