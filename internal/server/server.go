package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/itad-lab/itad-metrics/internal/snapshot"
)

type Server struct {
	Engine *gin.Engine
	Addr   string
	db     HealthChecker
	status StatusReporter
}

// HealthChecker is an interface for components that can report their health status.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// StatusReporter reports the snapshot publisher's health.
type StatusReporter interface {
	Health() snapshot.Health
}

// New creates the HTTP server. db and status may be nil.
func New(addr string, db HealthChecker, status StatusReporter, mode string) *Server {
	// Set Gin mode based on configuration
	if mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	s := &Server{
		Engine: r,
		Addr:   addr,
		db:     db,
		status: status,
	}

	// Health check endpoint with database connectivity and publisher status
	r.GET("/health", s.healthHandler)

	return s
}

// healthHandler answers 503 only when the backend is unreachable. A degraded
// publisher still serves its last snapshot and reports 200.
func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": string(snapshot.StatusHealthy)}
	if s.status != nil {
		h := s.status.Health()
		body["status"] = string(h.Status)
		body["publisher"] = h
	}

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			slog.Error("[Health] Database unreachable", "error", err)
			body["status"] = "unhealthy"
			body["database"] = "unreachable"
			body["error"] = "database unreachable"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "connected"
	}

	if body["status"] == string(snapshot.StatusDegraded) {
		slog.Warn("[Health] Publisher degraded; serving last published snapshot")
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Addr,
		Handler: s.Engine,
	}

	slog.Info("Starting HTTP Server...", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("Stopping HTTP Server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP Server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
