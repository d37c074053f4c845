// Package monitor serves the operational side of a load: liveness,
// Prometheus exposition, the live progress snapshot, and table statistics.
// Nothing here is required for a run to work; the server only starts when a
// listen address is configured.
//
// Middleware order matters:
//  1. OpenTelemetry (optional): trace everything
//  2. RequestID: generate/propagate correlation id
//  3. AccessLog: structured logs
//  4. Recovery: capture panics after logging
//  5. Gzip (excluding /metrics) and CORS
package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-post-archive/internal/repo"
	"github.com/tbourn/go-post-archive/internal/runner"
)

// Options configure the monitoring server.
type Options struct {
	Addr           string   // listen address, e.g. ":8080"
	AllowedOrigins []string // CORS allowlist; empty allows all origins
	TraceRoutes    bool     // attach otelgin when tracing is configured
	ServiceName    string   // service name reported on traced routes
}

// Server exposes /healthz, /metrics, /progress and /stats next to a run.
type Server struct {
	opts Options
	db   *gorm.DB
	prog *runner.Progress
}

// New builds a server over the given database handle and live progress
// counters. prog may be nil when no run is attached.
func New(db *gorm.DB, prog *runner.Progress, opts Options) *Server {
	return &Server{opts: opts, db: db, prog: prog}
}

// Handler assembles the Gin engine. Split from Run so tests can drive the
// routes without a listener.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	if s.opts.TraceRoutes {
		r.Use(otelgin.Middleware(s.opts.ServiceName))
	}
	r.Use(RequestID())
	r.Use(AccessLog())
	r.Use(Recovery())
	// Prometheus scrapers negotiate their own compression.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// CORS posture (safe defaults: allow all if none configured)
	if len(s.opts.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:   []string{requestIDHeader, "Content-Length"},
			MaxAge:          12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(s.opts.AllowedOrigins))
		for _, o := range s.opts.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:  s.opts.AllowedOrigins,
			AllowMethods:  []string{"GET", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{requestIDHeader, "Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/progress", s.progress)
	r.GET("/stats", s.stats)
	return r
}

// progress answers with the live counters of the attached run.
func (s *Server) progress(c *gin.Context) {
	if s.prog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "no run attached"})
		return
	}
	c.JSON(http.StatusOK, s.prog.Snapshot())
}

// stats reports per-table row counts and the newest post timestamp.
func (s *Server) stats(c *gin.Context) {
	counts, err := repo.CountRows(c.Request.Context(), s.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "stats unavailable"})
		return
	}
	newest, err := repo.NewestPost(c.Request.Context(), s.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": counts, "newest_post": newest})
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	log.Info().Str("addr", s.opts.Addr).Msg("monitor listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
