// Package server exposes the scan engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/phishguard/internal/detector"
	"github.com/example/phishguard/internal/metrics"
	"github.com/example/phishguard/internal/report"
)

const defaultMaxBodyBytes = 1 << 20

// Scanner is the part of the engine the server needs.
type Scanner interface {
	Detect(ctx context.Context, input string, mode detector.Mode) report.Result
}

// Options configures a Server.
type Options struct {
	Scanner Scanner
	Logger  *zap.Logger

	// RateLimit is the steady per-IP request rate; zero disables limiting.
	RateLimit float64
	RateBurst int

	CORSOrigins  []string
	MaxBodyBytes int64
}

// Server routes the HTTP API.
type Server struct {
	scanner Scanner
	logger  *zap.Logger
	router  *gin.Engine
}

// ScanRequest is the body of POST /api/v1/scan.
type ScanRequest struct {
	Input string `json:"input" binding:"required"`
	Mode  string `json:"mode"`
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(opts.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	})
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, opts.MaxBodyBytes)
		c.Next()
	})
	router.Use(metrics.PrometheusMiddleware())
	router.Use(requestLogger(opts.Logger))

	s := &Server{scanner: opts.Scanner, logger: opts.Logger, router: router}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/api/v1")
	if opts.RateLimit > 0 {
		v1.Use(RateLimiter(opts.RateLimit, max(opts.RateBurst, 1)))
	}
	v1.POST("/scan", s.scan)

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("server: shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	mode := detector.ModeURL
	if req.Mode != "" {
		mode = detector.Mode(strings.ToLower(req.Mode))
	}
	if mode != detector.ModeURL && mode != detector.ModeEmail {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be url or email"})
		return
	}

	res := s.scanner.Detect(c.Request.Context(), req.Input, mode)
	c.JSON(http.StatusOK, res)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
