// Package server exposes the invocation handler over HTTP.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chris/whiskers/internal/invoke"
)

const maxEventBytes = 64 << 10

type Invoker interface {
	Handle(ctx context.Context, raw []byte) invoke.Response
}

// NewRouter returns a configured server. A run makes several model calls, so
// the write timeout is generous.
func NewRouter(addr string, invoker Invoker, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	logger = logger.With("component", "server")
	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
	)

	router.GET("/health", health)
	router.POST("/invoke", invokeHandler(invoker))

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func invokeHandler(invoker Invoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reading request body: " + err.Error()})
			return
		}
		if len(raw) > maxEventBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		// A run finishes even if the caller hangs up; only the host can stop it.
		resp := invoker.Handle(context.WithoutCancel(c.Request.Context()), raw)
		c.Data(resp.StatusCode, "application/json; charset=utf-8", []byte(resp.Body))
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
