package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/doridoridoriand/netwatch/internal/log"
	"github.com/doridoridoriand/netwatch/internal/state"
)

// Monitor is the part of the state machine exposed over HTTP.
type Monitor interface {
	Start() bool
	Stop() bool
	Snapshot() state.Snapshot
	Subscribe() (<-chan state.Snapshot, func())
}

// NewRouter builds the control API. metrics may be nil.
func NewRouter(monitor Monitor, metrics http.Handler, logger *log.Logger) *gin.Engine {
	if logger == nil {
		logger = log.Nop()
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := r.Group("/v1/monitor")
	v1.POST("/start", func(c *gin.Context) {
		submit(c, monitor.Start, "start")
	})
	v1.POST("/stop", func(c *gin.Context) {
		submit(c, monitor.Stop, "stop")
	})
	v1.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, monitor.Snapshot())
	})
	v1.GET("/watch", func(c *gin.Context) {
		updates, cancel := monitor.Subscribe()
		defer cancel()
		c.Stream(func(w io.Writer) bool {
			select {
			case <-c.Request.Context().Done():
				return false
			case snap, ok := <-updates:
				if !ok {
					return false
				}
				c.SSEvent("snapshot", snap)
				return true
			}
		})
	})
	return r
}

func submit(c *gin.Context, fn func() bool, event string) {
	if !fn() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "monitor is shutting down"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": event})
}

func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("control request", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

// Serve runs the control API on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control listen %s: %w", addr, err)
	}
	return serve(ctx, ln, handler)
}

func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
