// Package health runs the worker's ambient HTTP surface: liveness,
// readiness, and Prometheus scrape endpoints, entirely separate from
// the sandbox's own HTTP surface and optional at that — if no address
// is configured the server is simply never started.
package health

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves /healthz, /readyz, and /metrics.
type Server struct {
	addr   string
	engine *gin.Engine
	http   *http.Server
	ready  atomic.Bool
}

// New builds a Server bound to addr. Pass an empty addr to signal the
// caller should not start it at all.
func New(addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{addr: addr, engine: r}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if s.ready.Load() {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// SetReady flips the readiness flag returned by /readyz.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start runs the HTTP server in the background. A no-op if addr is
// empty.
func (s *Server) Start() {
	if s.addr == "" {
		return
	}
	s.http = &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}
	go func() {
		_ = s.http.ListenAndServe()
	}()
}

// Stop gracefully shuts the server down, if it was started.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
