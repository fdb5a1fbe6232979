// Package api exposes a read-only dashboard over the tracker's stored
// summaries and report files. It never mutates tracker state.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ghtracker/pkg/logx"
)

// Server wraps the HTTP listener lifecycle around the gin router.
type Server struct {
	srv *http.Server
	log logx.Logger
}

func NewServer(addr string, h *Handler, log logx.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			logx.String("method", c.Request.Method),
			logx.String("path", c.Request.URL.Path),
			logx.Int("status", c.Writer.Status()),
			logx.Duration("took", time.Since(start)))
	})

	r.GET("/healthz", h.Health)
	api := r.Group("/api")
	{
		api.GET("/repos", h.ListRepos)
		api.GET("/summaries", h.ListSummaries)
		api.GET("/reports", h.ListReports)
	}

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start serves until the listener fails. It returns nil on graceful
// shutdown.
func (s *Server) Start() error {
	s.log.Info("dashboard listening", logx.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
