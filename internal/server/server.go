package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caffeineduck/webbridge/host"
	"github.com/caffeineduck/webbridge/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

//go:embed web
var webFS embed.FS

// Server exposes the host page to browsers.
type Server struct {
	cfg    *config.Config
	hub    *Hub
	log    zerolog.Logger
	engine *gin.Engine
	detach func()
}

// New wires a Server to page. Call Close to unsubscribe from the page.
func New(cfg *config.Config, page *host.Page, log zerolog.Logger) *Server {
	s := &Server{
		cfg: cfg,
		hub: NewHub(cfg.SendBuffer, log),
		log: log.With().Str("module", "server").Logger(),
	}
	s.detach = s.hub.Attach(page)
	s.engine = s.setupRouter()
	return s
}

func (s *Server) setupRouter() *gin.Engine {
	if s.cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if s.cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	static, _ := fs.Sub(webFS, "web")
	r.GET("/", func(c *gin.Context) {
		c.FileFromFS("/", http.FS(static))
	})
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	r.GET("/api/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.log.Error().Err(err).Msg("ws upgrade")
			return
		}
		client := s.hub.add(conn)
		go s.hub.writePump(client)
		go s.hub.readPump(client)
	})

	s.log.Info().Str("page_origin", s.cfg.PageOrigin).Msg("router setup")
	return r
}

// checkOrigin admits every origin when none are configured.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		a, err := url.Parse(allowed)
		if err != nil {
			continue
		}
		if strings.EqualFold(a.Scheme, u.Scheme) && strings.EqualFold(a.Host, u.Host) {
			return true
		}
	}
	s.log.Warn().Str("origin", origin).Msg("ws origin rejected")
	return false
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("webbridge server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close detaches from the page and disconnects all clients.
func (s *Server) Close() {
	s.detach()
	s.hub.CloseAll()
}
