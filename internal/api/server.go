// Package api provides the quranchat REST and websocket API.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qurani-maai/quranchat/internal/chat"
	"github.com/qurani-maai/quranchat/internal/logging"
	"github.com/qurani-maai/quranchat/internal/server"
)

// Server serves a chat.Engine over HTTP.
type Server struct {
	cfg      Config
	engine   *chat.Engine
	hub      *Hub
	limiter  *RateLimiter
	upgrader websocket.Upgrader
	started  time.Time

	// base outlives any request and ends when Run returns, so in-flight
	// websocket turns stop at shutdown.
	base context.Context
	stop context.CancelFunc
}

// New creates a Server. Call Run to start its websocket hub.
func New(cfg Config, engine *chat.Engine) (*Server, error) {
	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:     cfg,
		engine:  engine,
		hub:     NewHub(),
		started: time.Now(),
	}
	s.base, s.stop = context.WithCancel(context.Background())
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if !isOriginAllowed(origin, cfg.AllowedOrigins) {
				logging.Warn("websocket origin rejected", "origin", origin)
				return false
			}
			return true
		},
	}
	if cfg.RateLimitRequests > 0 {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequests,
			BurstSize:         cfg.RateLimitBurst,
		})
	}
	return s, nil
}

// Run runs the websocket hub until ctx is done.
func (s *Server) Run(ctx context.Context) {
	defer s.stop()
	s.hub.Run(ctx)
	if s.limiter != nil {
		s.limiter.Close()
	}
}

// Handler returns the routes wrapped in the middleware chain: security
// headers, authentication, rate limiting, CORS, then request logging
// outermost.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), s.routes())
	handler = server.Timing(server.SlowRequestThreshold)(handler)

	if s.cfg.Auth.Enabled {
		handler = AuthMiddleware(s.cfg.Auth, handler)
	}
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	handler = server.CORS(s.cfg.AllowedOrigins)(handler)
	return logging.Middleware(handler)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("GET /sessions/current", s.handleCurrentSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /sessions/{id}/activate", s.handleActivateSession)
	mux.HandleFunc("POST /sessions/{id}/messages", s.handleMessage)
	mux.HandleFunc("POST /sessions/{id}/tools", s.handleTool)
	mux.HandleFunc("GET /commentary/{chapter}/{verse}", s.handleCommentary)
	mux.HandleFunc("GET /focus", s.handleFocus)
	mux.HandleFunc("GET /progress", s.handleProgress)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
	})

	return mux
}

// Start serves engine on cfg.Port until ctx is done, then shuts down
// gracefully.
func Start(ctx context.Context, cfg Config, engine *chat.Engine) error {
	s, err := New(cfg, engine)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.Run(ctx)

	if s.cfg.Auth.Enabled {
		logging.Info("API key authentication enabled")
	} else {
		logging.Warn("API key authentication disabled, all requests allowed")
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		logging.Warn("CORS allowing all origins (*)")
	}
	logging.ServerStartup("rest_api", "http", s.cfg.Port, "websocket_path", "/ws")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	}
}
