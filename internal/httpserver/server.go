// Package httpserver exposes the broker over a stateless JSON/HTTP
// surface. Every request is self-contained; the only long-lived thing
// about a connection is the bounded long poll on the drain endpoints.
package httpserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"webrtc-rendezvous/internal/broker"
	"webrtc-rendezvous/internal/config"
	"webrtc-rendezvous/internal/metrics"
	"webrtc-rendezvous/internal/ratelimit"
	"webrtc-rendezvous/internal/store"
)

type Server struct {
	log     *slog.Logger
	cfg     config.Config
	broker  *broker.Broker
	store   store.Store
	metrics *metrics.Metrics
	limiter *ratelimit.RemoteLimiter

	ready atomic.Bool

	srv *http.Server
}

func New(cfg config.Config, logger *slog.Logger, b *broker.Broker, st store.Store, m *metrics.Metrics) *Server {
	s := &Server{
		log:     logger,
		cfg:     cfg,
		broker:  b,
		store:   st,
		metrics: m,
		limiter: ratelimit.NewRemoteLimiter(nil, int64(cfg.MaxRequestsPerSecond), 0),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	s.registerRoutes(r)

	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		// The drain endpoints block up to PollTimeout before writing, so the
		// write timeout must sit comfortably above it.
		WriteTimeout: cfg.PollTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/metrics", metrics.PrometheusHandler(s.metrics).ServeHTTP)

	r.Get("/sessions", s.handleListSessions)
	r.Get("/host/messages", s.handleHostMessages)
	r.Get("/join/messages", s.handleClientMessages)

	// Mutating endpoints carry bodies and are the abuse surface: they get
	// the per-IP budget and the body size cap.
	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.limitBody)

		r.Post("/host", s.handleRegisterHost)
		r.Post("/join", s.handleJoin)
		r.Post("/join/candidates", s.handleJoinCandidates)
		r.Post("/join/response", s.handleJoinResponse)
	})
}

func (s *Server) Serve(l net.Listener) error {
	s.ready.Store(true)
	s.log.Info("http server serving", "addr", l.Addr().String())
	return s.srv.Serve(l)
}

func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	return s.srv.Shutdown(ctx)
}

func (s *Server) Close() error {
	s.ready.Store(false)
	return s.srv.Close()
}

// Handler returns the configured HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// middleware.RealIP has already rewritten RemoteAddr from the
		// forwarding headers; strip the port so one caller maps to one key.
		remote := r.RemoteAddr
		if host, _, err := net.SplitHostPort(remote); err == nil {
			remote = host
		}
		if !s.limiter.Allow(remote) {
			s.metrics.Inc(metrics.RateLimited)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(sw, r)

		s.log.Info("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
