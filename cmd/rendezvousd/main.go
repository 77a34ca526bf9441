package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"webrtc-rendezvous/internal/broker"
	"webrtc-rendezvous/internal/config"
	"webrtc-rendezvous/internal/httpserver"
	"webrtc-rendezvous/internal/mailbox"
	"webrtc-rendezvous/internal/metrics"
	"webrtc-rendezvous/internal/session"
	"webrtc-rendezvous/internal/store"
)

func main() {
	// Optional .env bootstrap for local development; the real environment
	// always wins because godotenv does not override existing variables.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	logger.Info("starting rendezvousd",
		"listen_addr", cfg.ListenAddr,
		"mode", cfg.Mode,
		"session_ttl", cfg.SessionTTL,
		"poll_timeout", cfg.PollTimeout,
		"drain_batch_limit", cfg.DrainBatchLimit,
		"max_requests_per_second", cfg.MaxRequestsPerSecond,
	)

	logStartupWarnings(logger, cfg)

	st, err := store.NewRedisStore(cfg.StoreEndpoint)
	if err != nil {
		logger.Error("failed to configure store", "err", err)
		os.Exit(2)
	}

	// Fail fast on an unreachable store rather than surfacing 502s on the
	// first request.
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = st.Ping(pingCtx)
	cancel()
	if err != nil {
		logger.Error("store unreachable", "endpoint", cfg.StoreEndpoint, "err", err)
		os.Exit(1)
	}

	m := metrics.New()
	registry := session.NewRegistry(st, cfg.SessionTTL)
	mailboxes := mailbox.NewManager(st, cfg.SessionTTL, cfg.PollTimeout, cfg.DrainBatchLimit)
	b := broker.New(registry, mailboxes, m, cfg.NameAttempts)

	srv := httpserver.New(cfg, logger, b, st, m)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen", "err", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", "err", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "err", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server exited after shutdown", "err", err)
		os.Exit(1)
	}
}
