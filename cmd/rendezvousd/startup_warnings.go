package main

import (
	"log/slog"
	"time"

	"webrtc-rendezvous/internal/config"
)

func logStartupWarnings(logger *slog.Logger, cfg config.Config) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Mode == config.ModeProd && cfg.MaxRequestsPerSecond <= 0 {
		logger.Warn("startup security warning: RENDEZVOUS_MAX_REQUESTS_PER_SECOND is unset/0 (per-IP rate limiting disabled) while --mode=prod",
			"warning_code", "rate_limit_disabled_in_prod",
			"max_requests_per_second", cfg.MaxRequestsPerSecond,
			"mode", cfg.Mode,
		)
	}

	if cfg.MaxBodyBytes > 1<<20 { // 1MiB
		logger.Warn("startup security warning: RENDEZVOUS_MAX_BODY_BYTES is very large (signaling payloads should be small; large bodies increase per-request allocation exposure)",
			"warning_code", "max_body_bytes_large",
			"max_body_bytes", cfg.MaxBodyBytes,
			"mode", cfg.Mode,
		)
	}

	if cfg.SessionTTL > time.Hour {
		logger.Warn("startup security warning: RENDEZVOUS_SESSION_TTL is very large (stale sessions and their secrets stay live longer)",
			"warning_code", "session_ttl_large",
			"session_ttl", cfg.SessionTTL,
			"mode", cfg.Mode,
		)
	}

	if cfg.PollTimeout > 30*time.Second {
		logger.Warn("startup security warning: RENDEZVOUS_POLL_TIMEOUT is very large (each idle drain holds a connection open this long)",
			"warning_code", "poll_timeout_large",
			"poll_timeout", cfg.PollTimeout,
			"mode", cfg.Mode,
		)
	}
}
