// Package config loads broker settings from environment variables with
// command-line flag overrides. Env values become flag defaults, so
// flags win when both are set.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envVarListenAddr      = "RENDEZVOUS_LISTEN_ADDR"
	envVarStoreEndpoint   = "RENDEZVOUS_STORE_ENDPOINT"
	envVarMode            = "RENDEZVOUS_MODE"
	envVarLogFormat       = "RENDEZVOUS_LOG_FORMAT"
	envVarLogLevel        = "RENDEZVOUS_LOG_LEVEL"
	envVarShutdownTimeout = "RENDEZVOUS_SHUTDOWN_TIMEOUT"

	// Signaling knobs.
	envVarSessionTTL      = "RENDEZVOUS_SESSION_TTL"
	envVarPollTimeout     = "RENDEZVOUS_POLL_TIMEOUT"
	envVarDrainBatchLimit = "RENDEZVOUS_DRAIN_BATCH_LIMIT"
	envVarNameAttempts    = "RENDEZVOUS_NAME_ATTEMPTS"

	// Abuse limits.
	envVarMaxRequestsPerSecond = "RENDEZVOUS_MAX_REQUESTS_PER_SECOND"
	envVarMaxBodyBytes         = "RENDEZVOUS_MAX_BODY_BYTES"
)

const (
	DefaultListenAddr    = "127.0.0.1:8080"
	DefaultStoreEndpoint = "redis://127.0.0.1:6379"
	DefaultShutdown      = 15 * time.Second

	// DefaultSessionTTL bounds how long a session (and each of its client
	// memberships and mailboxes) survives without being refreshed.
	DefaultSessionTTL = 600 * time.Second

	// DefaultPollTimeout is how long an empty drain blocks before
	// returning an empty batch.
	DefaultPollTimeout = 5 * time.Second

	DefaultDrainBatchLimit = 10
	DefaultNameAttempts    = 1000

	DefaultMaxBodyBytes int64 = 64 * 1024

	DefaultMode Mode = ModeDev
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

type Config struct {
	ListenAddr      string
	StoreEndpoint   string
	LogFormat       LogFormat
	LogLevel        slog.Level
	ShutdownTimeout time.Duration
	Mode            Mode

	SessionTTL      time.Duration
	PollTimeout     time.Duration
	DrainBatchLimit int
	NameAttempts    int

	// MaxRequestsPerSecond caps requests per remote IP. <= 0 disables
	// the limiter.
	MaxRequestsPerSecond int

	// MaxBodyBytes caps request body size on mutating endpoints.
	MaxBodyBytes int64
}

func Load(args []string) (Config, error) {
	return load(os.LookupEnv, args)
}

func load(lookup func(string) (string, bool), args []string) (Config, error) {
	envMode, _ := lookup(envVarMode)
	modeDefault := string(DefaultMode)
	if envMode != "" {
		modeDefault = envMode
	}

	envLogFormat, envLogFormatOK := lookup(envVarLogFormat)
	envLogFormatSet := envLogFormatOK && envLogFormat != ""
	logFormatDefault := envLogFormat
	if !envLogFormatSet {
		logFormatDefault = defaultLogFormatForMode(modeDefault)
	}

	envLogLevel, envLogLevelOK := lookup(envVarLogLevel)
	envLogLevelSet := envLogLevelOK && envLogLevel != ""
	logLevelDefault := envLogLevel
	if !envLogLevelSet {
		logLevelDefault = defaultLogLevelForMode(modeDefault)
	}

	listenAddr := envOrDefault(lookup, envVarListenAddr, DefaultListenAddr)
	storeEndpoint := envOrDefault(lookup, envVarStoreEndpoint, DefaultStoreEndpoint)

	shutdownTimeout := DefaultShutdown
	if raw, ok := lookup(envVarShutdownTimeout); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", envVarShutdownTimeout, raw, err)
		}
		shutdownTimeout = d
	}

	sessionTTL, err := envDurationOrDefault(lookup, envVarSessionTTL, DefaultSessionTTL)
	if err != nil {
		return Config{}, err
	}
	pollTimeout, err := envDurationOrDefault(lookup, envVarPollTimeout, DefaultPollTimeout)
	if err != nil {
		return Config{}, err
	}
	drainBatchLimit, err := envIntOrDefault(lookup, envVarDrainBatchLimit, DefaultDrainBatchLimit)
	if err != nil {
		return Config{}, err
	}
	nameAttempts, err := envIntOrDefault(lookup, envVarNameAttempts, DefaultNameAttempts)
	if err != nil {
		return Config{}, err
	}
	maxRequestsPerSecond, err := envIntOrDefault(lookup, envVarMaxRequestsPerSecond, 0)
	if err != nil {
		return Config{}, err
	}

	maxBodyBytes := DefaultMaxBodyBytes
	if raw, ok := lookup(envVarMaxBodyBytes); ok && strings.TrimSpace(raw) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", envVarMaxBodyBytes, raw, err)
		}
		maxBodyBytes = n
	}

	fs := flag.NewFlagSet("rendezvousd", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		modeStr      string
		logFormatStr string
		logLevelStr  string
	)

	fs.StringVar(&listenAddr, "listen-addr", listenAddr, "HTTP listen address (host:port) (env "+envVarListenAddr+")")
	fs.StringVar(&storeEndpoint, "store-endpoint", storeEndpoint, "Backing store endpoint as a redis:// URL (env "+envVarStoreEndpoint+")")
	fs.StringVar(&modeStr, "mode", modeDefault, "Run mode: dev or prod")
	fs.StringVar(&logFormatStr, "log-format", logFormatDefault, "Log format: text or json")
	fs.StringVar(&logLevelStr, "log-level", logLevelDefault, "Log level: debug, info, warn, error")
	fs.DurationVar(&shutdownTimeout, "shutdown-timeout", shutdownTimeout, "Graceful shutdown timeout (e.g. 15s)")
	fs.DurationVar(&sessionTTL, "session-ttl", sessionTTL, "Session lifetime; refreshed on joins and relays (env "+envVarSessionTTL+")")
	fs.DurationVar(&pollTimeout, "poll-timeout", pollTimeout, "Max time an empty drain blocks before returning (env "+envVarPollTimeout+")")
	fs.IntVar(&drainBatchLimit, "drain-batch-limit", drainBatchLimit, "Max messages returned by one client drain (env "+envVarDrainBatchLimit+")")
	fs.IntVar(&nameAttempts, "name-attempts", nameAttempts, "Max attempts to generate an unclaimed session name (env "+envVarNameAttempts+")")
	fs.IntVar(&maxRequestsPerSecond, "max-requests-per-second", maxRequestsPerSecond, "Per-IP request budget (0 = disabled) (env "+envVarMaxRequestsPerSecond+")")
	fs.Int64Var(&maxBodyBytes, "max-body-bytes", maxBodyBytes, "Max request body size in bytes (env "+envVarMaxBodyBytes+")")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	setFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	mode, err := parseMode(modeStr)
	if err != nil {
		return Config{}, err
	}

	// The log format/level defaults track the final mode unless the user
	// pinned them via env or flag.
	if !envLogFormatSet && !setFlags["log-format"] {
		logFormatStr = defaultLogFormatForMode(string(mode))
	}
	if !envLogLevelSet && !setFlags["log-level"] {
		logLevelStr = defaultLogLevelForMode(string(mode))
	}

	logFormat, err := parseLogFormat(logFormatStr)
	if err != nil {
		return Config{}, err
	}

	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	if listenAddr == "" {
		return Config{}, fmt.Errorf("listen address must not be empty")
	}
	if strings.TrimSpace(storeEndpoint) == "" {
		return Config{}, fmt.Errorf("%s/--store-endpoint must not be empty", envVarStoreEndpoint)
	}
	if shutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("shutdown timeout must be > 0")
	}
	if sessionTTL <= 0 {
		return Config{}, fmt.Errorf("%s/--session-ttl must be > 0", envVarSessionTTL)
	}
	if pollTimeout <= 0 {
		return Config{}, fmt.Errorf("%s/--poll-timeout must be > 0", envVarPollTimeout)
	}
	if pollTimeout >= sessionTTL {
		return Config{}, fmt.Errorf("%s/--poll-timeout must be < %s/--session-ttl", envVarPollTimeout, envVarSessionTTL)
	}
	if drainBatchLimit <= 0 {
		return Config{}, fmt.Errorf("%s/--drain-batch-limit must be > 0", envVarDrainBatchLimit)
	}
	if nameAttempts <= 0 {
		return Config{}, fmt.Errorf("%s/--name-attempts must be > 0", envVarNameAttempts)
	}
	if maxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("%s/--max-body-bytes must be > 0", envVarMaxBodyBytes)
	}

	return Config{
		ListenAddr:      listenAddr,
		StoreEndpoint:   storeEndpoint,
		LogFormat:       logFormat,
		LogLevel:        level,
		ShutdownTimeout: shutdownTimeout,
		Mode:            mode,

		SessionTTL:      sessionTTL,
		PollTimeout:     pollTimeout,
		DrainBatchLimit: drainBatchLimit,
		NameAttempts:    nameAttempts,

		MaxRequestsPerSecond: maxRequestsPerSecond,
		MaxBodyBytes:         maxBodyBytes,
	}, nil
}

func NewLogger(cfg Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case LogFormatText:
		handler = slog.NewTextHandler(os.Stdout, opts)
	case LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	return slog.New(handler), nil
}

func envOrDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envDurationOrDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func defaultLogFormatForMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(ModeProd), "production":
		return string(LogFormatJSON)
	default:
		return string(LogFormatText)
	}
}

func defaultLogLevelForMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(ModeProd), "production":
		return "info"
	default:
		return "debug"
	}
}

func parseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ModeDev), "development":
		return ModeDev, nil
	case string(ModeProd), "production":
		return ModeProd, nil
	default:
		return "", fmt.Errorf("invalid mode %q (expected dev or prod)", raw)
	}
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf("invalid log format %q (expected text or json)", raw)
	}
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug, info, warn, error)", raw)
	}
}
