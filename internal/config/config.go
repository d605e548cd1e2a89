// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the phone validation pattern, dedup cache
// and queue backends, store connections, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-landing-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// QueueConfig defines the task-queue broker connection and per-job policy.
type QueueConfig struct {
	RedisAddr   string        // QUEUE_REDIS_ADDR (broker address)
	RedisDB     int           // QUEUE_REDIS_DB
	SoftTimeout time.Duration // QUEUE_SOFT_TIMEOUT (per-write budget)
	HardTimeout time.Duration // QUEUE_HARD_TIMEOUT (per-attempt budget)
	MaxRetry    int           // QUEUE_MAX_RETRY (re-deliveries before dead-letter)
	Retention   time.Duration // QUEUE_RETENTION (completed-job visibility)
	Concurrency int           // WORKER_CONCURRENCY (handlers per worker process)
}

// DedupConfig defines the duplicate-suppression cache settings.
type DedupConfig struct {
	Backend   string        // CACHE_BACKEND: "redis" or "memory"
	RedisAddr string        // CACHE_REDIS_ADDR
	RedisDB   int           // CACHE_REDIS_DB
	TTL       time.Duration // DEDUP_TTL (suppression window, default 24h)
}

// MongoConfig defines the audit log store connection.
type MongoConfig struct {
	URI        string // MONGO_URI
	Database   string // MONGO_DB
	Collection string // MONGO_COLLECTION
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Ingestion
	PhonePattern  string        // PHONE_PATTERN (regexp for acceptable submissions)
	SubmitTimeout time.Duration // SUBMIT_TIMEOUT (claim + dispatch budget in the request path)

	// Relational store
	DBPath string // SQLite path (dev default)
	DBURL  string // Postgres DSN; when set it takes precedence over DBPath

	// Trusted proxy resolution
	TrustedProxyHeader string // e.g. "X-Forwarded-For"; empty disables header lookup

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Subsystems
	Dedup DedupConfig
	Queue QueueConfig
	Mongo MongoConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Ingestion
		PhonePattern:  getenv("PHONE_PATTERN", `^\+?[0-9]{7,15}$`),
		SubmitTimeout: getdur("SUBMIT_TIMEOUT", 2*time.Second),

		// Relational store
		DBPath: getenv("DB_PATH", "app.db"),
		DBURL:  getenv("DB_URL", ""),

		// Trusted proxy resolution
		TrustedProxyHeader: getenv("TRUSTED_PROXY_HEADER", "X-Forwarded-For"),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 20.0),
		RateBurst: getint("RATE_BURST", 40),

		Dedup: DedupConfig{
			Backend:   strings.ToLower(getenv("CACHE_BACKEND", "redis")),
			RedisAddr: getenv("CACHE_REDIS_ADDR", "localhost:6379"),
			RedisDB:   getint("CACHE_REDIS_DB", 1),
			TTL:       getdur("DEDUP_TTL", 24*time.Hour),
		},
		Queue: QueueConfig{
			RedisAddr:   getenv("QUEUE_REDIS_ADDR", "localhost:6379"),
			RedisDB:     getint("QUEUE_REDIS_DB", 0),
			SoftTimeout: getdur("QUEUE_SOFT_TIMEOUT", 20*time.Second),
			HardTimeout: getdur("QUEUE_HARD_TIMEOUT", 30*time.Second),
			MaxRetry:    getint("QUEUE_MAX_RETRY", 5),
			Retention:   getdur("QUEUE_RETENTION", 24*time.Hour),
			Concurrency: getint("WORKER_CONCURRENCY", 10),
		},
		Mongo: MongoConfig{
			URI:        getenv("MONGO_URI", "mongodb://localhost:27017"),
			Database:   getenv("MONGO_DB", "landing_logs"),
			Collection: getenv("MONGO_COLLECTION", "requests"),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-landing-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if _, err := regexp.Compile(cfg.PhonePattern); err != nil {
		return cfg, errors.New("PHONE_PATTERN must be a valid regular expression")
	}
	if cfg.SubmitTimeout <= 0 {
		return cfg, errors.New("SUBMIT_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" && strings.TrimSpace(cfg.DBURL) == "" {
		return cfg, errors.New("one of DB_PATH or DB_URL must be set")
	}
	switch cfg.Dedup.Backend {
	case "redis", "memory":
	default:
		return cfg, errors.New("CACHE_BACKEND must be one of: redis, memory")
	}
	if cfg.Dedup.TTL <= 0 {
		return cfg, errors.New("DEDUP_TTL must be > 0")
	}
	if cfg.Queue.SoftTimeout <= 0 || cfg.Queue.HardTimeout <= 0 {
		return cfg, errors.New("queue timeouts must be positive durations")
	}
	if cfg.Queue.HardTimeout < cfg.Queue.SoftTimeout {
		return cfg, errors.New("QUEUE_HARD_TIMEOUT must be >= QUEUE_SOFT_TIMEOUT")
	}
	if cfg.Queue.MaxRetry < 0 {
		return cfg, errors.New("QUEUE_MAX_RETRY must be >= 0")
	}
	if cfg.Queue.Concurrency < 1 {
		return cfg, errors.New("WORKER_CONCURRENCY must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
