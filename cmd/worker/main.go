// Command worker drains the job queues: persist jobs append phone rows to
// the relational store, audit jobs append request records to MongoDB. It is
// deployed separately from cmd/server so ingestion latency never depends on
// store health.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-landing-backend/internal/auditlog"
	"github.com/tbourn/go-landing-backend/internal/config"
	"github.com/tbourn/go-landing-backend/internal/observability"
	"github.com/tbourn/go-landing-backend/internal/queue"
	"github.com/tbourn/go-landing-backend/internal/repo"
	"github.com/tbourn/go-landing-backend/internal/sysutil"
	"github.com/tbourn/go-landing-backend/internal/workers"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx := context.Background()

	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	db, err := openDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	auditStore, closeMongo, err := auditlog.NewMongoStore(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("uri", cfg.Mongo.URI).Msg("connect audit store")
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := closeMongo(shCtx); err != nil {
			log.Warn().Err(err).Msg("audit store close")
		}
	}()

	persist := workers.NewPersistHandler(
		workers.GormPhoneWriter{DB: db},
		cfg.Queue.SoftTimeout,
		cfg.Queue.MaxRetry,
		metrics,
		log.Logger,
	)
	audit := workers.NewAuditHandler(
		auditStore,
		cfg.Queue.SoftTimeout,
		cfg.Queue.MaxRetry,
		metrics,
		log.Logger,
	)
	mux := workers.NewMux(persist, audit)

	// Worker metrics are scraped from this process, not from the API server.
	go serveMetrics(":" + cfg.Port)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr: cfg.Queue.RedisAddr,
			DB:   cfg.Queue.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Queue.Concurrency,
			Queues: map[string]int{
				queue.QueuePersist: 1,
				queue.QueueAudit:   1,
			},
		},
	)

	log.Info().
		Str("version", version).
		Int("concurrency", cfg.Queue.Concurrency).
		Msg("worker starting")

	// Run blocks until SIGINT/SIGTERM and drains in-flight tasks.
	if err := srv.Run(mux); err != nil {
		log.Fatal().Err(err).Msg("worker server")
	}
}

// serveMetrics exposes /metrics and /healthz for the worker process.
func serveMetrics(addr string) {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	m.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	srv := &http.Server{Addr: addr, Handler: m, ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics listener")
	}
}

// openDB picks the relational backend: Postgres when DB_URL is set, SQLite
// otherwise (dev default).
func openDB(cfg config.Config) (*gorm.DB, error) {
	if cfg.DBURL != "" {
		return repo.OpenPostgres(cfg.DBURL)
	}
	return repo.OpenSQLite(cfg.DBPath)
}
