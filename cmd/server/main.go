// Command server runs the HTTP ingestion API: the landing page, the phone
// submission endpoint, and the phones report. Submissions are validated,
// deduplicated against Redis, and dispatched to the job queue; the worker
// binary (cmd/worker) drains the queue.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-landing-backend/docs"
	"github.com/tbourn/go-landing-backend/internal/config"
	"github.com/tbourn/go-landing-backend/internal/dedup"
	httpapi "github.com/tbourn/go-landing-backend/internal/http"
	"github.com/tbourn/go-landing-backend/internal/observability"
	"github.com/tbourn/go-landing-backend/internal/phone"
	"github.com/tbourn/go-landing-backend/internal/queue"
	"github.com/tbourn/go-landing-backend/internal/repo"
	"github.com/tbourn/go-landing-backend/internal/services"
	"github.com/tbourn/go-landing-backend/internal/sysutil"
)

const version = "1.0.0"

// @title        Landing Backend API
// @version      1.0
// @description  Phone submission ingestion service with duplicate suppression and asynchronous persistence.
// @BasePath     /api/v1
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

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

	var cache dedup.Cache
	switch cfg.Dedup.Backend {
	case "memory":
		cache = dedup.NewMemoryCache()
		log.Warn().Msg("using in-process dedup cache; duplicates are only suppressed per instance")
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Dedup.RedisAddr,
			DB:   cfg.Dedup.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Dedup.RedisAddr).Msg("dedup redis unreachable")
		}
		cache = dedup.NewRedisCache(rdb)
	}

	qc := queue.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Queue.RedisAddr,
		DB:   cfg.Queue.RedisDB,
	}, queue.Policy{
		MaxRetry:    cfg.Queue.MaxRetry,
		SoftTimeout: cfg.Queue.SoftTimeout,
		HardTimeout: cfg.Queue.HardTimeout,
		Retention:   cfg.Queue.Retention,
	})
	defer func() {
		if err := qc.Close(); err != nil {
			log.Warn().Err(err).Msg("queue client close")
		}
	}()

	svc := services.NewSubmissionService(
		phone.MustNew(cfg.PhonePattern),
		cache,
		qc,
		cfg.Dedup.TTL,
		log.Logger,
	)

	engine := gin.New()
	httpapi.RegisterRoutes(engine, svc, db, metrics, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
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
