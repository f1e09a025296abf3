package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/harborops/terminal-core/internal/audit"
	"github.com/harborops/terminal-core/internal/config"
	"github.com/harborops/terminal-core/internal/events"
	"github.com/harborops/terminal-core/internal/gate"
	"github.com/harborops/terminal-core/internal/httpserver"
	"github.com/harborops/terminal-core/internal/logger"
	"github.com/harborops/terminal-core/internal/passes"
	"github.com/harborops/terminal-core/internal/queue"
	"github.com/harborops/terminal-core/internal/ratelimit"
	"github.com/harborops/terminal-core/internal/store"
	"github.com/harborops/terminal-core/internal/yard"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", false)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, db := buildStore(ctx, cfg, log)
	if db != nil {
		defer db.Close()
	}

	seedYard(ctx, cfg, st, log)

	recorder, closeAudit := buildRecorder(ctx, cfg, db, log)
	defer closeAudit()

	publisher := buildPublisher(cfg, log)
	defer publisher.Close()

	allocator := yard.NewAllocator(st)
	allocator.Strict = cfg.StrictRelease

	srv := &httpserver.Server{
		Store:     st,
		Allocator: allocator,
		Movements: yard.NewMovementTracker(st, allocator, recorder, publisher, log),
		Validator: gate.NewValidator(st, publisher, log),
		Permits:   gate.NewPermitService(st, recorder),
		Passes:    passes.NewIssuer(st, recorder),
		Queue:     queue.New(st, recorder, publisher, log),
		Log:       log,
		JWTSecret: cfg.JWTSecret,
		Limiter:   ratelimit.New(cfg.RateRPS, cfg.RateBurst),
	}

	httpSrv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("terminal service listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	waitForShutdown(httpSrv, cancel, log)
}

func buildStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (store.Store, *sql.DB) {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("no database configured, using in-memory store")
		return store.NewMemoryStore(), nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	var st store.Store = store.NewPGStore(db)
	if cfg.RedisAddr != "" {
		cache := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := cache.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, pass lookups uncached")
		} else {
			st = store.NewCachedStore(st, cache)
			log.Info().Str("addr", cfg.RedisAddr).Msg("pass cache enabled")
		}
	}
	return st, db
}

func seedYard(ctx context.Context, cfg config.Config, st store.Store, log zerolog.Logger) {
	if cfg.YardLayoutPath == "" {
		return
	}
	layout, err := config.LoadYardLayout(cfg.YardLayoutPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.YardLayoutPath).Msg("load yard layout")
	}
	created, err := st.SeedYardLocations(ctx, layout.Locations())
	if err != nil {
		log.Fatal().Err(err).Msg("seed yard locations")
	}
	log.Info().Int("created", created).Msg("yard layout seeded")
}

func buildRecorder(ctx context.Context, cfg config.Config, db *sql.DB, log zerolog.Logger) (audit.Recorder, func()) {
	sinks := []audit.Sink{audit.NewFileSink(cfg.AuditDir)}
	var closers []func()

	if db != nil {
		sinks = append(sinks, audit.NewPGSink(db))
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := audit.NewKafkaProducer(audit.KafkaProducerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			log.Warn().Err(err).Msg("kafka sink disabled")
		} else {
			sinks = append(sinks, producer)
			closers = append(closers, func() { _ = producer.Close() })
		}
	}
	if cfg.S3Bucket != "" {
		archiver, err := audit.NewS3Archiver(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			log.Warn().Err(err).Msg("s3 archiver disabled")
		} else {
			sinks = append(sinks, archiver)
		}
	}

	recorder := audit.NewAsyncRecorder(log, audit.RecorderConfig{BufferSize: cfg.AuditBuffer}, sinks...)
	runCtx, runCancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		recorder.Run(runCtx)
		close(done)
	}()

	return recorder, func() {
		runCancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			log.Warn().Msg("audit recorder did not drain in time")
		}
		for _, c := range closers {
			c()
		}
	}
}

func buildPublisher(cfg config.Config, log zerolog.Logger) events.Publisher {
	if cfg.NATSURL == "" {
		return events.Noop{}
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		log.Warn().Err(err).Msg("nats unavailable, events disabled")
		return events.Noop{}
	}
	log.Info().Str("url", cfg.NATSURL).Msg("event publisher connected")
	return pub
}

func waitForShutdown(srv *http.Server, cancel context.CancelFunc, log zerolog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	cancel()
}
