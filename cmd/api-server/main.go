package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/scheduling/internal/api"
	"github.com/clinicore/scheduling/internal/appointment"
	"github.com/clinicore/scheduling/internal/config"
	"github.com/clinicore/scheduling/internal/db"
	"github.com/clinicore/scheduling/internal/events"
	"github.com/clinicore/scheduling/internal/observability/metrics"
	redisclient "github.com/clinicore/scheduling/internal/redis"
	"github.com/clinicore/scheduling/internal/schedule"
	"github.com/clinicore/scheduling/internal/slots"
	"github.com/clinicore/scheduling/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	log.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("version", version).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	sink := events.NewPgSink(pgPool)
	m := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	scheduleSvc := schedule.NewService(
		schedule.NewPgRepository(pgPool),
		schedule.NewCache(rdb, cfg.ScheduleTTL),
		sink,
		nil,
	)

	apptRepo := appointment.NewPgRepository(pgPool)
	apptSvc := appointment.NewService(appointment.ServiceDeps{
		Repo: apptRepo,
		Policy: appointment.NewPolicy(appointment.PolicyConfig{
			SlotGranularity:    cfg.SlotGranularity,
			MinDurationMinutes: cfg.MinDuration,
			MaxDurationMinutes: cfg.MaxDuration,
			BusinessStart:      cfg.BusinessStart,
			BusinessEnd:        cfg.BusinessEnd,
			MinAdvance:         cfg.MinAdvance,
			MaxAdvanceDays:     cfg.MaxAdvanceDays,
		}, nil),
		Detector:    appointment.NewConflictDetector(apptRepo),
		Locker:      redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL),
		Sink:        sink,
		Metrics:     m,
		NoShowGrace: cfg.NoShowGrace,
	})

	generator := slots.NewGenerator(scheduleSvc, apptRepo, m, nil)

	router := api.NewRouter(api.RouterConfig{
		Schedules:    scheduleSvc,
		Appointments: apptSvc,
		Slots:        generator,
		PgPool:       pgPool,
		Redis:        rdb,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("api-server stopped")
}
