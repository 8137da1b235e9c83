package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clinicore/scheduling/internal/appointment"
	"github.com/clinicore/scheduling/internal/config"
	"github.com/clinicore/scheduling/internal/db"
	"github.com/clinicore/scheduling/internal/events"
	"github.com/clinicore/scheduling/pkg/logger"
)

// noshow-worker periodically marks appointments whose window ended more than
// the configured grace period ago as no_show.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("grace", cfg.NoShowGrace).
		Msg("noshow-worker starting up")

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

	repo := appointment.NewPgRepository(pgPool)
	svc := appointment.NewService(appointment.ServiceDeps{
		Repo:        repo,
		Policy:      appointment.NewPolicy(appointment.DefaultPolicyConfig(), nil),
		Detector:    appointment.NewConflictDetector(repo),
		Sink:        events.NewPgSink(pgPool),
		NoShowGrace: cfg.NoShowGrace,
	})

	// Run once at startup
	runOnce(rootCtx, svc)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping noshow-worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	swept, err := svc.SweepNoShows(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("no-show sweep error")
		return
	}
	log.Info().Int("swept", swept).Dur("took", time.Since(start)).Msg("no-show sweep complete")
}
