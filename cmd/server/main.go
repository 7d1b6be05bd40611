package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/avelis/Parley/internal/adapters/http"
	wssignal "github.com/avelis/Parley/internal/adapters/signal"
	"github.com/avelis/Parley/internal/app"
	"github.com/avelis/Parley/internal/config"
	"github.com/avelis/Parley/internal/core"
	"github.com/avelis/Parley/internal/domain"
	"github.com/avelis/Parley/pkg/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	engine := core.NewEngine(core.Options{
		SeedRoomName:   domain.RoomName(cfg.SeedRoomName),
		SeedRoomSecret: domain.Secret(cfg.SeedRoomSecret),
		AdminName:      cfg.AdminName,
	})
	ctl := wssignal.NewController(engine, cfg)

	sweeper := &app.Sweeper{
		Engine:    engine,
		Interval:  cfg.SweepInterval,
		Threshold: cfg.IdleThreshold,
		OnReclaim: func(removed []domain.Secret) {
			metrics.RoomsReclaimedTotal.Add(float64(len(removed)))
			ctl.BroadcastStats()
		},
	}
	go sweeper.Run(ctx)

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Parley server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	ctl.BroadcastShutdown("server is shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
