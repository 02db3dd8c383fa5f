package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blockedby/tg-inviter/internal/agent"
	"github.com/blockedby/tg-inviter/internal/auth"
	"github.com/blockedby/tg-inviter/internal/config"
	"github.com/blockedby/tg-inviter/internal/health"
	"github.com/blockedby/tg-inviter/internal/inviter"
	"github.com/blockedby/tg-inviter/internal/logger"
	"github.com/blockedby/tg-inviter/internal/publisher"
	"github.com/blockedby/tg-inviter/internal/telegram"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	log := logger.Get()
	log.Info().Str("mode", string(cfg.Mode())).Msg("starting telegram inviter")

	// 3. Setup context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Liveness and metrics
	var server *health.Server
	tgManager := telegram.NewManager(cfg)
	if cfg.HTTPPort > 0 {
		server = health.NewServer(&health.Config{
			Port:   cfg.HTTPPort,
			Status: func() string { return string(tgManager.GetStatus()) },
		})
		log.Info().Int("port", cfg.HTTPPort).Msg("starting health server")
		go func() {
			if err := server.Start(); err != nil {
				log.Error().Err(err).Msg("health server error")
			}
		}()
	}

	// 5. Connect to telegram
	if err := tgManager.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("telegram client failed to start")
	}

	api, err := tgManager.API()
	if err != nil {
		log.Fatal().Err(err).Msg("telegram client not ready")
	}
	tgClient := telegram.NewClient(api, telegram.DefaultRateLimiter())
	selfID := tgManager.SelfID()

	// 6. Optional job events
	var hooks inviter.Hooks
	if cfg.NatsURL != "" {
		pub, err := publisher.Connect(cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
		} else {
			defer pub.Close()
			hooks = pub.Hooks()
		}
	}

	// 7. Engine, job lane and command agent
	pacing := inviter.DefaultPacing()
	pacing.InviteDelay = cfg.InviteDelay
	pacing.FloodCooldown = cfg.FloodCooldown
	pacing.ErrorDelay = cfg.ErrorDelay

	engine := inviter.NewEngine(tgClient, pacing, selfID,
		inviter.WithMetrics(inviter.NewMetrics(prometheus.DefaultRegisterer)),
		inviter.WithLogger(log),
	)
	runner := inviter.NewRunner(ctx, engine, hooks)
	gate := auth.NewGate(cfg.Mode(), selfID, cfg.AdminID)
	if gate.Principal() == 0 {
		log.Warn().Msg("no authorized principal, all commands will be ignored")
	}
	bot := agent.New(gate, runner, cfg.Mode(), log)

	if err := tgManager.Subscribe(tgClient, bot.HandleInbound); err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to updates")
	}
	log.Info().Int64("principal", gate.Principal()).Msg("listening for commands")

	idleErr := make(chan error, 1)
	go func() { idleErr <- tgManager.Idle() }()

	// 8. Wait for shutdown
	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-idleErr:
		log.Error().Err(err).Msg("telegram client stopped")
		cancel()
	}

	log.Info().Msg("shutting down services...")

	// the running job reports its cancellation before the client goes away
	runner.Wait()
	tgManager.Stop()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("health server shutdown")
		}
	}

	log.Info().Msg("shutdown complete")
}
