package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"partner-bot/internal/bot"
	"partner-bot/internal/broadcast"
	"partner-bot/internal/config"
	"partner-bot/internal/database"
	"partner-bot/internal/logger"
	"partner-bot/internal/metrics"
	"partner-bot/internal/payout"
	"partner-bot/internal/referral"
	"partner-bot/internal/repository"
	"partner-bot/internal/state"
	"partner-bot/internal/worker"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("Could not initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.L().Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to Database
	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		logger.L().Fatalf("Could not connect to database: %v", err)
	}

	// Connect to Redis
	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.L().Fatalf("Could not connect to redis: %v", err)
	}
	defer rdb.Close()

	repo := repository.New(db)
	states := state.NewRedisStore(rdb, cfg.StateTTL)
	referrals := referral.NewEngine(repo, cfg.ReferralBonus)
	payouts := payout.NewWorkflow(repo, referrals, cfg.MinPayout)

	b, err := bot.NewBot(cfg.BotToken, bot.Deps{
		Repo:            repo,
		Referrals:       referrals,
		Payouts:         payouts,
		Broadcast:       broadcast.NewSession(repo, cfg.BroadcastRate),
		States:          states,
		AdminID:         cfg.AdminID,
		Onboarding:      cfg.OnboardingMessages,
		OnboardingDelay: cfg.OnboardingDelay,
	})
	if err != nil {
		logger.L().Fatalf("Could not create bot: %v", err)
	}

	checker := worker.NewChecker(repo, states, b, cfg.AdminID, cfg.ReminderInterval, cfg.ReminderAge)
	go checker.Start(ctx)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(cfg.MetricsAllowedCIDRs))
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.L().Infof("Metrics listening on %s", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.L().Errorf("Metrics server failed: %v", err)
			}
		}()
	}

	logger.L().Info("Service started successfully")

	if err := b.Start(ctx); err != nil {
		logger.L().Fatalf("Bot stopped: %v", err)
	}
	<-ctx.Done()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.L().Warnf("Metrics server shutdown: %v", err)
		}
	}
	logger.L().Info("Service stopped")
}
