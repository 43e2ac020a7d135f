package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/app"
	"github.com/Freeeeeet/club_league/internal/auth"
	"github.com/Freeeeeet/club_league/internal/config"
	"github.com/Freeeeeet/club_league/internal/controller"
	"github.com/Freeeeeet/club_league/internal/controller/rest"
	"github.com/Freeeeeet/club_league/internal/lock"
	"github.com/Freeeeeet/club_league/internal/notify"
	"github.com/Freeeeeet/club_league/internal/repository"
	"github.com/Freeeeeet/club_league/internal/repository/base"
	"github.com/Freeeeeet/club_league/internal/repository/memory"
	"github.com/Freeeeeet/club_league/internal/service"
)

const (
	sweepLeaseTTL   = 10 * time.Minute
	shutdownTimeout = 15 * time.Second
)

// directory игроки для команд бота и адресатов уведомлений
type directory interface {
	controller.Players
	notify.Directory
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Club league stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting club league",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.StorageDriver),
		zap.Strings("courts", cfg.Courts),
		zap.String("timezone", cfg.ClubTimezone))

	repos, players, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	now := time.Now
	courts := service.NewCourtService(repos, service.CourtConfig{
		Courts:        cfg.Courts,
		Location:      cfg.Location(),
		ManualHorizon: cfg.ManualHorizon,
	}, now, logger)
	gate := service.NewLeagueGate(repos.Leagues, now, logger)
	standings := service.NewStandingsService(repos, now, logger)

	var telegram *bot.Bot
	senders := []notify.Sender{notify.NewLogSender(logger)}
	if cfg.TelegramToken != "" {
		telegram, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		senders = append(senders, notify.NewTelegramSender(telegram, players, logger))
	}
	dispatcher := notify.NewDispatcher(cfg.NotificationQueueSize, logger, senders...)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	matches := service.NewMatchService(repos, courts, gate, dispatcher, standings, service.MatchConfig{
		ExpirationDays: cfg.ExpirationDays,
		AutoConfirm:    cfg.AutoConfirm,
	}, now, logger)

	var locker app.Locker
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		locker = lock.NewRedisLocker(client, "club_league:sweep:")
		logger.Info("✅ Redis connected, sweeps are leased across instances")
	}

	scheduler := app.NewScheduler(locker, sweepLeaseTTL, logger,
		app.SweepJobs(matches, cfg.ExpirationSweepInterval, cfg.AutoConfirmSweepInterval)...)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	tokens := auth.NewTokens(cfg.JWTSecret)
	if telegram != nil {
		botController := controller.NewBotController(telegram, players, matches, courts, tokens, cfg.Location(), logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Bot commands menu is not set", zap.Error(err))
		}
		go botController.Start(ctx)
	}

	api := rest.NewServer(matches, courts, standings, scheduler, tokens, logger)
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     zap.NewStdLog(logger),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}

// openStorage подключает хранилище по STORAGE_DRIVER
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Repositories, directory, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		store := memory.NewStore()
		if cfg.SeedFile != "" {
			if err := store.LoadSeed(cfg.SeedFile); err != nil {
				return service.Repositories{}, nil, nil, fmt.Errorf("load seed: %w", err)
			}
			logger.Info("Seed loaded", zap.String("file", cfg.SeedFile))
		}
		logger.Warn("Using in-memory storage, data is lost on restart")
		return service.Repositories{
			Tx:           store,
			Matches:      store.Matches(),
			Reservations: store.Reservations(),
			Blocks:       store.Blocks(),
			Leagues:      store.Leagues(),
			Categories:   store.Categories(),
			Players:      store.Players(),
			Standings:    store.Standings(),
		}, store.Players(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return service.Repositories{}, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return service.Repositories{}, nil, nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("✅ Database connected")

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err == nil {
		err = migrator.Run(ctx)
	}
	if err != nil {
		pool.Close()
		return service.Repositories{}, nil, nil, err
	}

	players := repository.NewPlayerRepository(pool)
	return service.Repositories{
		Tx:           base.NewTxManager(pool),
		Matches:      repository.NewMatchRepository(pool),
		Reservations: repository.NewReservationRepository(pool),
		Blocks:       repository.NewBlockRepository(pool),
		Leagues:      repository.NewLeagueRepository(pool),
		Categories:   repository.NewCategoryRepository(pool),
		Players:      players,
		Standings:    repository.NewStandingRepository(pool),
	}, players, pool.Close, nil
}
