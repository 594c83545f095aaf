package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docsum/internal/bot"
	"docsum/internal/database"
	"docsum/internal/metrics"
	"docsum/internal/ratelimiter"
	"docsum/internal/scheduler"
	"docsum/internal/server"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI, JSON API and optional Telegram bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	start := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return fmt.Errorf("initialize db: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	s, err := initSummarizer(ctx, cfg, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	svc := newService(cfg, s, db, m, log)

	sched := scheduler.New(ctx, cfg.HistoryPruneSpec, cfg.HistoryRetention, db, m.AddPruned, log)
	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", cfg.HistoryPruneSpec)

		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", cfg.HistoryPruneSpec,
		"retention", cfg.HistoryRetention)

	srv, err := server.New(svc, ratelimiter.New(cfg.RateLimitRPS, cfg.RateLimitBurst), m, server.Options{
		Addr:           cfg.HTTPAddr,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, log)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	if cfg.TelegramEnabled() {
		botInst, err := bot.New(bot.Options{
			Token:          cfg.TelegramToken,
			AllowedUsers:   cfg.AllowedUsers,
			MaxUploadBytes: cfg.MaxUploadBytes,
		}, svc, ratelimiter.NewChatPacer(), log)
		if err != nil {
			log.ErrorContext(ctx, "Failed to initialize bot",
				"error", err,
				"allowedUsersCount", len(cfg.AllowedUsers))

			return fmt.Errorf("initialize bot: %w", err)
		}

		g.Go(func() error {
			botInst.Start(gctx)
			return nil
		})
	} else {
		log.InfoContext(ctx, "TELEGRAM_TOKEN is empty so bot is disabled",
			"envVar", "TELEGRAM_TOKEN")
	}

	err = g.Wait()

	log.InfoContext(ctx, "Exiting...",
		"error", err,
		"uptimeSeconds", time.Since(start).Seconds())

	return err
}
