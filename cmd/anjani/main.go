package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/config"
	"github.com/userbotindo/anjani/internal/i18n"
	"github.com/userbotindo/anjani/internal/infra/logging"
	"github.com/userbotindo/anjani/internal/infra/metrics"
	"github.com/userbotindo/anjani/internal/infra/mongo"
	"github.com/userbotindo/anjani/internal/infra/redis"
	"github.com/userbotindo/anjani/internal/infra/sched"
	"github.com/userbotindo/anjani/internal/infra/telegram"
	"github.com/userbotindo/anjani/internal/infra/web"
	"github.com/userbotindo/anjani/internal/plugins"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the config file (yaml or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(cfg.Log)
	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := mongo.NewClient(bootCtx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("mongodb: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("mongodb close failed")
		}
	}()

	rds, err := redis.NewClient(bootCtx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() {
		if err := rds.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}()

	bundle, err := i18n.Load(i18n.LocalesFS)
	if err != nil {
		return fmt.Errorf("locales: %w", err)
	}

	cache := redis.NewCache(rds, cfg.Redis.TTL)
	client, err := telegram.NewClient(cfg.Bot, cache, log)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	repos := bot.Repos{
		Chats:   mongo.NewChatRepo(db),
		Users:   mongo.NewUserRepo(db),
		Langs:   mongo.NewLanguageRepo(db),
		Rules:   mongo.NewRulesRepo(db),
		Notes:   mongo.NewNotesRepo(db),
		Welcome: mongo.NewWelcomeRepo(db),
		Feds:    mongo.NewFedRepo(db),
		Gban:    mongo.NewGbanSettingRepo(db),
		Staff:   mongo.NewStaffRepo(db),
		Session: mongo.NewSessionRepo(db),
	}

	b := bot.New(cfg, client, bundle, repos, rds, redis.NewRateLimiter(rds), log)
	if err := b.Register(plugins.All(b)...); err != nil {
		return fmt.Errorf("register plugins: %w", err)
	}

	server := web.NewServer(cfg.Web, web.Deps{
		Mongo:     db,
		Redis:     rds,
		Chats:     repos.Chats,
		Users:     repos.Users,
		StartedAt: b.StartedAt,
	}, log)

	scheduler := sched.New(cfg.Scheduler, repos.Chats, repos.Users, repos.Session, b.StartedAt, log)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	defer scheduler.Stop()

	errCh := make(chan error, 2)
	go func() {
		if err := server.Start(ctx); err != nil {
			errCh <- fmt.Errorf("web server: %w", err)
		}
	}()
	go func() {
		if err := b.Run(ctx); err != nil {
			errCh <- fmt.Errorf("bot: %w", err)
		}
		errCh <- nil
	}()

	// The bot goroutine reports nil once polling has fully drained, so
	// waiting here keeps shutdown orderly.
	if err := <-errCh; err != nil {
		return err
	}

	log.Info().Msg("shutting down")
	return nil
}
