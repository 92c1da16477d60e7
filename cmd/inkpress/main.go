// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Command inkpress serves the blog: public pages, the admin console and,
// when object storage is configured, scheduled content backups.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"inkpress/internal/backup"
	"inkpress/internal/blog"
	"inkpress/internal/cache"
	"inkpress/internal/config"
	"inkpress/internal/database"
	"inkpress/internal/handlers"
	"inkpress/internal/middleware"
	"inkpress/internal/render"
	"inkpress/internal/router"
	"inkpress/internal/session"
	"inkpress/internal/storage"
	"inkpress/internal/store"
)

const (
	// Sign-in attempts allowed per client IP per window.
	loginRateLimit  = 10
	loginRateWindow = 15 * time.Minute

	backupTimeout   = 10 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("inkpress exited", "error", err)
		os.Exit(1)
	}
}

func setupLogging(dev bool) {
	level := slog.LevelInfo
	if dev {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.IsDev())
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			return err
		}
	}

	kv, err := cache.Connect(ctx, cache.ValkeyOptions{
		Host:     cfg.ValkeyHost,
		Port:     cfg.ValkeyPort,
		Password: cfg.ValkeyPassword,
		DB:       cfg.ValkeyDB,
	})
	if err != nil {
		return err
	}
	defer kv.Close()

	// Secure cookies and HSTS everywhere except local development.
	secure := !cfg.IsDev()
	sessions := session.NewStore(kv, secure)
	defer sessions.Subscribe(func(e session.Event) {
		slog.Info("admin session event", "event", e.Kind, "user_id", e.UserID, "email", e.Email)
	})()

	renderer, err := render.New(cfg.SiteTitle)
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	users := store.NewUserStore(db)
	posts := store.NewPostStore(db)
	categories := store.NewCategoryStore(db)
	commentRows := store.NewCommentStore(db)

	commentCache := cache.NewCommentCache(kv, cfg.CommentCacheTTL)
	comments := blog.NewComments(posts, commentRows, commentCache)
	reader := blog.NewReader(posts, categories, comments)
	admin := blog.NewAdmin(posts, categories, commentRows, commentCache)

	scheduler, err := scheduleBackups(cfg, db)
	if err != nil {
		return err
	}

	commentLimiter := middleware.NewRateLimiter("comments", cfg.CommentRateLimit, cfg.CommentRateWindow)
	defer commentLimiter.Stop()
	loginLimiter := middleware.NewRateLimiter("login", loginRateLimit, loginRateWindow)
	defer loginLimiter.Stop()

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.New(router.Deps{
			Sessions:       sessions,
			Public:         handlers.NewPublic(renderer, reader, comments),
			Admin:          handlers.NewAdmin(renderer, admin, comments),
			Auth:           handlers.NewAuth(renderer, sessions, users),
			CommentLimiter: commentLimiter,
			LoginLimiter:   loginLimiter,
			Secure:         secure,
			Checks:         healthChecks(db.PingContext, kv),
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)

		// Let a running backup finish within the same grace period.
		select {
		case <-scheduler.Stop().Done():
		case <-sctx.Done():
			slog.Warn("backup still running at shutdown")
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// scheduleBackups starts the cron scheduler. Without S3 credentials and a
// schedule it is returned idle so shutdown can treat both cases alike.
func scheduleBackups(cfg *config.Config, db *sql.DB) (*cron.Cron, error) {
	scheduler := cron.New()
	if !cfg.BackupEnabled() {
		slog.Warn("backups disabled, set S3_* and BACKUP_SCHEDULE to enable")
		return scheduler, nil
	}

	bucket, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("backup storage: %w", err)
	}
	backups := backup.New(backup.DBSource{DB: db}, bucket, cfg.BackupKeep)

	_, err = scheduler.AddFunc(cfg.BackupSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
		defer cancel()
		if _, err := backups.Run(ctx); err != nil {
			slog.Error("scheduled backup failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("BACKUP_SCHEDULE %q: %w", cfg.BackupSchedule, err)
	}

	scheduler.Start()
	slog.Info("backups scheduled", "schedule", cfg.BackupSchedule, "bucket", cfg.S3Bucket, "keep", cfg.BackupKeep)
	return scheduler, nil
}

func healthChecks(pingDB router.HealthCheck, kv *redis.Client) map[string]router.HealthCheck {
	return map[string]router.HealthCheck{
		"database": pingDB,
		"valkey": func(ctx context.Context) error {
			return kv.Ping(ctx).Err()
		},
	}
}
