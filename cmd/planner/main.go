package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"planner/internal/config"
	"planner/internal/remote"
	"planner/internal/schedule"
	"planner/internal/server"
	"planner/internal/storage/sqlite"
	"planner/internal/util"
)

func main() {
	configFlag := flag.String("config", util.EnvOrDefault("PLANNER_CONFIG", ""), "Path to YAML config file")
	addrFlag := flag.String("addr", util.EnvOrDefault("PLANNER_ADDR", ""), "HTTP listen address")
	dbFlag := flag.String("db", util.EnvOrDefault("PLANNER_DB_PATH", ""), "Path to sqlite cache file")
	staticFlag := flag.String("static", util.EnvOrDefault("PLANNER_STATIC_DIR", ""), "Directory with built frontend")
	remoteFlag := flag.String("remote", util.EnvOrDefault("PLANNER_REMOTE_URL", ""), "Sync server base URL (empty = local only)")
	userFlag := flag.String("user", util.EnvOrDefault("PLANNER_USER_ID", ""), "User identity for remote sync (empty = anonymous)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configFlag)
	if err != nil {
		logger.Error("unable to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}
	if *dbFlag != "" {
		cfg.DBPath = *dbFlag
	}
	if *staticFlag != "" {
		cfg.StaticDir = *staticFlag
	}
	if *remoteFlag != "" {
		cfg.Remote.BaseURL = *remoteFlag
	}
	if *userFlag != "" {
		cfg.Remote.UserID = *userFlag
	}

	store, err := sqlite.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("unable to open cache database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	var channel schedule.SyncChannel
	if cfg.Remote.BaseURL != "" {
		channel = remote.NewClient(cfg.Remote.BaseURL, logger)
	}

	repo := schedule.NewRepository(store, channel, logger)
	repo.SetWriteTimeout(time.Duration(cfg.Remote.WriteTimeout))
	defer repo.Close()

	ctx := context.Background()
	if err := repo.Load(ctx); err != nil {
		logger.Error("unable to load task cache", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Remote.UserID != "" {
		if err := repo.SetIdentity(ctx, cfg.Remote.UserID); err != nil {
			logger.Error("unable to start remote sync", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("remote sync active", slog.String("user", cfg.Remote.UserID))
	} else {
		logger.Info("running anonymous, cache only")
	}

	srv := server.New(repo, logger, cfg.StaticDir)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
