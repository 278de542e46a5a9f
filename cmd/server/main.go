package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/peakform-next/internal/app"
	"github.com/peakform-next/internal/config"
	"github.com/peakform-next/internal/logger"
	"github.com/peakform-next/internal/models"
)

const banner = `
  ____  _____    _    _  _______ ___  ____  __  __
 |  _ \| ____|  / \  | |/ /  ___/ _ \|  _ \|  \/  |
 | |_) |  _|   / _ \ | ' /| |_ | | | | |_) | |\/| |
 |  __/| |___ / ___ \| . \|  _|| |_| |  _ <| |  | |
 |_|   |_____/_/   \_\_|\_\_|   \___/|_| \_\_|  |_|
`

func main() {
	mode := flag.String("mode", app.ModeAll, "run mode: all / api / worker")
	flag.Parse()

	fmt.Print(banner + "\n")

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer func() {
		_ = logger.Z().Sync()
	}()

	if cfg.Auth.UserJWTSecret == "" {
		logger.Warnw("user_jwt_secret_empty", "hint", "set PF_AUTH_USER_JWT_SECRET before exposing the API")
	}
	if cfg.Auth.AdminToken == "" {
		logger.Warnw("admin_token_empty", "hint", "admin endpoints are disabled until PF_AUTH_ADMIN_TOKEN is set")
	}

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	}); err != nil {
		logger.Errorw("db_init_failed", "error", err)
		os.Exit(1)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Errorw("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	runner, container, err := app.BuildRunner(cfg, *mode)
	if err != nil {
		logger.Errorw("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = container.QueueClient.Close()
	}()

	logger.Infow("server_starting", "mode", *mode, "addr", cfg.Addr())
	if err := app.RunWithOptions(runner, app.Options{
		Config:  cfg,
		Mode:    *mode,
		Signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
	}); err != nil {
		logger.Errorw("server_exit_with_error", "error", err)
		os.Exit(1)
	}
	logger.Infow("server_stopped")
}
