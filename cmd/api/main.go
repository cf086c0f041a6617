package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gocompare/internal/config"
	"gocompare/internal/container"
	"gocompare/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gocompare api:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			c.Logger.Warn("failed to close container", zap.Error(err))
		}
	}()

	c.Logger.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.Int("workers", cfg.Analysis.Workers),
		zap.Bool("history", c.Analysis.HistoryEnabled()))

	server := ui.NewServer(c.Analysis, ui.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Metrics:        c.Metrics,
		Logger:         c.Logger.Named("http"),
	})
	return server.Start(ctx, ":"+cfg.Server.Port)
}
