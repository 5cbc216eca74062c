package main

import (
	"context"
	"os/signal"
	"syscall"

	"loopchat_backend/internal/app"
	"loopchat_backend/internal/config"
	"loopchat_backend/internal/logger"
)

func main() {
	config.LoadConfig()
	logger.Init(config.GetConfig().Server.Env)

	a, err := app.New()
	if err != nil {
		logger.Fatal("failed to build application", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Fatal("server exited", "error", err)
	}
}
