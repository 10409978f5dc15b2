package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/feichai0017/invoice-aggregator/internal/cli"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel(envOr("LOG_LEVEL", "info")),
		logger.WithEncoding("console"),
		logger.WithOutputPaths([]string{"stderr"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli.CLI{
		Out:        os.Stdout,
		Logger:     log,
		NewService: cli.DefaultFactory,
	}
	if err := c.Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
