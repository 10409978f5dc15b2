package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/invoice-aggregator/api/handlers"
	"github.com/feichai0017/invoice-aggregator/api/routes"
	"github.com/feichai0017/invoice-aggregator/config"
	"github.com/feichai0017/invoice-aggregator/internal/service/report"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
	"github.com/feichai0017/invoice-aggregator/pkg/queue"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// init logger
	log, err := logger.NewLogger(logger.WithConfig(cfg.Log))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	svc, store, err := report.GetService(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to get report service", logger.Error(err))
	}
	defer store.Close()

	// the queue is optional; without it async warm answers 503
	var q queue.Queue
	if cfg.Redis.Addr != "" {
		aq, err := queue.GetQueue(cfg)
		if err != nil {
			log.Warn("Task queue disabled", logger.Error(err))
		} else {
			defer aq.Close()
			q = aq
		}
	}

	h := handlers.NewHandlers(svc, q, log)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h, log)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		log.Info("Server starting", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}
