package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/feichai0017/invoice-aggregator/config"
	"github.com/feichai0017/invoice-aggregator/internal/service/report"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
	"github.com/feichai0017/invoice-aggregator/pkg/queue"
	"github.com/feichai0017/invoice-aggregator/pkg/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(logger.WithConfig(cfg.Log))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.ValidateShared(); err != nil {
		log.Error("Invalid worker configuration", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, store, err := report.GetService(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to create report service", logger.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	q, err := queue.GetQueue(cfg)
	if err != nil {
		log.Error("Failed to create task queue", logger.Error(err))
		os.Exit(1)
	}
	defer q.Close()

	workerCfg := &worker.Config{
		Redis:       queue.RedisOpt(cfg.Redis),
		Concurrency: cfg.Worker.Concurrency,
		Queues:      queue.Queues,
		Chain:       cfg.Worker.Chain,
		ChainDelay:  cfg.Worker.ChainDelay,
		Schedule:    cfg.Worker.Schedule,
		Retention:   cfg.Worker.Retention,
	}

	reportWorker, err := worker.NewReportWorker(workerCfg, svc, q, log)
	if err != nil {
		log.Error("Failed to create report worker", logger.Error(err))
		os.Exit(1)
	}

	if err := reportWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	if err := reportWorker.Stop(); err != nil {
		log.Error("Failed to stop worker", logger.Error(err))
	}
	log.Info("Worker stopped")
}
