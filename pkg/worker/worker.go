package worker

import (
	"context"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/invoice-aggregator/pkg/logger"
)

type Worker interface {
	Start(ctx context.Context) error
	Stop() error
}

type Config struct {
	Redis       asynq.RedisClientOpt
	Concurrency int
	Queues      map[string]int
	// Chain re-enqueues the next warm step, ChainDelay after the current one.
	Chain      bool
	ChainDelay time.Duration
	// Schedule is an optional cron spec that enqueues a warm chain periodically.
	Schedule string
	// Retention keeps scheduled tasks inspectable after they finish.
	Retention time.Duration
}

type BaseWorker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	logger   logger.Logger
	stopOnce sync.Once
	stopChan chan struct{}
	onStop   func()
}

func (w *BaseWorker) Stop() error {
	w.stopOnce.Do(func() {
		if w.onStop != nil {
			w.onStop()
		}
		close(w.stopChan)
		w.server.Shutdown()
	})
	return nil
}
