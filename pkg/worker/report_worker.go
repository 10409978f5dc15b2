package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/feichai0017/invoice-aggregator/internal/apperr"
	"github.com/feichai0017/invoice-aggregator/internal/service/report"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
	"github.com/feichai0017/invoice-aggregator/pkg/queue"
)

// ReportWorker executes report:warm tasks, one job step per task.
type ReportWorker struct {
	BaseWorker
	svc       report.Reporter
	queue     queue.Queue
	scheduler *asynq.Scheduler
	config    *Config
}

func NewReportWorker(cfg *Config, svc report.Reporter, q queue.Queue, log logger.Logger) (*ReportWorker, error) {
	if cfg.Queues == nil {
		cfg.Queues = queue.Queues
	}
	server := asynq.NewServer(
		cfg.Redis,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &ReportWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   log.Named("worker"),
			stopChan: make(chan struct{}),
		},
		svc:    svc,
		queue:  q,
		config: cfg,
	}

	if cfg.Schedule != "" {
		s, err := newScheduler(cfg)
		if err != nil {
			return nil, err
		}
		w.scheduler = s
	}

	w.registerHandlers()
	return w, nil
}

func newScheduler(cfg *Config) (*asynq.Scheduler, error) {
	s := asynq.NewScheduler(cfg.Redis, &asynq.SchedulerOpts{})
	t, err := queue.NewAsynqTask(&queue.Task{
		Type:     queue.TaskTypeReportWarm,
		Priority: 2,
		Payload:  queue.WarmPayload{Chain: true, Origin: "schedule"},
	}, queue.TaskOptions{MaxRetries: 3, Retention: cfg.Retention})
	if err != nil {
		return nil, err
	}
	if _, err := s.Register(cfg.Schedule, t); err != nil {
		return nil, fmt.Errorf("failed to register schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

func (w *ReportWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeReportWarm, w.handleWarm)
}

func (w *ReportWorker) handleWarm(ctx context.Context, t *asynq.Task) error {
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %v: %w", err, asynq.SkipRetry)
	}

	ctx = logger.WithRequestID(ctx, task.ID)
	log := logger.FromContext(ctx, w.logger)
	log.Info("Processing warm task",
		logger.Int("step", task.Payload.Step),
		logger.String("origin", task.Payload.Origin),
	)

	res, err := w.svc.Warm(ctx)
	if err != nil {
		log.Error("Warm step failed",
			logger.String("kind", string(apperr.KindOf(err))),
			logger.Error(err),
		)
		// retrying cannot fix a bad configuration
		if apperr.Is(err, apperr.KindConfiguration) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if rw := t.ResultWriter(); rw != nil {
		if data, err := json.Marshal(res); err == nil {
			if _, err := rw.Write(data); err != nil {
				log.Error("Failed to write task result", logger.Error(err))
			}
		}
	}

	if res.Done || !task.Payload.Chain || !w.config.Chain {
		log.Info("Warm task finished",
			logger.Bool("done", res.Done),
			logger.Int("chunk", res.Chunk),
			logger.Int("chunks", res.Chunks),
		)
		return nil
	}
	return w.enqueueNext(ctx, &task)
}

func (w *ReportWorker) enqueueNext(ctx context.Context, prev *queue.Task) error {
	next := &queue.Task{
		ID:        uuid.New().String(),
		Type:      queue.TaskTypeReportWarm,
		Priority:  prev.Priority,
		Payload:   queue.WarmPayload{Chain: true, Step: prev.Payload.Step + 1, Origin: prev.Payload.Origin},
		CreatedAt: time.Now(),
		ProcessIn: w.config.ChainDelay,
	}
	if err := w.queue.Enqueue(ctx, next); err != nil {
		w.logger.Error("Failed to enqueue next warm step",
			logger.String("prev_task_id", prev.ID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to enqueue next step: %w", err)
	}
	w.logger.Debug("Enqueued next warm step",
		logger.String("task_id", next.ID),
		logger.Int("step", next.Payload.Step),
	)
	return nil
}

func (w *ReportWorker) Start(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker server: %w", err)
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.server.Shutdown()
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		w.onStop = w.scheduler.Shutdown
		w.logger.Info("Scheduler started", logger.String("schedule", w.config.Schedule))
	}

	go func() {
		select {
		case <-ctx.Done():
			w.Stop()
		case <-w.stopChan:
		}
	}()
	return nil
}
