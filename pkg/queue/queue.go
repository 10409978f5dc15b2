package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/invoice-aggregator/config"
)

const (
	TaskTypeReportWarm = "report:warm"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// DefaultRetention keeps finished tasks, and their results, inspectable.
const DefaultRetention = 24 * time.Hour

var ErrTaskNotFound = errors.New("task not found in any queue")

// Queues lists the queue weights the worker serves.
var Queues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error)
	Close() error
}

// Task is one warm invocation request.
type Task struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Priority  int           `json:"priority"`
	Payload   WarmPayload   `json:"payload"`
	CreatedAt time.Time     `json:"createdAt"`
	ProcessIn time.Duration `json:"-"`
}

// WarmPayload tracks a chain of warm invocations.
type WarmPayload struct {
	// Chain asks the worker to enqueue the next step while the job is not done.
	Chain  bool   `json:"chain"`
	Step   int    `json:"step"`
	Origin string `json:"origin,omitempty"`
}

type TaskStatus struct {
	TaskID     string          `json:"taskId"`
	Status     string          `json:"status"`
	Queue      string          `json:"queue"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt,omitempty"`
}

type AsynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	config    *QueueConfig
}

type QueueConfig struct {
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	MaxRetries      int
	ProcessTimeout  time.Duration
	RetentionPeriod time.Duration
}

// TaskOptions are the asynq settings applied to every enqueued task.
type TaskOptions struct {
	MaxRetries int
	Timeout    time.Duration
	// Retention is how long a completed task stays visible to GetTaskStatus.
	// Zero means DefaultRetention.
	Retention time.Duration
}

// RedisOpt is the asynq connection shared by the queue, worker and scheduler.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// GetQueue builds the queue from the application configuration.
func GetQueue(cfg *config.Config) (*AsynqQueue, error) {
	return NewAsynqQueue(&QueueConfig{
		RedisAddr:      cfg.Redis.Addr,
		RedisPassword:  cfg.Redis.Password,
		RedisDB:        cfg.Redis.DB,
		MaxRetries:      3,
		ProcessTimeout:  cfg.Worker.Timeout,
		RetentionPeriod: cfg.Worker.Retention,
	})
}

func NewAsynqQueue(cfg *QueueConfig) (*AsynqQueue, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	return &AsynqQueue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		config:    cfg,
	}, nil
}

// NewAsynqTask converts a Task into an asynq task with its options.
func NewAsynqTask(task *Task, opts TaskOptions) (*asynq.Task, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	return asynq.NewTask(task.Type, payload, taskOptions(task, opts)...), nil
}

func taskOptions(task *Task, opts TaskOptions) []asynq.Option {
	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	out := []asynq.Option{
		asynq.MaxRetry(opts.MaxRetries),
		asynq.Queue(QueueFor(task.Priority)),
		asynq.Retention(retention),
	}
	if task.ID != "" {
		out = append(out, asynq.TaskID(task.ID))
	}
	if opts.Timeout > 0 {
		out = append(out, asynq.Timeout(opts.Timeout))
	}
	if task.ProcessIn > 0 {
		out = append(out, asynq.ProcessIn(task.ProcessIn))
	}
	return out
}

// QueueFor maps a task priority to a queue name.
func QueueFor(priority int) string {
	switch priority {
	case 1:
		return QueueCritical
	case 2:
		return QueueDefault
	default:
		return QueueLow
	}
}

func (q *AsynqQueue) Enqueue(ctx context.Context, task *Task) error {
	t, err := NewAsynqTask(task, TaskOptions{
		MaxRetries: q.config.MaxRetries,
		Timeout:    q.config.ProcessTimeout,
		Retention:  q.config.RetentionPeriod,
	})
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	task.ID = info.ID
	return nil
}

// GetTaskStatus looks the task up in every queue.
func (q *AsynqQueue) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	for _, name := range []string{QueueCritical, QueueDefault, QueueLow} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := q.inspector.GetTaskInfo(name, taskID)
		if err == nil {
			return convertAsynqStatus(info), nil
		}
		if !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, fmt.Errorf("failed to inspect task: %w", err)
		}
	}
	return nil, ErrTaskNotFound
}

func (q *AsynqQueue) Close() error {
	if err := q.inspector.Close(); err != nil {
		return err
	}
	return q.client.Close()
}

func convertAsynqStatus(info *asynq.TaskInfo) *TaskStatus {
	status := &TaskStatus{
		TaskID:    info.ID,
		Queue:     info.Queue,
		StartedAt: info.NextProcessAt,
		Result:    info.Result,
	}

	switch info.State {
	case asynq.TaskStatePending, asynq.TaskStateScheduled:
		status.Status = "pending"
	case asynq.TaskStateActive:
		status.Status = "running"
	case asynq.TaskStateCompleted:
		status.Status = "completed"
		status.FinishedAt = info.CompletedAt
	case asynq.TaskStateRetry:
		status.Status = "retrying"
		status.Error = info.LastErr
	case asynq.TaskStateArchived:
		status.Status = "failed"
		status.Error = info.LastErr
	default:
		status.Status = info.State.String()
	}
	if len(status.Result) == 0 {
		status.Result = nil
	}
	return status
}
