package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/types"
)

// TaskQueue enqueues processing work onto a durable Cloud Tasks queue that
// HTTP-pushes to the processor. Retry policy (attempt cap, backoff) lives on
// the queue itself, not in this client.
type TaskQueue interface {
	EnqueueProcessTask(ctx context.Context, envelope types.TaskEnvelope) (string, error)
	Close() error
}

type TaskQueueConfig struct {
	Project         string
	Location        string
	Queue           string
	TargetURL       string
	DispatchTimeout time.Duration
}

type taskQueue struct {
	log    *logger.Logger
	client *cloudtasks.Client
	cfg    TaskQueueConfig
	parent string
}

func NewTaskQueue(log *logger.Logger, cfg TaskQueueConfig) (TaskQueue, error) {
	slog := log.With("service", "gcp.TaskQueue")

	if strings.TrimSpace(cfg.Project) == "" || strings.TrimSpace(cfg.Queue) == "" {
		return nil, fmt.Errorf("task queue requires project and queue name")
	}
	if strings.TrimSpace(cfg.TargetURL) == "" {
		return nil, fmt.Errorf("task queue requires a target URL")
	}
	if cfg.Location == "" {
		cfg.Location = "us-central1"
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 30 * time.Minute
	}

	client, err := cloudtasks.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("cloudtasks client: %w", err)
	}

	parent := fmt.Sprintf("projects/%s/locations/%s/queues/%s", cfg.Project, cfg.Location, cfg.Queue)
	slog.Info("Task queue initialized", "queue", parent, "target_url", cfg.TargetURL)

	return &taskQueue{log: slog, client: client, cfg: cfg, parent: parent}, nil
}

func (q *taskQueue) EnqueueProcessTask(ctx context.Context, envelope types.TaskEnvelope) (string, error) {
	if err := envelope.Validate(); err != nil {
		return "", err
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("marshaling task envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	task, err := q.client.CreateTask(ctx, &cloudtaskspb.CreateTaskRequest{
		Parent: q.parent,
		Task: &cloudtaskspb.Task{
			DispatchDeadline: durationpb.New(q.cfg.DispatchTimeout),
			MessageType: &cloudtaskspb.Task_HttpRequest{
				HttpRequest: &cloudtaskspb.HttpRequest{
					HttpMethod: cloudtaskspb.HttpMethod_POST,
					Url:        q.cfg.TargetURL,
					Headers:    map[string]string{"Content-Type": "application/json"},
					Body:       body,
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("creating cloud task: %w", err)
	}

	q.log.Info("Enqueued processing task",
		"task", task.GetName(),
		"document_id", envelope.DocumentID,
		"object_key", envelope.ObjectKey,
	)
	return task.GetName(), nil
}

func (q *taskQueue) Close() error {
	if q == nil || q.client == nil {
		return nil
	}
	return q.client.Close()
}
