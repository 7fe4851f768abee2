package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/withalice/portal/internal/authz"
)

// Worker wraps the Asynq server processing the grant durability queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Persister *GrantPersister
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Persister == nil {
		return nil, errors.New("worker: grant persister required")
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskGrantPersist, cfg.Persister.HandlePersist)
	mux.HandleFunc(TaskGrantRevoke, cfg.Persister.HandleRevoke)

	return &Worker{server: srv, mux: mux, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Client submits grant mutations to the queue. Satisfies the
// admin.GrantSink contract; enqueue failures are logged, not surfaced,
// because the in-memory ledger already accepted the mutation.
type Client struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt, logger *slog.Logger) *Client {
	return &Client{client: asynq.NewClient(redisOpts), logger: logger}
}

// GrantAccepted enqueues persistence of an accepted grant.
func (c *Client) GrantAccepted(ctx context.Context, identity string, feature authz.Feature) {
	c.enqueue(ctx, TaskGrantPersist, identity, feature)
}

// RevokeAccepted enqueues removal of a revoked grant.
func (c *Client) RevokeAccepted(ctx context.Context, identity string, feature authz.Feature) {
	c.enqueue(ctx, TaskGrantRevoke, identity, feature)
}

func (c *Client) enqueue(ctx context.Context, taskType, identity string, feature authz.Feature) {
	payload := GrantPayload{Identity: identity, Feature: string(feature)}
	var (
		task *asynq.Task
		err  error
	)
	switch taskType {
	case TaskGrantPersist:
		task, err = NewGrantPersistTask(payload)
	default:
		task, err = NewGrantRevokeTask(payload)
	}
	if err != nil {
		c.logger.Error("build grant task", slog.Any("error", err))
		return
	}
	if _, err := c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5)); err != nil {
		c.logger.Error("enqueue grant task",
			slog.String("task", taskType),
			slog.String("identity", identity),
			slog.Any("error", err),
		)
	}
}

// Close releases the underlying Asynq client.
func (c *Client) Close() error {
	return c.client.Close()
}
