package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/withalice/portal/internal/authz"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGrantPersist writes an accepted grant to the durable store.
	TaskGrantPersist = "grants:persist"
	// TaskGrantRevoke removes a revoked grant from the durable store.
	TaskGrantRevoke = "grants:revoke"
)

// GrantPayload identifies one (identity, feature) pair.
type GrantPayload struct {
	Identity string `json:"identity"`
	Feature  string `json:"feature"`
}

// NewGrantPersistTask constructs a persist task for an accepted grant.
func NewGrantPersistTask(payload GrantPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGrantPersist, data), nil
}

// NewGrantRevokeTask constructs a revoke task for a removed grant.
func NewGrantRevokeTask(payload GrantPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGrantRevoke, data), nil
}

// GrantWriter is the durable side of the ledger pipeline, implemented by
// authz.GrantStore.
type GrantWriter interface {
	Insert(ctx context.Context, identity string, feature authz.Feature) error
	Delete(ctx context.Context, identity string, feature authz.Feature) error
}

// GrantPersister applies grant mutations to the durable store. The store
// insert is idempotent, so redelivered tasks are harmless.
type GrantPersister struct {
	store  GrantWriter
	logger *slog.Logger
}

// NewGrantPersister constructs a GrantPersister.
func NewGrantPersister(store GrantWriter, logger *slog.Logger) *GrantPersister {
	return &GrantPersister{store: store, logger: logger}
}

// HandlePersist processes TaskGrantPersist tasks.
func (p *GrantPersister) HandlePersist(ctx context.Context, t *asynq.Task) error {
	payload, feature, err := decodeGrantPayload(t)
	if err != nil {
		return asynq.SkipRetry
	}
	if err := p.store.Insert(ctx, payload.Identity, feature); err != nil {
		p.logger.Error("persist grant", slog.Any("error", err))
		return err
	}
	return nil
}

// HandleRevoke processes TaskGrantRevoke tasks.
func (p *GrantPersister) HandleRevoke(ctx context.Context, t *asynq.Task) error {
	payload, feature, err := decodeGrantPayload(t)
	if err != nil {
		return asynq.SkipRetry
	}
	if err := p.store.Delete(ctx, payload.Identity, feature); err != nil {
		p.logger.Error("revoke grant", slog.Any("error", err))
		return err
	}
	return nil
}

func decodeGrantPayload(t *asynq.Task) (GrantPayload, authz.Feature, error) {
	var payload GrantPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, "", err
	}
	feature, err := authz.ParseFeature(payload.Feature)
	if err != nil {
		return payload, "", err
	}
	return payload, feature, nil
}
