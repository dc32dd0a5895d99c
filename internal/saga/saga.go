// Package saga persists a normalized content graph into a store one entity
// at a time. Runs are sequential and non-atomic: a failed step is recorded
// and its dependents are skipped, while independent siblings still run.
// Nothing is retried or rolled back.
package saga

import (
	"context"
	"errors"
	"log/slog"

	"github.com/p-n-ai/pai-content/internal/content"
	"github.com/p-n-ai/pai-content/internal/store"
)

var errEmptyID = errors.New("store returned an empty id")

// Orchestrator runs persistence sagas against a store.
type Orchestrator struct {
	store   store.Store
	metrics *Metrics
}

// NewOrchestrator creates an orchestrator. metrics may be nil.
func NewOrchestrator(s store.Store, metrics *Metrics) *Orchestrator {
	return &Orchestrator{store: s, metrics: metrics}
}

// parent is the row a child's foreign key points at. An empty id means the
// parent was never created.
type parent struct {
	entity store.Entity
	key    string
	id     string
}

func (o *Orchestrator) create(ctx context.Context, t *Tracker, entity store.Entity, path string, p *parent, data store.Data) string {
	if p != nil {
		if p.id == "" {
			err := &content.MissingDependencyError{Entity: string(entity), Parent: string(p.entity)}
			t.record(Outcome{Entity: entity, Path: path, Status: StatusSkipped, Err: err})
			return ""
		}
		data[p.key] = p.id
	}

	id, err := o.store.Create(ctx, entity, data)
	if err == nil && id == "" {
		err = errEmptyID
	}
	if err != nil {
		perr := &content.PersistenceError{Entity: string(entity), Op: "create", Err: err}
		t.record(Outcome{Entity: entity, Path: path, Status: StatusFailed, Err: perr})
		slog.Warn("saga step failed", "entity", entity, "path", path, "error", err)
		return ""
	}

	t.record(Outcome{Entity: entity, Path: path, ID: id, Status: StatusCreated})
	return id
}

func (o *Orchestrator) update(ctx context.Context, t *Tracker, entity store.Entity, id string, data store.Data) bool {
	ok, err := o.store.Update(ctx, entity, id, data)
	if err == nil && !ok {
		err = store.ErrNotFound
	}
	if err != nil {
		perr := &content.PersistenceError{Entity: string(entity), Op: "update", Err: err}
		t.record(Outcome{Entity: entity, ID: id, Status: StatusFailed, Err: perr})
		slog.Warn("saga step failed", "entity", entity, "id", id, "error", err)
		return false
	}
	t.record(Outcome{Entity: entity, ID: id, Status: StatusUpdated})
	return true
}

func (o *Orchestrator) finish(kind string, t *Tracker, rootID string) Result {
	res := t.Result(rootID)
	o.metrics.run(kind, res.AllSucceeded)
	if !res.AllSucceeded {
		slog.Warn("saga completed with gaps", "kind", kind, "root_id", rootID, "failures", len(res.Failures()))
	} else {
		slog.Info("saga completed", "kind", kind, "root_id", rootID, "steps", len(res.Outcomes))
	}
	return res
}
