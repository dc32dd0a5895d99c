package saga

import (
	"github.com/p-n-ai/pai-content/internal/store"
)

// Status is the fate of one saga step.
type Status string

const (
	StatusCreated Status = "created"
	StatusUpdated Status = "updated"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Outcome is one saga step. Path locates the source element in the content
// graph, e.g. "sections[1].days[0]".
type Outcome struct {
	Entity store.Entity
	Path   string
	ID     string
	Status Status
	Err    error
}

// Result summarizes a saga run. When AllSucceeded is false the root exists
// and is usable but some descendants are missing; Outcomes says which.
type Result struct {
	RootID       string
	AllSucceeded bool
	Outcomes     []Outcome
}

// Failures returns the failed and skipped steps.
func (r Result) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed || o.Status == StatusSkipped {
			out = append(out, o)
		}
	}
	return out
}

// Count returns the number of steps on entity with the given status.
func (r Result) Count(entity store.Entity, status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Entity == entity && o.Status == status {
			n++
		}
	}
	return n
}

// Tracker accumulates outcomes for one run. It starts successful and any
// failed or skipped step flips it; nothing aborts the run.
type Tracker struct {
	ok       bool
	outcomes []Outcome
	metrics  *Metrics
}

// NewTracker creates a tracker. metrics may be nil.
func NewTracker(metrics *Metrics) *Tracker {
	return &Tracker{ok: true, metrics: metrics}
}

func (t *Tracker) record(o Outcome) {
	if o.Status == StatusFailed || o.Status == StatusSkipped {
		t.ok = false
	}
	t.outcomes = append(t.outcomes, o)
	t.metrics.step(string(o.Entity), o.Status)
}

// OK reports whether every step so far succeeded.
func (t *Tracker) OK() bool { return t.ok }

// Result returns the run summary rooted at rootID.
func (t *Tracker) Result(rootID string) Result {
	return Result{
		RootID:       rootID,
		AllSucceeded: t.ok,
		Outcomes:     append([]Outcome(nil), t.outcomes...),
	}
}
