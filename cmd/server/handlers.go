package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/p-n-ai/pai-content/internal/content"
	"github.com/p-n-ai/pai-content/internal/generation"
	"github.com/p-n-ai/pai-content/internal/normalize"
	"github.com/p-n-ai/pai-content/internal/saga"
	"github.com/p-n-ai/pai-content/internal/store"
)

const maxBodyBytes = 1 << 20

// healthChecker is anything /readyz should ping.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// api holds the dependencies of the HTTP handlers.
type api struct {
	store    store.Store
	decoder  *normalize.Decoder
	saga     *saga.Orchestrator
	claims   generation.Claimer
	registry *prometheus.Registry
	checks   map[string]healthChecker
}

// newMux creates the HTTP router.
func newMux(a *api) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /v1/plans", a.handleCreatePlan)
	mux.HandleFunc("POST /v1/days/{id}/content", a.handleDayContent)
	mux.HandleFunc("PATCH /v1/days/{id}/status", a.handleDayStatus)
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, c := range a.checks {
		if err := c.HealthCheck(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		slog.Warn("readiness check failed", "checks", failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type createPlanRequest struct {
	UserID string          `json:"user_id"`
	Plan   json.RawMessage `json:"plan"`
}

func (a *api) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	var req createPlanRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.UserID == "" || len(req.Plan) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("user_id and plan are required"))
		return
	}

	plan, err := a.decoder.Plan(req.Plan)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	release, ok := a.claim(w, r, "")
	if !ok {
		return
	}

	res, err := a.saga.PersistPlan(r.Context(), req.UserID, plan)
	if err != nil {
		release()
		slog.Error("persisting plan", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, resultStatus(res), planResponse{
		resultResponse: newResultResponse(res),
		TotalDays:      plan.TotalDays(),
	})
}

func (a *api) handleDayContent(w http.ResponseWriter, r *http.Request) {
	dayID := r.PathValue("id")
	row, err := a.store.Get(r.Context(), store.DayContent, dayID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	day, report, err := a.decoder.Day(body)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	// Only a fully assembled day is persisted here; an action day must
	// arrive with its task.
	if err := normalize.CheckDay(day, normalize.StageFinal); err != nil {
		writeDecodeError(w, err)
		return
	}
	if planned, ok := row.Data["is_action_day"].(bool); ok && planned != day.IsActionDay {
		writeDecodeError(w, &content.StructuralViolationError{Issues: []content.Issue{{
			Path:    "is_action_day",
			Message: fmt.Sprintf("plan outline has %t", planned),
		}}})
		return
	}

	release, ok := a.claim(w, r, "day:"+dayID)
	if !ok {
		return
	}

	res, err := a.saga.PersistDay(r.Context(), dayID, day)
	if err != nil {
		release()
		slog.Error("persisting day", "day_id", dayID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, resultStatus(res), dayResponse{
		resultResponse:     newResultResponse(res),
		TotalXP:            day.TotalXP,
		Exercises:          len(day.Exercises),
		DroppedExercises:   len(report.Drops),
		DiscardedExercises: report.DiscardedExercises,
	})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (a *api) handleDayStatus(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	var req statusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	status := content.CompletionStatus(req.Status)
	if err := saga.UpdateDayStatus(r.Context(), a.store, r.PathValue("id"), status); err != nil {
		if errors.Is(err, content.ErrInvalidPayload) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": r.PathValue("id"), "status": req.Status})
}

// claim guards a write with the request's Idempotency-Key, or with
// fallback when the header is absent. It writes 409 and returns false
// when someone else holds the key.
func (a *api) claim(w http.ResponseWriter, r *http.Request, fallback string) (func(), bool) {
	key := fallback
	if k := r.Header.Get("Idempotency-Key"); k != "" {
		key = "idem:" + k
	}
	if key == "" {
		return func() {}, true
	}

	won, err := a.claims.Claim(r.Context(), key)
	if err != nil {
		slog.Error("claiming idempotency key", "key", key, "error", err)
		writeError(w, http.StatusServiceUnavailable, err)
		return nil, false
	}
	if !won {
		writeError(w, http.StatusConflict, generation.ErrAlreadyClaimed)
		return nil, false
	}
	return func() {
		if err := a.claims.Release(context.WithoutCancel(r.Context()), key); err != nil {
			slog.Warn("releasing idempotency key", "key", key, "error", err)
		}
	}, true
}

type outcomeResponse struct {
	Entity string `json:"entity"`
	Path   string `json:"path,omitempty"`
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type resultResponse struct {
	ID           string            `json:"id"`
	AllSucceeded bool              `json:"all_succeeded"`
	Failures     []outcomeResponse `json:"failures,omitempty"`
}

type planResponse struct {
	resultResponse
	TotalDays int `json:"total_days"`
}

type dayResponse struct {
	resultResponse
	TotalXP            int `json:"total_xp"`
	Exercises          int `json:"exercises"`
	DroppedExercises   int `json:"dropped_exercises"`
	DiscardedExercises int `json:"discarded_exercises"`
}

func newResultResponse(res saga.Result) resultResponse {
	out := resultResponse{ID: res.RootID, AllSucceeded: res.AllSucceeded}
	for _, o := range res.Failures() {
		f := outcomeResponse{Entity: string(o.Entity), Path: o.Path, ID: o.ID, Status: string(o.Status)}
		if o.Err != nil {
			f.Error = o.Err.Error()
		}
		out.Failures = append(out.Failures, f)
	}
	return out
}

// resultStatus is 201 for a complete graph and 207 for a partial one.
func resultStatus(res saga.Result) int {
	if res.AllSucceeded {
		return http.StatusCreated
	}
	return http.StatusMultiStatus
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

// writeBodyError answers 413 for an oversized body and 400 otherwise.
func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	writeError(w, http.StatusBadRequest, err)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if !content.IsValidation(err) {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	body := map[string]any{"error": err.Error()}
	var missing *content.MissingFieldError
	var structural *content.StructuralViolationError
	switch {
	case errors.As(err, &missing):
		body["field"] = missing.Field
	case errors.As(err, &structural):
		issues := make([]map[string]string, 0, len(structural.Issues))
		for _, i := range structural.Issues {
			issues = append(issues, map[string]string{"path": i.Path, "message": i.Message})
		}
		body["issues"] = issues
	}
	writeJSON(w, http.StatusUnprocessableEntity, body)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}
