package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/p-n-ai/pai-content/internal/generation"
	"github.com/p-n-ai/pai-content/internal/normalize"
	"github.com/p-n-ai/pai-content/internal/platform/config"
	"github.com/p-n-ai/pai-content/internal/saga"
	"github.com/p-n-ai/pai-content/internal/store"
)

const planBody = `{
	"user_id": "user-1",
	"plan": {
		"skillName": "Go",
		"durationWeeks": 1,
		"dailyTimeMinutes": 20,
		"skillLevelTarget": "beginner",
		"sections": [
			{"title": "Basics", "days": [
				{"dayNumber": 1, "title": "Setup", "isActionDay": false, "objectives": ["install go"]},
				{"dayNumber": 2, "title": "Build", "isActionDay": true, "objectives": ["ship"]}
			]}
		]
	}
}`

const lessonBody = `{
	"title": "Setup",
	"isActionDay": false,
	"objectives": ["install go"],
	"mainContent": {
		"title": "Install",
		"textContent": "Download it.",
		"funFact": "Gophers dig.",
		"keyConcepts": [{"term": "toolchain", "definition": "compiler and friends"}]
	},
	"exercises": [
		{"type": "quiz_truefalse", "statement": "Go is compiled.", "answer": "true"},
		{"type": "hologram", "question": "?"}
	]
}`

const actionBody = `{
	"title": "Build",
	"isActionDay": true,
	"objectives": ["ship"],
	"actionTask": {
		"title": "Ship a CLI",
		"challengeDescription": "Write and run a CLI.",
		"steps": ["write main.go", "go run ."],
		"successCriteria": ["prints hello"]
	}
}`

type failingCheck struct{ err error }

func (f failingCheck) HealthCheck(context.Context) error { return f.err }

func newTestAPI(t *testing.T) (*api, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	registry := prometheus.NewRegistry()
	return &api{
		store:    s,
		decoder:  normalize.NewDecoder(normalize.DefaultRules()),
		saga:     saga.NewOrchestrator(s, saga.NewMetrics(registry)),
		claims:   generation.NewMemoryClaimer(time.Minute),
		registry: registry,
		checks:   map[string]healthChecker{"store": s},
	}, s
}

func do(t *testing.T, mux http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, body %q", err, rec.Body.String())
	}
	return out
}

// planDayIDs creates the test plan and returns the ids of its lesson day
// and its action day.
func planDayIDs(t *testing.T, mux http.Handler, s *store.MemoryStore) (string, string) {
	t.Helper()
	rec := do(t, mux, http.MethodPost, "/v1/plans", planBody, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /v1/plans status = %d, body %s", rec.Code, rec.Body.String())
	}
	planID, _ := decode(t, rec)["id"].(string)
	days, err := s.Find(t.Context(), store.DayContent, "plan_id", planID)
	if err != nil || len(days) != 2 {
		t.Fatalf("Find(day_content) = %d rows, %v", len(days), err)
	}
	return days[0].ID, days[1].ID
}

// firstDayID creates the test plan and returns the id of its day 1.
func firstDayID(t *testing.T, mux http.Handler, s *store.MemoryStore) string {
	t.Helper()
	id, _ := planDayIDs(t, mux, s)
	return id
}

func TestHealthEndpoints(t *testing.T) {
	a, _ := newTestAPI(t)
	mux := newMux(a)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, http.MethodGet, tt.path, "", nil)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestReadyz_FailingDependency(t *testing.T) {
	a, _ := newTestAPI(t)
	a.checks["cache"] = failingCheck{err: errors.New("connection refused")}

	rec := do(t, newMux(a), http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("body = %s, want the failing check", rec.Body.String())
	}
}

func TestCreatePlan(t *testing.T) {
	a, s := newTestAPI(t)
	mux := newMux(a)

	rec := do(t, mux, http.MethodPost, "/v1/plans", planBody, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["all_succeeded"] != true {
		t.Errorf("all_succeeded = %v, want true", body["all_succeeded"])
	}
	if body["total_days"] != float64(2) {
		t.Errorf("total_days = %v, want 2", body["total_days"])
	}
	if s.Count(store.LearningPlan) != 1 || s.Count(store.PlanSection) != 1 {
		t.Error("plan graph not persisted")
	}

	metrics := do(t, mux, http.MethodGet, "/metrics", "", nil)
	if !strings.Contains(metrics.Body.String(), "content_saga_runs_total") {
		t.Error("/metrics does not expose saga counters")
	}
}

func TestCreatePlan_Rejected(t *testing.T) {
	a, s := newTestAPI(t)
	mux := newMux(a)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"not json", `{`, http.StatusBadRequest},
		{"no user", `{"plan": {}}`, http.StatusBadRequest},
		{"missing skill name", `{"user_id": "u", "plan": {"durationWeeks": 1, "dailyTimeMinutes": 10, "sections": []}}`, http.StatusUnprocessableEntity},
		{"plan is an array", `{"user_id": "u", "plan": []}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, http.MethodPost, "/v1/plans", tt.body, nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
	if s.Count(store.LearningPlan) != 0 {
		t.Error("rejected plans must not be persisted")
	}
}

func TestCreatePlan_IdempotencyKey(t *testing.T) {
	a, s := newTestAPI(t)
	mux := newMux(a)
	header := map[string]string{"Idempotency-Key": "abc"}

	if rec := do(t, mux, http.MethodPost, "/v1/plans", planBody, header); rec.Code != http.StatusCreated {
		t.Fatalf("first status = %d", rec.Code)
	}
	if rec := do(t, mux, http.MethodPost, "/v1/plans", planBody, header); rec.Code != http.StatusConflict {
		t.Errorf("replay status = %d, want 409", rec.Code)
	}
	if got := s.Count(store.LearningPlan); got != 1 {
		t.Errorf("Count(learning_plan) = %d, want 1", got)
	}
}

func TestDayContent(t *testing.T) {
	a, s := newTestAPI(t)
	mux := newMux(a)
	dayID := firstDayID(t, mux, s)

	rec := do(t, mux, http.MethodPost, "/v1/days/"+dayID+"/content", lessonBody, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["exercises"] != float64(1) || body["dropped_exercises"] != float64(1) {
		t.Errorf("exercises = %v, dropped = %v; want 1, 1", body["exercises"], body["dropped_exercises"])
	}
	if s.Count(store.QuizOption) != 2 || s.Count(store.ContentBlock) != 1 {
		t.Error("exercise graph not persisted")
	}

	again := do(t, mux, http.MethodPost, "/v1/days/"+dayID+"/content", lessonBody, nil)
	if again.Code != http.StatusConflict {
		t.Errorf("second status = %d, want 409", again.Code)
	}
}

func TestDayContent_ActionDay(t *testing.T) {
	a, s := newTestAPI(t)
	mux := newMux(a)
	_, actionID := planDayIDs(t, mux, s)

	rec := do(t, mux, http.MethodPost, "/v1/days/"+actionID+"/content", actionBody, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["total_xp"] != float64(75) {
		t.Errorf("total_xp = %v, want 75", body["total_xp"])
	}
	if s.Count(store.ActionTask) != 1 || s.Count(store.ActionStep) != 2 {
		t.Error("action task graph not persisted")
	}
}

func TestDayContent_ActionDayWithoutTask(t *testing.T) {
	a, s := newTestAPI(t)
	mux := newMux(a)
	_, actionID := planDayIDs(t, mux, s)

	rec := do(t, mux, http.MethodPost, "/v1/days/"+actionID+"/content", `{"title": "Build", "isActionDay": true, "objectives": ["ship"]}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "action_task") {
		t.Errorf("body = %s, want it to mention action_task", rec.Body.String())
	}
	if s.Count(store.ActionTask) != 0 {
		t.Error("an action day without its task must not be persisted")
	}

	// The rejected request must not hold the day's claim.
	if rec := do(t, mux, http.MethodPost, "/v1/days/"+actionID+"/content", actionBody, nil); rec.Code != http.StatusCreated {
		t.Errorf("complete day status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
}

func TestRequestBodyTooLarge(t *testing.T) {
	a, s := newTestAPI(t)
	mux := newMux(a)
	dayID := firstDayID(t, mux, s)

	big := `{"title": "` + strings.Repeat("x", maxBodyBytes) + `"}`
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/plans"},
		{http.MethodPost, "/v1/days/" + dayID + "/content"},
		{http.MethodPatch, "/v1/days/" + dayID + "/status"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(t, mux, tt.method, tt.path, big, nil)
			if rec.Code != http.StatusRequestEntityTooLarge {
				t.Errorf("status = %d, want 413", rec.Code)
			}
		})
	}
}

func TestDayContent_Errors(t *testing.T) {
	a, s := newTestAPI(t)
	mux := newMux(a)
	dayID, actionID := planDayIDs(t, mux, s)

	tests := []struct {
		name       string
		day        string
		body       string
		wantStatus int
		wantInBody string
	}{
		{"unknown day", "nope", lessonBody, http.StatusNotFound, "not found"},
		{"missing main content", dayID, `{"title": "Setup", "isActionDay": false, "mainContent": null}`, http.StatusUnprocessableEntity, "main_content"},
		{"missing title", dayID, `{"isActionDay": false}`, http.StatusUnprocessableEntity, "title"},
		{"action day without task", actionID, `{"title": "Build", "isActionDay": true, "objectives": ["ship"]}`, http.StatusUnprocessableEntity, "action_task"},
		{"lesson body on action day", actionID, lessonBody, http.StatusUnprocessableEntity, "is_action_day"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, http.MethodPost, "/v1/days/"+tt.day+"/content", tt.body, nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantInBody) {
				t.Errorf("body = %s, want it to mention %q", rec.Body.String(), tt.wantInBody)
			}
		})
	}
}

func TestDayStatus(t *testing.T) {
	a, s := newTestAPI(t)
	mux := newMux(a)
	dayID := firstDayID(t, mux, s)

	tests := []struct {
		name       string
		day        string
		body       string
		wantStatus int
	}{
		{"completed", dayID, `{"status": "COMPLETED"}`, http.StatusOK},
		{"unknown status", dayID, `{"status": "DONE"}`, http.StatusUnprocessableEntity},
		{"unknown day", "nope", `{"status": "COMPLETED"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, http.MethodPatch, "/v1/days/"+tt.day+"/status", tt.body, nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}

	row, err := s.Get(t.Context(), store.DayContent, dayID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if row.Data["completion_status"] != "COMPLETED" {
		t.Errorf("completion_status = %v, want COMPLETED", row.Data["completion_status"])
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		cfg       config.LogConfig
		wantDebug bool
	}{
		{config.LogConfig{Level: "debug", Format: "text"}, true},
		{config.LogConfig{Level: "warn", Format: "json"}, false},
		{config.LogConfig{Level: "bogus", Format: "json"}, false},
	}

	for _, tt := range tests {
		l := newLogger(tt.cfg)
		if got := l.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
			t.Errorf("newLogger(%+v) debug enabled = %v, want %v", tt.cfg, got, tt.wantDebug)
		}
	}
}
