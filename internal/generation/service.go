// Package generation drives one day of a learning plan from outline to
// persisted content: it loads the plan and learner, asks a Generator for
// the day, normalizes the answer and hands it to the saga.
//
// The server binary only ingests content that was generated elsewhere.
// Service is for callers that embed this module together with their own
// Generator.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-content/internal/content"
	"github.com/p-n-ai/pai-content/internal/normalize"
	"github.com/p-n-ai/pai-content/internal/saga"
	"github.com/p-n-ai/pai-content/internal/store"
)

var (
	ErrPlanNotFound   = errors.New("learning plan not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrForbidden      = errors.New("plan belongs to another user")
	ErrDayNotFound    = errors.New("day not found in plan")
	ErrAlreadyClaimed = errors.New("day content is already being persisted")
)

// Generator produces raw day payloads. Implementations call a language
// model; this package only consumes their output.
type Generator interface {
	DayContent(ctx context.Context, in DayInput) ([]byte, error)
	ActionTask(ctx context.Context, in DayInput, day *content.DayContent) ([]byte, error)
}

// DayInput is what a Generator needs to write one day. SkillAnalysis is
// the plan's persisted skill analysis row, nil when the plan has none; the
// action task pass uses it for real-world context.
type DayInput struct {
	SkillName          string
	TargetLevel        content.Level
	DailyMinutes       int
	Outline            content.DayOutline
	User               store.Data
	SkillAnalysis      store.Data
	PerformanceSummary string
}

// Request asks for one day of a plan.
type Request struct {
	UserID             string
	PlanID             string
	DayNumber          int
	PerformanceSummary string
}

// Outcome is the result of GenerateDay. Completed is set, and nothing else,
// when the requested day lies past the end of the plan.
type Outcome struct {
	Completed bool
	DayID     string
	Day       *content.DayContent
	Report    normalize.DayReport
	Result    saga.Result
}

// Service generates and persists plan days.
type Service struct {
	store     store.Store
	generator Generator
	decoder   *normalize.Decoder
	saga      *saga.Orchestrator
	claims    Claimer
}

// NewService creates a generation service.
func NewService(s store.Store, g Generator, d *normalize.Decoder, o *saga.Orchestrator, c Claimer) *Service {
	return &Service{store: s, generator: g, decoder: d, saga: o, claims: c}
}

type planView struct {
	row      *store.Row
	days     []store.Row
	analysis store.Data
}

// GenerateDay runs one day through generation, normalization and persistence.
func (s *Service) GenerateDay(ctx context.Context, req Request) (*Outcome, error) {
	plan, user, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}

	if owner := stringValue(plan.row.Data["user_id"]); owner != req.UserID {
		return nil, ErrForbidden
	}
	total := intValue(plan.row.Data["total_days"])
	if total == 0 {
		total = len(plan.days)
	}
	if req.DayNumber > total {
		slog.Info("plan completed", "plan_id", req.PlanID, "day", req.DayNumber)
		return &Outcome{Completed: true}, nil
	}
	if req.DayNumber < 1 {
		return nil, ErrDayNotFound
	}

	dayRow, ok := findDay(plan.days, req.DayNumber)
	if !ok {
		return nil, ErrDayNotFound
	}
	outline := outlineFrom(dayRow)

	in := DayInput{
		SkillName:          stringValue(plan.row.Data["skill_name"]),
		TargetLevel:        normalize.ParseLevel(stringValue(plan.row.Data["skill_level_target"])),
		DailyMinutes:       intValue(plan.row.Data["daily_time_minutes"]),
		Outline:            outline,
		User:               user.Data,
		SkillAnalysis:      plan.analysis,
		PerformanceSummary: req.PerformanceSummary,
	}

	raw, err := s.generator.DayContent(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("generating day %d: %w", req.DayNumber, err)
	}
	day, report, err := s.decoder.Day(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding day %d: %w", req.DayNumber, err)
	}
	day.DayNumber = outline.DayNumber

	if day.IsActionDay {
		rawTask, err := s.generator.ActionTask(ctx, in, day)
		if err != nil {
			return nil, fmt.Errorf("generating action task for day %d: %w", req.DayNumber, err)
		}
		task, err := s.decoder.ActionTask(rawTask)
		if err != nil {
			return nil, fmt.Errorf("decoding action task for day %d: %w", req.DayNumber, err)
		}
		if err := normalize.MergeActionTask(day, task); err != nil {
			return nil, fmt.Errorf("assembling day %d: %w", req.DayNumber, err)
		}
	}

	claimKey := "day:" + dayRow.ID
	won, err := s.claims.Claim(ctx, claimKey)
	if err != nil {
		return nil, fmt.Errorf("claiming day %d: %w", req.DayNumber, err)
	}
	if !won {
		return nil, ErrAlreadyClaimed
	}

	result, err := s.saga.PersistDay(ctx, dayRow.ID, day)
	if err != nil {
		if rerr := s.claims.Release(ctx, claimKey); rerr != nil {
			slog.Warn("releasing day claim", "day_id", dayRow.ID, "error", rerr)
		}
		return nil, fmt.Errorf("persisting day %d: %w", req.DayNumber, err)
	}

	out := &Outcome{DayID: dayRow.ID, Day: day, Report: report, Result: result}
	if err := saga.UpdateDayStatus(ctx, s.store, dayRow.ID, content.StatusInProgress); err != nil {
		return out, fmt.Errorf("marking day %d in progress: %w", req.DayNumber, err)
	}
	day.CompletionStatus = content.StatusInProgress

	slog.Info("day generated",
		"plan_id", req.PlanID,
		"day", req.DayNumber,
		"exercises", len(day.Exercises),
		"dropped", len(report.Drops),
		"complete", result.AllSucceeded,
	)
	return out, nil
}

// load reads the plan with its days, the plan's skill analysis and the
// user concurrently.
func (s *Service) load(ctx context.Context, req Request) (*planView, *store.Row, error) {
	var plan planView
	var analysis store.Data
	var user *store.Row

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		row, err := s.store.Get(gctx, store.LearningPlan, req.PlanID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrPlanNotFound
		}
		if err != nil {
			return fmt.Errorf("loading plan: %w", err)
		}
		days, err := s.store.Find(gctx, store.DayContent, "plan_id", req.PlanID)
		if err != nil {
			return fmt.Errorf("loading plan days: %w", err)
		}
		plan = planView{row: row, days: days}
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.Find(gctx, store.SkillAnalysis, "plan_id", req.PlanID)
		if err != nil {
			return fmt.Errorf("loading skill analysis: %w", err)
		}
		if len(rows) > 0 {
			analysis = rows[len(rows)-1].Data
		}
		return nil
	})
	g.Go(func() error {
		row, err := s.store.Get(gctx, store.User, req.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("loading user: %w", err)
		}
		user = row
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	plan.analysis = analysis
	return &plan, user, nil
}

func findDay(days []store.Row, number int) (store.Row, bool) {
	for _, d := range days {
		if intValue(d.Data["day_number"]) == number {
			return d, true
		}
	}
	return store.Row{}, false
}

func outlineFrom(row store.Row) content.DayOutline {
	isAction, _ := row.Data["is_action_day"].(bool)
	var objectives []string
	switch v := row.Data["objectives"].(type) {
	case []string:
		objectives = v
	case []any:
		for _, o := range v {
			if s := stringValue(o); s != "" {
				objectives = append(objectives, s)
			}
		}
	}
	return content.DayOutline{
		DayNumber:        intValue(row.Data["day_number"]),
		Title:            stringValue(row.Data["title"]),
		FocusArea:        stringValue(row.Data["focus_area"]),
		IsActionDay:      isAction,
		Objectives:       objectives,
		CompletionStatus: normalize.ParseStatus(stringValue(row.Data["completion_status"])),
		Order:            intValue(row.Data["order"]),
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// intValue reads a number from row data, which holds Go ints in memory and
// float64 after a JSON round trip.
func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}
