package saga_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-content/internal/content"
	"github.com/p-n-ai/pai-content/internal/saga"
	"github.com/p-n-ai/pai-content/internal/store"
)

func sampleLessonDay() *content.DayContent {
	day := &content.DayContent{
		DayNumber:  1,
		Title:      "Setup",
		Objectives: []string{"install"},
		MainContent: &content.MainContent{
			Title: "Install Go", TextContent: "Download it.", FunFact: "Go is from 2009.", XP: 30,
			KeyConcepts: []content.KeyConcept{{Term: "GOPATH", Definition: "workspace", Order: 1}},
		},
		Exercises: []content.ExerciseBlock{
			{Order: 1, Exercise: &content.QuizMCQ{Question: "q", Options: []string{"a", "b", "c"}, Answer: 2, XP: 20}},
			{Order: 2, Exercise: &content.TrueFalse{Statement: "s", Answer: true, XP: 15}},
			{Order: 3, Exercise: &content.MatchMeaning{Pairs: []content.MatchPair{
				{Term: "a", Meaning: "1", Order: 1}, {Term: "b", Meaning: "2", Order: 2},
			}, XP: 25}},
			{Order: 4, Exercise: &content.ScenarioQuiz{Scenario: "sc", Question: "q", Options: []string{"x", "y"}, Answer: 0, XP: 30}},
		},
	}
	day.RecomputeXP()
	return day
}

func createDay(t *testing.T, s store.Store) string {
	t.Helper()
	id, err := s.Create(t.Context(), store.DayContent, store.Data{"day_number": 1, "completion_status": "NOT_STARTED"})
	if err != nil {
		t.Fatalf("Create(day) error = %v", err)
	}
	return id
}

func TestPersistDay_Lesson(t *testing.T) {
	s := store.NewMemoryStore()
	dayID := createDay(t, s)
	ctx := t.Context()

	res, err := saga.NewOrchestrator(s, nil).PersistDay(ctx, dayID, sampleLessonDay())
	if err != nil {
		t.Fatalf("PersistDay() error = %v", err)
	}
	if !res.AllSucceeded || res.RootID != dayID {
		t.Errorf("Result = %+v", res)
	}

	counts := map[store.Entity]int{
		store.MainContent:    1,
		store.KeyConcept:     1,
		store.QuizQuestion:   2,
		store.QuizOption:     5,
		store.ExerciseDetail: 2,
		store.MatchPair:      2,
		store.ContentBlock:   4,
	}
	for entity, want := range counts {
		if got := s.Count(entity); got != want {
			t.Errorf("Count(%s) = %d, want %d", entity, got, want)
		}
	}

	blocks, err := s.Find(ctx, store.ContentBlock, "day_id", dayID)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	wantTypes := []string{"QUIZ_MCQ", "QUIZ_TRUEFALSE", "MATCH_MEANING", "SCENARIO_QUIZ"}
	for i, b := range blocks {
		if b.Data["block_type"] != wantTypes[i] || b.Data["order"] != i+1 {
			t.Errorf("blocks[%d] = %v", i, b.Data)
		}
		if b.Data["detail_id"] == nil {
			t.Errorf("blocks[%d] has no detail_id", i)
		}
	}

	day, err := s.Get(ctx, store.DayContent, dayID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if day.Data["total_xp"] != 120 {
		t.Errorf("total_xp = %v, want 120", day.Data["total_xp"])
	}
}

func TestPersistDay_ExerciseOrdering(t *testing.T) {
	s := store.NewMemoryStore()
	day := sampleLessonDay()
	day.Exercises = day.Exercises[:1]

	res, err := saga.NewOrchestrator(s, nil).PersistDay(t.Context(), createDay(t, s), day)
	if err != nil {
		t.Fatalf("PersistDay() error = %v", err)
	}

	want := []store.Entity{
		store.DayContent, store.MainContent, store.KeyConcept,
		store.QuizQuestion, store.QuizOption, store.QuizOption, store.QuizOption, store.ContentBlock,
	}
	if len(res.Outcomes) != len(want) {
		t.Fatalf("len(Outcomes) = %d, want %d", len(res.Outcomes), len(want))
	}
	for i, e := range want {
		if res.Outcomes[i].Entity != e {
			t.Errorf("Outcomes[%d] = %s, want %s", i, res.Outcomes[i].Entity, e)
		}
	}
}

func TestPersistDay_DetailFailureSkipsBlock(t *testing.T) {
	s := newFaultStore()
	s.fail[store.QuizQuestion] = true
	dayID := createDay(t, s)

	res, err := saga.NewOrchestrator(s, nil).PersistDay(t.Context(), dayID, sampleLessonDay())
	if err != nil {
		t.Fatalf("PersistDay() error = %v", err)
	}
	if res.AllSucceeded {
		t.Error("AllSucceeded = true, want false")
	}
	if got := res.Count(store.ContentBlock, saga.StatusSkipped); got != 2 {
		t.Errorf("skipped content_block = %d, want 2", got)
	}
	if got := res.Count(store.ContentBlock, saga.StatusCreated); got != 2 {
		t.Errorf("created content_block = %d, want 2", got)
	}
	if got := res.Count(store.QuizOption, saga.StatusSkipped); got != 5 {
		t.Errorf("skipped quiz_option = %d, want 5", got)
	}
}

func TestPersistDay_ActionDay(t *testing.T) {
	s := store.NewMemoryStore()
	day := &content.DayContent{
		Title:       "Build",
		IsActionDay: true,
		Objectives:  []string{"ship"},
		ActionTask: &content.ActionTask{
			Title:           "Ship",
			Steps:           []content.ActionStep{{Instruction: "a", Order: 1}, {Instruction: "b", Order: 2}},
			SuccessCriteria: []string{"runs"},
			Deliverables:    []content.Deliverable{{Description: "repo", Type: "document", Order: 1}},
			XP:              75,
		},
	}

	res, err := saga.NewOrchestrator(s, nil).PersistDay(t.Context(), createDay(t, s), day)
	if err != nil {
		t.Fatalf("PersistDay() error = %v", err)
	}
	if !res.AllSucceeded {
		t.Errorf("failures = %+v", res.Failures())
	}
	if s.Count(store.ActionTask) != 1 || s.Count(store.ActionStep) != 2 || s.Count(store.Deliverable) != 1 {
		t.Error("action task graph not persisted")
	}
	if s.Count(store.MainContent) != 0 {
		t.Error("main content persisted on an action day")
	}
}

func TestPersistDay_MissingDayRow(t *testing.T) {
	s := store.NewMemoryStore()

	res, err := saga.NewOrchestrator(s, nil).PersistDay(t.Context(), "00000000-0000-0000-0000-000000000000", sampleLessonDay())
	if err != nil {
		t.Fatalf("PersistDay() error = %v", err)
	}
	if res.AllSucceeded {
		t.Error("AllSucceeded = true, want false when the day row is missing")
	}
	if got := res.Count(store.DayContent, saga.StatusFailed); got != 1 {
		t.Errorf("failed day_content update = %d, want 1", got)
	}
}

func TestPersistDay_EmptyDayID(t *testing.T) {
	_, err := saga.NewOrchestrator(store.NewMemoryStore(), nil).PersistDay(t.Context(), "", sampleLessonDay())

	var dep *content.MissingDependencyError
	if !errors.As(err, &dep) {
		t.Errorf("PersistDay() error = %v, want MissingDependencyError", err)
	}
}

func TestUpdateDayStatus(t *testing.T) {
	s := store.NewMemoryStore()
	dayID := createDay(t, s)
	ctx := t.Context()

	if err := saga.UpdateDayStatus(ctx, s, dayID, content.StatusInProgress); err != nil {
		t.Fatalf("UpdateDayStatus() error = %v", err)
	}
	row, _ := s.Get(ctx, store.DayContent, dayID)
	if row.Data["completion_status"] != "IN_PROGRESS" {
		t.Errorf("completion_status = %v", row.Data["completion_status"])
	}

	var perr *content.PersistenceError
	if err := saga.UpdateDayStatus(ctx, s, "missing", content.StatusCompleted); !errors.As(err, &perr) {
		t.Errorf("UpdateDayStatus(missing) error = %v, want PersistenceError", err)
	}
	if err := saga.UpdateDayStatus(ctx, s, dayID, "DONE"); !errors.Is(err, content.ErrInvalidPayload) {
		t.Errorf("UpdateDayStatus(DONE) error = %v, want ErrInvalidPayload", err)
	}
}

func TestTracker(t *testing.T) {
	tr := saga.NewTracker(nil)
	if !tr.OK() {
		t.Error("new tracker should be OK")
	}
	res := tr.Result("root")
	if !res.AllSucceeded || res.RootID != "root" || len(res.Failures()) != 0 {
		t.Errorf("Result() = %+v", res)
	}
}
