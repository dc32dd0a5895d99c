package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/p-n-ai/pai-content/internal/platform/database"
	"github.com/p-n-ai/pai-content/internal/store"
)

func newMockStore(t *testing.T) (*store.PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool() error = %v", err)
	}
	s, err := store.NewPostgresStore(mock)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
	return s, mock
}

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := store.NewPostgresStore(nil); err == nil {
		t.Error("NewPostgresStore(nil) should return error")
	}
}

func TestPostgresStore_Create(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO entities").
		WithArgs(pgxmock.AnyArg(), "learning_plan", `{"skill_name":"Go"}`).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow("7b0e3f52-52c1-4c3e-9d7e-6a3f0f1d2b11"))

	id, err := s.Create(t.Context(), store.LearningPlan, store.Data{"skill_name": "Go"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != "7b0e3f52-52c1-4c3e-9d7e-6a3f0f1d2b11" {
		t.Errorf("Create() = %q", id)
	}
}

func TestPostgresStore_CreateError(t *testing.T) {
	s, mock := newMockStore(t)

	reset := errors.New("connection reset")
	mock.ExpectQuery("INSERT INTO entities").
		WithArgs(pgxmock.AnyArg(), "skill_analysis", "{}").
		WillReturnError(reset)

	_, err := s.Create(t.Context(), store.SkillAnalysis, store.Data{})
	if !errors.Is(err, reset) {
		t.Errorf("Create() error = %v, want it to wrap %v", err, reset)
	}
}

func TestPostgresStore_Update(t *testing.T) {
	s, mock := newMockStore(t)
	id := "7b0e3f52-52c1-4c3e-9d7e-6a3f0f1d2b11"

	mock.ExpectExec("UPDATE entities").
		WithArgs("day_content", id, `{"completion_status":"IN_PROGRESS"}`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE entities").
		WithArgs("day_content", id, `{"completion_status":"COMPLETED"}`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := s.Update(t.Context(), store.DayContent, id, store.Data{"completion_status": "IN_PROGRESS"})
	if err != nil || !ok {
		t.Errorf("Update() = %v, %v; want true", ok, err)
	}
	ok, err = s.Update(t.Context(), store.DayContent, id, store.Data{"completion_status": "COMPLETED"})
	if err != nil || ok {
		t.Errorf("Update() = %v, %v; want false", ok, err)
	}
}

func TestPostgresStore_Update_MalformedID(t *testing.T) {
	s, _ := newMockStore(t)

	ok, err := s.Update(t.Context(), store.DayContent, "day-1", store.Data{"x": 1})
	if err != nil || ok {
		t.Errorf("Update() = %v, %v; want false, nil without a query", ok, err)
	}
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockStore(t)
	id := "7b0e3f52-52c1-4c3e-9d7e-6a3f0f1d2b11"
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM entities").
		WithArgs("learning_plan", id).
		WillReturnRows(mock.NewRows([]string{"id", "entity", "data", "created_at", "updated_at"}).
			AddRow(id, "learning_plan", []byte(`{"skill_name":"Go"}`), now, now))
	mock.ExpectQuery("SELECT (.+) FROM entities").
		WithArgs("learning_plan", id).
		WillReturnError(pgx.ErrNoRows)

	row, err := s.Get(t.Context(), store.LearningPlan, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if row.Data["skill_name"] != "Go" || row.Entity != store.LearningPlan {
		t.Errorf("Get() = %+v", row)
	}

	if _, err := s.Get(t.Context(), store.LearningPlan, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_Find(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM entities (.+) ORDER BY seq").
		WithArgs("plan_section", "plan_id", "p-1").
		WillReturnRows(mock.NewRows([]string{"id", "entity", "data", "created_at", "updated_at"}).
			AddRow("a", "plan_section", []byte(`{"title":"one"}`), now, now).
			AddRow("b", "plan_section", []byte(`{"title":"two"}`), now, now))

	rows, err := s.Find(t.Context(), store.PlanSection, "plan_id", "p-1")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(rows) != 2 || rows[1].Data["title"] != "two" {
		t.Errorf("Find() = %+v", rows)
	}
}

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := t.Context()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("content"),
		postgres.WithUsername("content"),
		postgres.WithPassword("content"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}
	if err := store.MigratePostgres(ctx, dsn); err != nil {
		t.Fatalf("MigratePostgres() error = %v", err)
	}
	// Migrations are idempotent.
	if err := store.MigratePostgres(ctx, dsn); err != nil {
		t.Fatalf("second MigratePostgres() error = %v", err)
	}

	db, err := database.New(ctx, database.Config{URL: dsn, MaxConns: 4, MinConns: 1})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	s, err := store.NewPostgresStore(db.Pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	defer s.Close()

	testStoreContract(t, s)
}
