package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a single-file Store for local runs. It shares the entities
// schema with PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the database at path with WAL mode and foreign keys
// enabled, and applies the embedded migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Single writer.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, "sqlite3", "migrations/sqlite"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, entity Entity, data Data) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", entity, err)
	}

	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (id, entity, data) VALUES (?, ?, ?)`,
		id, string(entity), string(payload),
	); err != nil {
		return "", fmt.Errorf("create %s: %w", entity, err)
	}
	return id, nil
}

func (s *SQLiteStore) Update(ctx context.Context, entity Entity, id string, data Data) (bool, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", entity, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE entities
		 SET data = json_patch(data, ?), updated_at = CURRENT_TIMESTAMP
		 WHERE entity = ? AND id = ?`,
		string(payload), string(entity), id,
	)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update %s: %w", entity, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Get(ctx context.Context, entity Entity, id string) (*Row, error) {
	row, err := scanSQLRow(s.db.QueryRowContext(ctx,
		`SELECT id, entity, data, created_at, updated_at
		 FROM entities
		 WHERE entity = ? AND id = ?`,
		string(entity), id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", entity, err)
	}
	return row, nil
}

func (s *SQLiteStore) Find(ctx context.Context, entity Entity, field, value string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity, data, created_at, updated_at
		 FROM entities
		 WHERE entity = ? AND CAST(json_extract(data, '$.' || ?) AS TEXT) = ?
		 ORDER BY seq ASC`,
		string(entity), field, value,
	)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", entity, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanSQLRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", entity, err)
		}
		out = append(out, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", entity, err)
	}
	return out, nil
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLRow(r sqlScanner) (*Row, error) {
	var row Row
	var entity, payload string
	if err := r.Scan(&row.ID, &entity, &payload, &row.CreatedAt, &row.UpdatedAt); err != nil {
		return nil, err
	}
	row.Entity = Entity(entity)
	if err := json.Unmarshal([]byte(payload), &row.Data); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return &row, nil
}
