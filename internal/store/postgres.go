package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const dbTimeout = 5 * time.Second

// DB is the subset of a pgx pool the Postgres store uses. *pgxpool.Pool
// satisfies it, as does a pgxmock pool in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore is a PostgreSQL-backed Store implementation. Rows live in
// the generic entities table created by MigratePostgres.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a store over db. The store owns db and closes it
// on Close.
func NewPostgresStore(db DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Create(ctx context.Context, entity Entity, data Data) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", entity, err)
	}

	var id string
	err = s.db.QueryRow(ctx,
		`INSERT INTO entities (id, entity, data)
		 VALUES ($1::uuid, $2, $3::jsonb)
		 RETURNING id::text`,
		uuid.NewString(),
		string(entity),
		string(payload),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", entity, err)
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, entity Entity, id string, data Data) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	payload, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", entity, err)
	}

	cmd, err := s.db.Exec(ctx,
		`UPDATE entities
		 SET data = data || $3::jsonb, updated_at = NOW()
		 WHERE entity = $1 AND id = $2::uuid`,
		string(entity),
		id,
		string(payload),
	)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", entity, err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *PostgresStore) Get(ctx context.Context, entity Entity, id string) (*Row, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row, err := scanRow(s.db.QueryRow(ctx,
		`SELECT id::text, entity, data, created_at, updated_at
		 FROM entities
		 WHERE entity = $1 AND id = $2::uuid`,
		string(entity),
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", entity, err)
	}
	return row, nil
}

func (s *PostgresStore) Find(ctx context.Context, entity Entity, field, value string) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx,
		`SELECT id::text, entity, data, created_at, updated_at
		 FROM entities
		 WHERE entity = $1 AND data->>$2 = $3
		 ORDER BY seq ASC`,
		string(entity),
		field,
		value,
	)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", entity, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows)
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

// HealthCheck verifies the database connection is alive.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func scanRow(r pgx.Row) (*Row, error) {
	var row Row
	var entity string
	var payload []byte
	if err := r.Scan(&row.ID, &entity, &payload, &row.CreatedAt, &row.UpdatedAt); err != nil {
		return nil, err
	}
	row.Entity = Entity(entity)
	if err := json.Unmarshal(payload, &row.Data); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return &row, nil
}
