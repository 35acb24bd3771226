package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the articles table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS articles (
    id         BIGINT PRIMARY KEY,
    title      TEXT NOT NULL,
    content    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] using the given connection or
// pool. Call [PostgresStore.Migrate] before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("content: migrate: %w", err)
	}
	return nil
}

// SeedIfEmpty inserts the built-in articles when the table holds none.
func (s *PostgresStore) SeedIfEmpty(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM articles`).Scan(&count); err != nil {
		return fmt.Errorf("content: count articles: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, a := range SeedArticles() {
		if err := s.Upsert(ctx, &a); err != nil {
			return err
		}
	}
	return nil
}

// Create implements [Store].
func (s *PostgresStore) Create(ctx context.Context, a *Article) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO articles (id, title, content) VALUES ($1, $2, $3)`,
		a.ID, a.Title, a.Content,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("content: article %d already exists", a.ID)
		}
		return fmt.Errorf("content: create: %w", err)
	}
	return nil
}

// Get implements [Store].
func (s *PostgresStore) Get(ctx context.Context, id int64) (*Article, error) {
	var a Article
	err := s.db.QueryRow(ctx,
		`SELECT id, title, content FROM articles WHERE id = $1`, id,
	).Scan(&a.ID, &a.Title, &a.Content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("content: get %d: %w", id, err)
	}
	return &a, nil
}

// List implements [Store].
func (s *PostgresStore) List(ctx context.Context) ([]Article, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, title, content FROM articles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("content: list: %w", err)
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Content); err != nil {
			return nil, fmt.Errorf("content: scan article: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("content: list: %w", err)
	}
	return out, nil
}

// Upsert implements [Store].
func (s *PostgresStore) Upsert(ctx context.Context, a *Article) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO articles (id, title, content) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, content = EXCLUDED.content, updated_at = now()`,
		a.ID, a.Title, a.Content,
	)
	if err != nil {
		return fmt.Errorf("content: upsert: %w", err)
	}
	return nil
}

// Delete implements [Store].
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("content: delete %d: %w", id, err)
	}
	return nil
}

// isDuplicateKeyError reports whether err is a unique-constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
