package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Bodies are stored verbatim as text on both drivers so a load returns the
// exact bytes that were saved.
const postgresDocumentSchema = `CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const sqliteDocumentSchema = `CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLDocumentRepository persists documents in a key/body table. It serves
// both PostgreSQL and SQLite; placeholders are rebound per driver.
type SQLDocumentRepository struct {
	db *sqlx.DB
}

// NewSQLDocumentRepository constructs the repository.
func NewSQLDocumentRepository(db *sqlx.DB) *SQLDocumentRepository {
	return &SQLDocumentRepository{db: db}
}

// EnsureSchema creates the documents table when missing.
func (r *SQLDocumentRepository) EnsureSchema(ctx context.Context) error {
	schema := postgresDocumentSchema
	if r.db.DriverName() == "sqlite3" {
		schema = sqliteDocumentSchema
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

// Load returns the body stored under key.
func (r *SQLDocumentRepository) Load(ctx context.Context, key string) ([]byte, error) {
	query := r.db.Rebind(`SELECT body FROM documents WHERE key = ?`)
	var body string
	if err := r.db.GetContext(ctx, &body, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("load document %s: %w", key, err)
	}
	return []byte(body), nil
}

// Save upserts the body under key.
func (r *SQLDocumentRepository) Save(ctx context.Context, key string, body []byte) error {
	query := r.db.Rebind(`INSERT INTO documents (key, body, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (key)
DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`)
	// text keeps lib/pq from sending the body as bytea
	if _, err := r.db.ExecContext(ctx, query, key, string(body), time.Now().UTC()); err != nil {
		return fmt.Errorf("save document %s: %w", key, err)
	}
	return nil
}

// Delete removes the row for key.
func (r *SQLDocumentRepository) Delete(ctx context.Context, key string) error {
	query := r.db.Rebind(`DELETE FROM documents WHERE key = ?`)
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete document %s: %w", key, err)
	}
	return nil
}
