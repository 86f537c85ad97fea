// internal/storage/postgres.go
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxIface is the subset of pgxpool.Pool used by PostgresStore, so pgxmock can stand in for it.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	selectItemSQL = `SELECT data FROM items WHERE id = $1`
	upsertItemSQL = `INSERT INTO items (id, data, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
)

// PostgresStore keeps items in the items table. The column is TEXT, not JSONB, so the
// stored string comes back byte-identical and change detection keeps working.
type PostgresStore struct {
	db PgxIface
}

func NewPostgresStore(db PgxIface) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ReadItem(ctx context.Context, id string) (string, bool, error) {
	var data string
	err := s.db.QueryRow(ctx, selectItemSQL, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read item %q: %w", id, err)
	}
	return data, true, nil
}

func (s *PostgresStore) WriteItem(ctx context.Context, id, data string) error {
	if _, err := s.db.Exec(ctx, upsertItemSQL, id, data); err != nil {
		return fmt.Errorf("write item %q: %w", id, err)
	}
	return nil
}

// RunMigrations applies the schema in sourceURL (e.g. file://migrations) to dbURL.
func RunMigrations(sourceURL, dbURL string) error {
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
