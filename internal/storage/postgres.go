package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type PostgresStorage struct {
	db *sql.DB
}

func OpenPostgres(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (p *PostgresStorage) RunMigrations() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(p.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, `SELECT value FROM client_state WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	return value, nil
}

// Set upserts the key and touches the rest of its session group, so idle
// purging removes a session's fields together.
func (p *PostgresStorage) Set(ctx context.Context, key string, value []byte) error {
	group, _ := splitKey(key)
	_, err := p.db.ExecContext(ctx, `
		WITH upsert AS (
			INSERT INTO client_state (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
			RETURNING key
		)
		UPDATE client_state SET updated_at = NOW()
		WHERE starts_with(key, $3) AND key <> $1`,
		key, value, group+":")
	if err != nil {
		return fmt.Errorf("failed to upsert state: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := p.db.ExecContext(ctx, `DELETE FROM client_state WHERE key = ANY($1)`, pq.Array(keys)); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

// PurgeIdle removes rows not written for longer than maxIdle.
func (p *PostgresStorage) PurgeIdle(ctx context.Context, maxIdle time.Duration) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM client_state WHERE updated_at < $1`, time.Now().Add(-maxIdle))
	if err != nil {
		return 0, fmt.Errorf("failed to purge idle state: %w", err)
	}
	return res.RowsAffected()
}

func (p *PostgresStorage) Close() error {
	return p.db.Close()
}
