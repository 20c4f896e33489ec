package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

const (
	postgresTableName        = "formsaver_entries"
	postgresOperationTimeout = 5 * time.Second
)

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// Postgres stores entries in one table, creating it on first use.
type Postgres struct {
	dsn       string
	tableName string
	openDB    sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", ErrInvalidInput)
	}
	return &Postgres{
		dsn:       dsn,
		tableName: postgresTableName,
		openDB:    sql.Open,
	}, nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	if err := p.ensureReady(ctx); err != nil {
		return "", false, err
	}
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT value FROM %s WHERE entry_key = $1", quoteIdentifier(p.tableName))
	var value string
	err := p.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: postgres get %q: %w", key, err)
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	if err := p.ensureReady(ctx); err != nil {
		return err
	}
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (entry_key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (entry_key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, quoteIdentifier(p.tableName))
	if _, err := p.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("storage: postgres set %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, key string) error {
	if err := p.ensureReady(ctx); err != nil {
		return err
	}
	ctx, cancel := withOperationTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf("DELETE FROM %s WHERE entry_key = $1", quoteIdentifier(p.tableName))
	if _, err := p.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("storage: postgres remove %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *Postgres) ensureReady(ctx context.Context) error {
	p.initOnce.Do(func() {
		db, err := p.openDB("postgres", p.dsn)
		if err != nil {
			p.initErr = fmt.Errorf("storage: open postgres: %w", err)
			return
		}
		ctx, cancel := withOperationTimeout(ctx)
		defer cancel()

		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				entry_key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, quoteIdentifier(p.tableName))
		if _, err := db.ExecContext(ctx, query); err != nil {
			_ = db.Close()
			p.initErr = fmt.Errorf("storage: create postgres table: %w", err)
			return
		}
		p.db = db
	})
	return p.initErr
}

func withOperationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, postgresOperationTimeout)
}

func quoteIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return `""`
	}
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
