package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ParseDSN picks the dialect for dsn and returns the database/sql driver
// name and data source to open it with.
//
//	sqlite:<path>, sqlite::memory:   sqlite, prefix stripped
//	file:<path>                      sqlite, passed through
//	anything else                    postgres via pgx
func ParseDSN(dsn string) (Dialect, string, string) {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		return DialectSQLite, "sqlite", strings.TrimPrefix(dsn, "sqlite:")
	case strings.HasPrefix(dsn, "file:"):
		return DialectSQLite, "sqlite", dsn
	default:
		return DialectPostgres, "pgx", dsn
	}
}

// Open connects to dsn, verifies the connection and applies migrations.
// The returned *sql.DB is owned by the caller.
func Open(ctx context.Context, dsn string) (*sql.DB, RepositoryManager, error) {
	dialect, driver, source := ParseDSN(dsn)

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// a single connection keeps :memory: databases alive and serialises
		// writers
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	m, err := NewRepositoryManager(dialect)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, m, nil
}
