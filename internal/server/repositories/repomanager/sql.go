// Package repomanager vends the SQL-backed repositories for one dialect
// and runs the matching embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/securecloud/internal/dbx"
	"github.com/dmitrijs2005/securecloud/internal/server/migrations"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/files"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

// Dialect names a supported database engine.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// gooseDialect maps a Dialect to the goose dialect name.
func (d Dialect) gooseDialect() (string, error) {
	switch d {
	case DialectPostgres:
		return "pgx", nil
	case DialectSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", string(d))
	}
}

// SQLRepositoryManager vends repository implementations for one dialect
// and exposes a schema migration hook.
type SQLRepositoryManager struct {
	dialect Dialect
}

func (m *SQLRepositoryManager) Dialect() Dialect {
	return m.dialect
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

// Files returns a files.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// RunMigrations sets up goose with the embedded migrations of the manager's
// dialect and runs them against the provided database connection.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	dialect, err := m.dialect.gooseDialect()
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, string(m.dialect)); err != nil {
		return err
	}
	return nil
}

// NewRepositoryManager constructs a RepositoryManager for dialect.
func NewRepositoryManager(dialect Dialect) (RepositoryManager, error) {
	if _, err := dialect.gooseDialect(); err != nil {
		return nil, err
	}
	return &SQLRepositoryManager{dialect: dialect}, nil
}
