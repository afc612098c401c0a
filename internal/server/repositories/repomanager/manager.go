package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/securecloud/internal/dbx"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/files"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/users"
)

type RepositoryManager interface {
	Dialect() Dialect
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Files(db dbx.DBTX) files.Repository
}
