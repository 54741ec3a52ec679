package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/notes"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a concrete DBTX, so the same
// repository code runs against a plain connection or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Notes(db dbx.DBTX) notes.Repository
}
