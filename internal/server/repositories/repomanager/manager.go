package repomanager

import (
	"context"
	"database/sql"

	"github.com/dbelyaev/srpvault/internal/dbx"
	"github.com/dbelyaev/srpvault/internal/server/repositories/credentials"
	"github.com/dbelyaev/srpvault/internal/server/repositories/refreshtokens"
	"github.com/dbelyaev/srpvault/internal/server/repositories/vaults"
)

// RepositoryManager vends repositories bound to a DBTX and runs schema
// migrations. Services pass either the pooled *sql.DB or a transaction,
// which lets one flow span repositories atomically.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Credentials(db dbx.DBTX) credentials.Repository
	Vaults(db dbx.DBTX) vaults.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
