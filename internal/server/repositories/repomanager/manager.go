// Package repomanager wires repositories to a shared database handle and
// runs schema migrations at startup.
package repomanager

import (
	"context"

	"github.com/sgescolar/authcore/internal/dbx"
	"github.com/sgescolar/authcore/internal/server/repositories/features"
	"github.com/sgescolar/authcore/internal/server/repositories/refreshtokens"
	"github.com/sgescolar/authcore/internal/server/repositories/userfeatures"
)

// RepositoryManager hands out repositories bound to the given handle, which
// may be the pool (*sql.DB) or a transaction (*sql.Tx). Services pass a
// transactional handle when several writes must commit together.
type RepositoryManager interface {
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Features(db dbx.DBTX) features.Repository
	UserFeatures(db dbx.DBTX) userfeatures.Repository
	RunMigrations(ctx context.Context) error
}
