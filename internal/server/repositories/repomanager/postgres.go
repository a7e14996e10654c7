package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/sgescolar/authcore/internal/dbx"
	"github.com/sgescolar/authcore/internal/server/migrations"
	"github.com/sgescolar/authcore/internal/server/repositories/features"
	"github.com/sgescolar/authcore/internal/server/repositories/refreshtokens"
	"github.com/sgescolar/authcore/internal/server/repositories/userfeatures"
)

// PostgresRepositoryManager owns the pgx connection pool and builds
// Postgres-backed repositories over it.
type PostgresRepositoryManager struct {
	db *sql.DB
}

// NewPostgresRepositoryManager opens the database and applies pending
// migrations.
func NewPostgresRepositoryManager(dsn string) (*PostgresRepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{db: db}

	if err := m.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}

// Conn returns the underlying pool, used by services to begin transactions.
func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Features(db dbx.DBTX) features.Repository {
	return features.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) UserFeatures(db dbx.DBTX) userfeatures.Repository {
	return userfeatures.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

// Close releases the connection pool.
func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}
