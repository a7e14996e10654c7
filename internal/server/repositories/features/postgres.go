// Package features provides a PostgreSQL-backed repository for feature
// definitions.
package features

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sgescolar/authcore/internal/common"
	"github.com/sgescolar/authcore/internal/dbx"
	"github.com/sgescolar/authcore/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, feature *models.Feature) error {
	query := `
		INSERT INTO features (id, name, description, route, active)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		feature.ID, feature.Name, feature.Description, feature.Route, feature.Active)
	if err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, feature *models.Feature) error {
	query := `
		UPDATE features
		SET name = $1, description = $2, route = $3, active = $4, updated_at = now()
		WHERE id = $5
	`
	res, err := r.db.ExecContext(ctx, query,
		feature.Name, feature.Description, feature.Route, feature.Active, feature.ID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM features
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Feature, error) {
	query := `
		SELECT id, name, description, route, active
		FROM features
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.Feature, error) {
	query := `
		SELECT id, name, description, route, active
		FROM features
		WHERE name = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, name))
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Feature, error) {
	query := `
		SELECT id, name, description, route, active
		FROM features
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Feature
	for rows.Next() {
		var f models.Feature
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.Route, &f.Active); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID string) ([]models.Feature, error) {
	query := `
		SELECT f.id, f.name, f.description, f.route, f.active
		FROM features f
		JOIN user_features uf ON uf.feature_id = f.id
		WHERE uf.user_id = $1 AND uf.active = true
		ORDER BY f.name
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Feature
	for rows.Next() {
		var f models.Feature
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.Route, &f.Active); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Feature, error) {
	feature := &models.Feature{}
	err := row.Scan(&feature.ID, &feature.Name, &feature.Description, &feature.Route, &feature.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return feature, nil
}
