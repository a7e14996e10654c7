// Package userfeatures provides a PostgreSQL-backed repository for
// user↔feature grant records.
package userfeatures

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

func (r *PostgresRepository) Create(ctx context.Context, grant *models.UserFeature) error {
	query := `
		INSERT INTO user_features (id, user_id, feature_id, granted_by, active)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		grant.ID, grant.UserID, grant.FeatureID, grant.GrantedBy, grant.Active)
	if err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, featureID string) error {
	query := `
		DELETE FROM user_features
		WHERE user_id = $1 AND feature_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, userID, featureID)
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

func (r *PostgresRepository) FindActive(ctx context.Context, userID, featureID string) (*models.UserFeature, error) {
	query := `
		SELECT id, user_id, feature_id, granted_by, active
		FROM user_features
		WHERE user_id = $1 AND feature_id = $2 AND active
	`
	grant := &models.UserFeature{}
	err := r.db.QueryRowContext(ctx, query, userID, featureID).Scan(
		&grant.ID, &grant.UserID, &grant.FeatureID, &grant.GrantedBy, &grant.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return grant, nil
}

func (r *PostgresRepository) ListActiveUserIDs(ctx context.Context, featureID string) ([]string, error) {
	query := `
		SELECT user_id
		FROM user_features
		WHERE feature_id = $1 AND active
	`
	rows, err := r.db.QueryContext(ctx, query, featureID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}

func (r *PostgresRepository) DeleteByFeature(ctx context.Context, featureID string) error {
	query := `
		DELETE FROM user_features
		WHERE feature_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, featureID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
