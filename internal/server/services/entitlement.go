// This file implements EntitlementService: feature CRUD, per-user grants,
// entitlement checks, and batch grant/revoke driven by population filters
// resolved through the directory service.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sgescolar/authcore/internal/common"
	"github.com/sgescolar/authcore/internal/dbx"
	"github.com/sgescolar/authcore/internal/logging"
	"github.com/sgescolar/authcore/internal/server/directory"
	"github.com/sgescolar/authcore/internal/server/models"
	"github.com/sgescolar/authcore/internal/server/repositories/repomanager"
	"github.com/sgescolar/authcore/internal/server/roles"
)

// Actor identifies who is performing an entitlement operation. It comes from
// validated access-token claims.
type Actor struct {
	ID   string
	Role roles.Role
}

// BatchResult aggregates the outcome of a batch grant/revoke. Per-user
// failures are counted, never fatal: one bad record must not abort the batch.
type BatchResult struct {
	Assigned int
	Removed  int
	Skipped  int
	Failed   int
}

// EntitlementService manages features and user↔feature grants.
type EntitlementService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	directory   directory.Client
	logger      logging.Logger
}

// NewEntitlementService constructs an EntitlementService.
func NewEntitlementService(db *sql.DB, m repomanager.RepositoryManager, d directory.Client, l logging.Logger) *EntitlementService {
	return &EntitlementService{
		db:          db,
		repomanager: m,
		directory:   d,
		logger:      l.With("module", "entitlement_service"),
	}
}

// feature management is role-gated, not ownership-gated: any Master or
// Inspetor may manage any feature.
func canManageFeatures(actor Actor) bool {
	return actor.Role == roles.Master || actor.Role == roles.Inspetor
}

func (s *EntitlementService) guardManage(ctx context.Context, actor Actor, operation string) error {
	if canManageFeatures(actor) {
		return nil
	}
	s.logger.Warn(ctx, "feature management denied",
		"actor_id", actor.ID, "actor_role", actor.Role.String(), "operation", operation)
	return fmt.Errorf("%w: role %s may not manage features", common.ErrPermissionDenied, actor.Role)
}

// CreateFeature registers a new named capability. Master/Inspetor only.
func (s *EntitlementService) CreateFeature(ctx context.Context, actor Actor, feature *models.Feature) (*models.Feature, error) {
	if err := s.guardManage(ctx, actor, "create_feature"); err != nil {
		return nil, err
	}
	if feature.Name == "" {
		return nil, fmt.Errorf("%w: feature name is required", common.ErrValidation)
	}

	feature.ID = uuid.NewString()
	repo := s.repomanager.Features(s.db)
	if err := repo.Create(ctx, feature); err != nil {
		return nil, fmt.Errorf("error creating feature: %w", err)
	}

	s.logger.Info(ctx, "feature created", "actor_id", actor.ID, "feature", feature.Name)
	return feature, nil
}

// UpdateFeature rewrites a feature definition. Master/Inspetor only.
func (s *EntitlementService) UpdateFeature(ctx context.Context, actor Actor, feature *models.Feature) error {
	if err := s.guardManage(ctx, actor, "update_feature"); err != nil {
		return err
	}
	if feature.ID == "" || feature.Name == "" {
		return fmt.Errorf("%w: feature id and name are required", common.ErrValidation)
	}

	repo := s.repomanager.Features(s.db)
	if err := repo.Update(ctx, feature); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error updating feature: %w", err)
	}

	s.logger.Info(ctx, "feature updated", "actor_id", actor.ID, "feature", feature.Name)
	return nil
}

// DeleteFeature removes a feature and, first, every grant referencing it.
// The store has no referential cascade, so both deletes run in one
// transaction. Master/Inspetor only.
func (s *EntitlementService) DeleteFeature(ctx context.Context, actor Actor, featureID string) error {
	if err := s.guardManage(ctx, actor, "delete_feature"); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.UserFeatures(tx).DeleteByFeature(ctx, featureID); err != nil {
			return fmt.Errorf("error deleting feature grants: %w", err)
		}
		if err := s.repomanager.Features(tx).Delete(ctx, featureID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return err
	}

	s.logger.Info(ctx, "feature deleted", "actor_id", actor.ID, "feature_id", featureID)
	return nil
}

// GetFeature returns a feature definition by id.
func (s *EntitlementService) GetFeature(ctx context.Context, featureID string) (*models.Feature, error) {
	return s.repomanager.Features(s.db).GetByID(ctx, featureID)
}

// ListFeatures returns all feature definitions.
func (s *EntitlementService) ListFeatures(ctx context.Context) ([]models.Feature, error) {
	return s.repomanager.Features(s.db).List(ctx)
}

// ListUserFeatures returns the features userID holds an active grant for.
func (s *EntitlementService) ListUserFeatures(ctx context.Context, userID string) ([]models.Feature, error) {
	return s.repomanager.Features(s.db).ListForUser(ctx, userID)
}

// AssignFeature grants a feature to one user. Master/Inspetor only; the
// grantor is recorded on the row.
func (s *EntitlementService) AssignFeature(ctx context.Context, actor Actor, userID, featureID string) error {
	if err := s.guardManage(ctx, actor, "assign_feature"); err != nil {
		return err
	}

	if _, err := s.repomanager.Features(s.db).GetByID(ctx, featureID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error resolving feature: %w", err)
	}

	if _, err := s.repomanager.UserFeatures(s.db).FindActive(ctx, userID, featureID); err == nil {
		return common.ErrDuplicateAssignment
	} else if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error checking grant: %w", err)
	}

	grant := &models.UserFeature{
		ID:        uuid.NewString(),
		UserID:    userID,
		FeatureID: featureID,
		GrantedBy: actor.ID,
		Active:    true,
	}
	if err := s.repomanager.UserFeatures(s.db).Create(ctx, grant); err != nil {
		return fmt.Errorf("error creating grant: %w", err)
	}

	s.logger.Info(ctx, "feature assigned",
		"actor_id", actor.ID, "user_id", userID, "feature_id", featureID)
	return nil
}

// UnassignFeature revokes a user's grant. Revoking an association that does
// not exist is a not-found failure, not a silent success.
func (s *EntitlementService) UnassignFeature(ctx context.Context, actor Actor, userID, featureID string) error {
	if err := s.guardManage(ctx, actor, "unassign_feature"); err != nil {
		return err
	}

	if err := s.repomanager.UserFeatures(s.db).Delete(ctx, userID, featureID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting grant: %w", err)
	}

	s.logger.Info(ctx, "feature unassigned",
		"actor_id", actor.ID, "user_id", userID, "feature_id", featureID)
	return nil
}

// HasFeature reports whether userID holds an active grant for the feature
// named featureName. An unconfigured feature name means nobody has it: the
// answer is false, not an error.
func (s *EntitlementService) HasFeature(ctx context.Context, userID, featureName string) (bool, error) {
	feature, err := s.repomanager.Features(s.db).GetByName(ctx, featureName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error resolving feature: %w", err)
	}

	_, err = s.repomanager.UserFeatures(s.db).FindActive(ctx, userID, feature.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error checking grant: %w", err)
	}
	return true, nil
}

// Authorize runs the feature-gate decision procedure: Master always passes,
// then the endpoint's static bypass-role list, then the per-user grant.
func (s *EntitlementService) Authorize(ctx context.Context, actor Actor, featureName string, bypassRoles []roles.Role) error {
	if actor.Role == roles.Master {
		return nil
	}
	for _, r := range bypassRoles {
		if actor.Role == r {
			return nil
		}
	}

	ok, err := s.HasFeature(ctx, actor.ID, featureName)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn(ctx, "feature gate denied",
			"actor_id", actor.ID, "actor_role", actor.Role.String(), "feature", featureName)
		return fmt.Errorf("%w: feature %s not granted", common.ErrPermissionDenied, featureName)
	}
	return nil
}

// AssignFeatureToBatch grants the feature to every user in the population
// resolved by (role, districtID?, schoolID?). Users that already hold an
// active grant are skipped, making the operation idempotent. Per-user store
// failures are logged and counted without aborting the batch.
func (s *EntitlementService) AssignFeatureToBatch(ctx context.Context, actor Actor, featureID string, role roles.Role, districtID, schoolID string) (*BatchResult, error) {
	if err := s.guardManage(ctx, actor, "assign_feature_batch"); err != nil {
		return nil, err
	}
	if !roles.IsValid(role) {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, role)
	}

	if _, err := s.repomanager.Features(s.db).GetByID(ctx, featureID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error resolving feature: %w", err)
	}

	population, err := s.directory.ListUsers(ctx, role, districtID, schoolID)
	if err != nil {
		return nil, err
	}

	grants := s.repomanager.UserFeatures(s.db)
	result := &BatchResult{}

	for _, user := range population {
		_, err := grants.FindActive(ctx, user.ID, featureID)
		switch {
		case err == nil:
			// already satisfies the desired state
			result.Skipped++
			continue
		case !errors.Is(err, common.ErrorNotFound):
			s.logger.Error(ctx, "batch assign: checking grant",
				"actor_id", actor.ID, "user_id", user.ID, "feature_id", featureID, "error", err.Error())
			result.Failed++
			continue
		}

		grant := &models.UserFeature{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			FeatureID: featureID,
			GrantedBy: actor.ID,
			Active:    true,
		}
		if err := grants.Create(ctx, grant); err != nil {
			s.logger.Error(ctx, "batch assign: creating grant",
				"actor_id", actor.ID, "user_id", user.ID, "feature_id", featureID, "error", err.Error())
			result.Failed++
			continue
		}
		result.Assigned++
	}

	s.logger.Info(ctx, "batch assign finished",
		"actor_id", actor.ID, "feature_id", featureID, "role", role.String(),
		"assigned", result.Assigned, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// RemoveFeatureFromBatch revokes the feature from every user in the resolved
// population that currently holds it. When nobody in the population holds the
// feature the call fails with common.ErrorNotFound so callers can distinguish
// "nothing to do" from a successful revocation.
func (s *EntitlementService) RemoveFeatureFromBatch(ctx context.Context, actor Actor, featureID string, role roles.Role, districtID, schoolID string) (*BatchResult, error) {
	if err := s.guardManage(ctx, actor, "remove_feature_batch"); err != nil {
		return nil, err
	}
	if !roles.IsValid(role) {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, role)
	}

	grants := s.repomanager.UserFeatures(s.db)

	holderIDs, err := grants.ListActiveUserIDs(ctx, featureID)
	if err != nil {
		return nil, fmt.Errorf("error listing grant holders: %w", err)
	}
	holders := make(map[string]struct{}, len(holderIDs))
	for _, id := range holderIDs {
		holders[id] = struct{}{}
	}

	population, err := s.directory.ListUsers(ctx, role, districtID, schoolID)
	if err != nil {
		return nil, err
	}

	var targets []string
	for _, user := range population {
		if _, ok := holders[user.ID]; ok {
			targets = append(targets, user.ID)
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no user in the population holds the feature", common.ErrorNotFound)
	}

	result := &BatchResult{}
	for _, userID := range targets {
		if err := grants.Delete(ctx, userID, featureID); err != nil {
			s.logger.Error(ctx, "batch remove: deleting grant",
				"actor_id", actor.ID, "user_id", userID, "feature_id", featureID, "error", err.Error())
			result.Failed++
			continue
		}
		result.Removed++
	}

	s.logger.Info(ctx, "batch remove finished",
		"actor_id", actor.ID, "feature_id", featureID, "role", role.String(),
		"removed", result.Removed, "failed", result.Failed)
	return result, nil
}
