// Package userfeatures declares the repository contract for user↔feature
// grant records.
package userfeatures

import (
	"context"

	"github.com/sgescolar/authcore/internal/server/models"
)

// Repository defines operations over user↔feature grants.
type Repository interface {
	// Create stores a new grant. Inserting a duplicate (user, feature) pair
	// fails with the store's uniqueness error; batch callers check
	// FindActive first.
	Create(ctx context.Context, grant *models.UserFeature) error

	// Delete removes the grant for (userID, featureID). Returns
	// common.ErrorNotFound when no row matched.
	Delete(ctx context.Context, userID, featureID string) error

	// FindActive returns the active grant for (userID, featureID), or
	// common.ErrorNotFound.
	FindActive(ctx context.Context, userID, featureID string) (*models.UserFeature, error)

	// ListActiveUserIDs returns the ids of all users currently holding the
	// feature.
	ListActiveUserIDs(ctx context.Context, featureID string) ([]string, error)

	// DeleteByFeature removes every grant referencing featureID. Used by the
	// feature-delete cascade; zero rows is not an error here.
	DeleteByFeature(ctx context.Context, featureID string) error
}
