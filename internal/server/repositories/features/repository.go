// Package features declares the repository contract for feature definitions.
package features

import (
	"context"

	"github.com/sgescolar/authcore/internal/server/models"
)

// Repository defines CRUD operations over feature definitions. Lookups return
// common.ErrorNotFound when no row matches; the service layer decides whether
// that is an error for the caller.
type Repository interface {
	Create(ctx context.Context, feature *models.Feature) error
	Update(ctx context.Context, feature *models.Feature) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Feature, error)
	GetByName(ctx context.Context, name string) (*models.Feature, error)
	List(ctx context.Context) ([]models.Feature, error)

	// ListForUser returns the features the user holds an active grant for.
	ListForUser(ctx context.Context, userID string) ([]models.Feature, error)
}
