// Package refreshtokens declares the repository contract for managing
// refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/sgescolar/authcore/internal/server/models"
)

// Repository defines operations for issuing, rotating, and revoking refresh
// tokens.
type Repository interface {
	// Create stores a new refresh token for userID with an expiry of now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find looks up a refresh token by its opaque token string.
	// Returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Rotate replaces oldToken's value with newToken and resets the expiry,
	// conditionally on the row still holding oldToken. When two callers race
	// on the same token exactly one Rotate succeeds; the other receives
	// common.ErrorNotFound.
	Rotate(ctx context.Context, oldToken, newToken string, validity time.Duration) error

	// Delete removes a refresh token by its token string. Returns
	// common.ErrorNotFound when no row matched.
	Delete(ctx context.Context, token string) error
}
