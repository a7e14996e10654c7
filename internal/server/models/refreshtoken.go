package models

import "time"

// RefreshToken is the persisted server-side half of a token pair. The opaque
// Token string is the sole capability needed to mint a new pair, so it is
// random (256 bits) and replaced in place on every successful refresh.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
