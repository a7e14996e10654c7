package models

import "github.com/sgescolar/authcore/internal/server/roles"

// Identity is the subset of a directory-service user record this core needs:
// who they are, what role they hold, and the password hash to verify against.
// The directory service owns the full profile.
type Identity struct {
	ID           string
	Role         roles.Role
	PasswordHash string
}

// DirectoryUser is one member of a population resolved by role/district/school
// filters. Only the id matters to batch grant/revoke.
type DirectoryUser struct {
	ID string
}
