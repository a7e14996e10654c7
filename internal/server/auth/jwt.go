// Package auth mints and validates access tokens. Tokens are self-contained
// HS256 JWTs; validity is determined purely by signature and expiry, never by
// a store lookup.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sgescolar/authcore/internal/common"
	"github.com/sgescolar/authcore/internal/server/roles"
)

// Claims carries the identity asserted by an access token: subject id (in
// RegisteredClaims.Subject) plus the user's role.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// EndOfDay returns the last second of t's calendar day in loc. Access tokens
// expire at end of day rather than after a fixed duration, so a token issued
// late in the day lives shorter than one issued in the morning.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 23, 59, 59, 0, loc)
}

// GenerateToken mints an access token for subjectID with the given role,
// expiring at the end of the current calendar day in loc.
func GenerateToken(subjectID string, role roles.Role, secretKey []byte, loc *time.Location) (string, error) {
	return generateTokenAt(subjectID, role, secretKey, time.Now(), loc)
}

func generateTokenAt(subjectID string, role roles.Role, secretKey []byte, issuedAt time.Time, loc *time.Location) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(EndOfDay(issuedAt, loc)),
		},
		Role: string(role),
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies signature and expiry and returns the token claims.
// Expired tokens yield common.ErrTokenExpired; any other defect, including a
// role claim outside the known set, yields common.ErrTokenInvalid.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrTokenInvalid
	}
	if _, err := roles.Parse(claims.Role); err != nil {
		return nil, common.ErrTokenInvalid
	}

	return claims, nil
}
