package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sgescolar/authcore/internal/common"
	"github.com/sgescolar/authcore/internal/server/roles"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateToken("user-123", roles.Master, secret, time.UTC)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	claims, err := ParseToken(tok, secret)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("subject mismatch: got %q", claims.Subject)
	}
	if claims.Role != string(roles.Master) {
		t.Fatalf("role mismatch: got %q", claims.Role)
	}
}

func TestGenerateToken_ExpiresAtEndOfDay(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	issued := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	tok, err := generateTokenAt("u1", roles.Professor, secret, issued, time.UTC)
	if err != nil {
		t.Fatalf("generateTokenAt error: %v", err)
	}

	// read the exp claim without validating it, so the assertion holds no
	// matter when the test runs relative to the fixed issue date
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, err := parser.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}); err != nil {
		t.Fatalf("ParseWithClaims error: %v", err)
	}

	want := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)
	if !claims.ExpiresAt.Time.Equal(want) {
		t.Fatalf("expiry mismatch: got %v want %v", claims.ExpiresAt.Time, want)
	}
}

func TestEndOfDay_RespectsZone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*60*60)
	// 01:30 UTC is still the previous calendar day in BRT
	at := time.Date(2026, 7, 2, 1, 30, 0, 0, time.UTC)

	got := EndOfDay(at, loc)
	want := time.Date(2026, 7, 1, 23, 59, 59, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("EndOfDay = %v, want %v", got, want)
	}
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	issued := time.Now().AddDate(0, 0, -2)

	tok, err := generateTokenAt("u1", roles.Aluno, secret, issued, time.UTC)
	if err != nil {
		t.Fatalf("generateTokenAt error: %v", err)
	}

	_, err = ParseToken(tok, secret)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u2", roles.Diretor, []byte("right-secret"), time.UTC)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = ParseToken(tok, []byte("wrong-secret"))
	if !errors.Is(err, common.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := ParseToken("not.a.jwt", []byte("k"))
	if !errors.Is(err, common.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseToken_MissingExpiryRejected(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	// a token without exp must not parse as never-expiring
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
		Role:             string(roles.Aluno),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}

	_, err = ParseToken(signed, secret)
	if !errors.Is(err, common.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for missing exp, got %v", err)
	}
}

func TestParseToken_WrongAlgorithmRejected(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: string(roles.Aluno),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}

	_, err = ParseToken(signed, secret)
	if !errors.Is(err, common.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign alg, got %v", err)
	}
}

func TestParseToken_ForeignRoleRejected(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	// hand-craft a token whose role claim is outside the closed set
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u3",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "Superusuario",
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}

	_, err = ParseToken(signed, secret)
	if !errors.Is(err, common.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign role, got %v", err)
	}
}
