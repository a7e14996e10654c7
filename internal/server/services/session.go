// Package services contains the business logic of the authorization core.
// This file implements SessionService: login, token validation, refresh-token
// rotation, and logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sgescolar/authcore/internal/common"
	"github.com/sgescolar/authcore/internal/logging"
	"github.com/sgescolar/authcore/internal/server/auth"
	"github.com/sgescolar/authcore/internal/server/config"
	"github.com/sgescolar/authcore/internal/server/directory"
	"github.com/sgescolar/authcore/internal/server/repositories/repomanager"
	"github.com/sgescolar/authcore/internal/server/roles"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService provides authentication operations:
//   - Login: verify credentials against the directory and mint a token pair
//   - Refresh: rotate a refresh token and mint a new pair
//   - Logout: revoke a refresh token
//   - Validate: check an access token without touching storage
type SessionService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	directory                    directory.Client
	logger                       logging.Logger
	jwtSecret                    []byte
	refreshTokenValidityDuration time.Duration
	location                     *time.Location

	// dummyHash is compared against when the email is unknown, so that the
	// unknown-email and wrong-password paths cost the same.
	dummyHash []byte
}

// NewSessionService constructs a SessionService using repositories, the
// directory client, and server config.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, d directory.Client, l logging.Logger, cfg *config.Config) (*SessionService, error) {
	loc, err := time.LoadLocation(cfg.ReferenceTimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading reference time zone: %w", err)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("sessions-dummy-credential"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("generating dummy hash: %w", err)
	}

	return &SessionService{
		db:                           db,
		repomanager:                  m,
		directory:                    d,
		logger:                       l.With("module", "session_service"),
		jwtSecret:                    []byte(cfg.SecretKey),
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		location:                     loc,
		dummyHash:                    dummy,
	}, nil
}

// Login verifies email and password and, on success, returns a new TokenPair.
// An unknown email and a wrong password both return the same
// common.ErrInvalidCredentials; a directory outage surfaces as
// common.ErrUpstreamService instead.
func (s *SessionService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if email == "" || password == "" {
		return nil, common.ErrValidation
	}

	identity, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn the same bcrypt cost as the known-email path
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, common.ErrInvalidCredentials
		}
		if errors.Is(err, common.ErrUpstreamService) {
			return nil, err
		}
		return nil, common.ErrorInternal
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn(ctx, "login rejected", "user_id", identity.ID)
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.generateTokenPair(ctx, identity.ID, identity.Role)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "login", "user_id", identity.ID, "role", identity.Role.String())
	return pair, nil
}

// Refresh validates a refresh token, rotates it in place, and returns a fresh
// TokenPair. The rotation is a conditional update keyed on the presented
// token value: of two concurrent calls with the same token, exactly one wins;
// the loser receives common.ErrRefreshTokenNotFound.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if token.ExpiresAt.Before(time.Now()) {
		// expired tokens are cleaned up on first use, not by a sweep
		if err := repo.Delete(ctx, refreshToken); err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "deleting expired refresh token", "user_id", token.UserID, "error", err.Error())
		}
		return nil, common.ErrRefreshTokenExpired
	}

	identity, err := s.directory.FindByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// orphaned token: the owning identity is gone, so the token is invalid
			if err := repo.Delete(ctx, refreshToken); err != nil && !errors.Is(err, common.ErrorNotFound) {
				s.logger.Error(ctx, "deleting orphaned refresh token", "user_id", token.UserID, "error", err.Error())
			}
			return nil, common.ErrRefreshTokenNotFound
		}
		if errors.Is(err, common.ErrUpstreamService) {
			return nil, err
		}
		return nil, common.ErrorInternal
	}

	accessToken, err := auth.GenerateToken(identity.ID, identity.Role, s.jwtSecret, s.location)
	if err != nil {
		return nil, common.ErrorInternal
	}

	newToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := repo.Rotate(ctx, refreshToken, newToken, s.refreshTokenValidityDuration); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "refresh rotation lost race", "user_id", token.UserID)
			return nil, common.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("error rotating refresh token: %w", err)
	}

	s.logger.Info(ctx, "refresh", "user_id", identity.ID)
	return &TokenPair{AccessToken: accessToken, RefreshToken: newToken}, nil
}

// Logout revokes the given refresh token. An unknown token yields
// common.ErrRefreshTokenNotFound; callers treat that as a client error, not a
// server fault. Outstanding access tokens are not revocable and expire at end
// of day.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	repo := s.repomanager.RefreshTokens(s.db)

	if err := repo.Delete(ctx, refreshToken); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrRefreshTokenNotFound
		}
		return fmt.Errorf("error deleting refresh token: %w", err)
	}

	s.logger.Info(ctx, "logout")
	return nil
}

// Validate checks an access token's signature and expiry. No store lookup is
// involved. Expired and malformed tokens are reported distinctly.
func (s *SessionService) Validate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	return auth.ParseToken(accessToken, s.jwtSecret)
}

func (s *SessionService) generateTokenPair(ctx context.Context, userID string, role roles.Role) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, role, s.jwtSecret, s.location)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refreshRepo := s.repomanager.RefreshTokens(s.db)
	if err := refreshRepo.Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
