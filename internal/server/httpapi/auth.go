package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sgescolar/authcore/internal/common"
	"github.com/sgescolar/authcore/internal/server/metrics"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	pair, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidCredentials):
			metrics.Logins.WithLabelValues("invalid_credentials").Inc()
		case errors.Is(err, common.ErrUpstreamService):
			metrics.Logins.WithLabelValues("upstream_error").Inc()
		default:
			metrics.Logins.WithLabelValues("error").Inc()
		}
		writeServiceError(w, err)
		return
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "missing_refresh_token")
		return
	}

	pair, err := s.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "missing_refresh_token")
		return
	}

	if err := s.sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		// an unknown token is a client mistake, not an auth failure
		if errors.Is(err, common.ErrRefreshTokenNotFound) {
			writeError(w, http.StatusBadRequest, "invalid_refresh_token")
			return
		}
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type validateRequest struct {
	AccessToken string `json:"accessToken"`
}

type validateResponse struct {
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expiresAt"`
}

// handleValidate lets collaborating services check an access token without
// sharing the signing secret.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "missing_access_token")
		return
	}

	claims, err := s.sessions.Validate(r.Context(), req.AccessToken)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			metrics.TokenValidations.WithLabelValues("expired").Inc()
		} else {
			metrics.TokenValidations.WithLabelValues("invalid").Inc()
		}
		writeServiceError(w, err)
		return
	}

	metrics.TokenValidations.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, validateResponse{
		UserID:    claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Unix(),
	})
}
