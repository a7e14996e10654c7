package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sgescolar/authcore/internal/common"
	"github.com/sgescolar/authcore/internal/server/metrics"
	"github.com/sgescolar/authcore/internal/server/roles"
	"github.com/sgescolar/authcore/internal/server/services"
)

type actorKey struct{}

func actorFromContext(ctx context.Context) (services.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(services.Actor)
	return actor, ok
}

// authMiddleware validates the bearer access token and stashes the resulting
// actor in the request context. Expired and malformed tokens get distinct
// error codes so clients know whether to refresh or re-login.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := s.sessions.Validate(r.Context(), token)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				metrics.TokenValidations.WithLabelValues("expired").Inc()
				writeError(w, http.StatusUnauthorized, "token_expired")
				return
			}
			metrics.TokenValidations.WithLabelValues("invalid").Inc()
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		metrics.TokenValidations.WithLabelValues("ok").Inc()

		actor := services.Actor{ID: claims.Subject, Role: roles.Role(claims.Role)}
		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRoles rejects callers whose role is not in the allowed set. It runs
// after authMiddleware; the service layer enforces the same rule, this just
// fails fast before any body parsing.
func (s *Server) requireRoles(allowed ...roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actorFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			for _, role := range allowed {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			metrics.PermissionDenials.WithLabelValues("entitlement").Inc()
			writeError(w, http.StatusForbidden, "forbidden")
		})
	}
}

// requireFeature gates a route behind a feature entitlement: Master and the
// bypass roles pass unconditionally, everyone else needs an active grant for
// featureName. Mount on routes owned by collaborating surfaces that delegate
// their feature gate here.
func (s *Server) requireFeature(featureName string, bypass ...roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actorFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			if err := s.entitlements.Authorize(r.Context(), actor, featureName, bypass); err != nil {
				if errors.Is(err, common.ErrPermissionDenied) {
					metrics.PermissionDenials.WithLabelValues("entitlement").Inc()
				}
				writeServiceError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeServiceError maps service-layer sentinel errors onto status codes and
// stable error codes. Unrecognized errors become 500 server_error.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, common.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "token_expired")
	case errors.Is(err, common.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "invalid_token")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		writeError(w, http.StatusUnauthorized, "refresh_token_expired")
	case errors.Is(err, common.ErrRefreshTokenNotFound):
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
	case errors.Is(err, common.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, common.ErrDuplicateAssignment):
		writeError(w, http.StatusConflict, "already_assigned")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, common.ErrUpstreamService):
		writeError(w, http.StatusBadGateway, "upstream_unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}
