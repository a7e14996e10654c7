package httpapi

import (
	"net/http"

	"github.com/sgescolar/authcore/internal/server/metrics"
	"github.com/sgescolar/authcore/internal/server/permissions"
	"github.com/sgescolar/authcore/internal/server/roles"
)

type permissionCheckRequest struct {
	Operation    string `json:"operation"`
	TargetRole   string `json:"targetRole"`
	TargetUserID string `json:"targetId,omitempty"`
}

type permissionCheckResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// handlePermissionCheck answers "may the caller perform this user-management
// operation on a user with the target role". The actor comes from the access
// token, never from the body.
func (s *Server) handlePermissionCheck(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req permissionCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	targetRole, err := roles.Parse(req.TargetRole)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_target_role")
		return
	}

	var decision permissions.Decision
	switch req.Operation {
	case "create":
		decision = permissions.CanCreate(actor.Role, targetRole)
	case "edit":
		decision = permissions.CanEdit(actor.Role, targetRole, actor.ID, req.TargetUserID)
	case "delete":
		decision = permissions.CanDelete(actor.Role, targetRole)
	default:
		writeError(w, http.StatusBadRequest, "invalid_operation")
		return
	}

	if decision.Allowed {
		s.logger.Info(r.Context(), "permission check allowed",
			"actor_id", actor.ID, "actor_role", actor.Role.String(),
			"operation", req.Operation, "target_role", targetRole.String())
	} else {
		metrics.PermissionDenials.WithLabelValues("matrix").Inc()
		s.logger.Warn(r.Context(), "permission check denied",
			"actor_id", actor.ID, "actor_role", actor.Role.String(),
			"operation", req.Operation, "target_role", targetRole.String(),
			"reason", decision.Reason)
	}

	writeJSON(w, http.StatusOK, permissionCheckResponse{
		Allowed: decision.Allowed,
		Reason:  decision.Reason,
	})
}
