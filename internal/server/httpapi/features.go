package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sgescolar/authcore/internal/common"
	"github.com/sgescolar/authcore/internal/server/metrics"
	"github.com/sgescolar/authcore/internal/server/models"
	"github.com/sgescolar/authcore/internal/server/roles"
	"github.com/sgescolar/authcore/internal/server/services"
)

type featureRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Route       string `json:"route"`
	Active      bool   `json:"active"`
}

type featureResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Route       string `json:"route"`
	Active      bool   `json:"active"`
}

func mapFeatureResponse(f *models.Feature) featureResponse {
	return featureResponse{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Route:       f.Route,
		Active:      f.Active,
	}
}

func (s *Server) handleCreateFeature(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req featureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	feature, err := s.entitlements.CreateFeature(r.Context(), actor, &models.Feature{
		Name:        req.Name,
		Description: req.Description,
		Route:       req.Route,
		Active:      req.Active,
	})
	if err != nil {
		if errors.Is(err, common.ErrPermissionDenied) {
			metrics.PermissionDenials.WithLabelValues("entitlement").Inc()
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapFeatureResponse(feature))
}

func (s *Server) handleUpdateFeature(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	featureID := chi.URLParam(r, "featureID")

	var req featureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	feature := &models.Feature{
		ID:          featureID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Route:       req.Route,
		Active:      req.Active,
	}
	if err := s.entitlements.UpdateFeature(r.Context(), actor, feature); err != nil {
		if errors.Is(err, common.ErrPermissionDenied) {
			metrics.PermissionDenials.WithLabelValues("entitlement").Inc()
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapFeatureResponse(feature))
}

func (s *Server) handleDeleteFeature(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	if err := s.entitlements.DeleteFeature(r.Context(), actor, chi.URLParam(r, "featureID")); err != nil {
		if errors.Is(err, common.ErrPermissionDenied) {
			metrics.PermissionDenials.WithLabelValues("entitlement").Inc()
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleGetFeature(w http.ResponseWriter, r *http.Request) {
	feature, err := s.entitlements.GetFeature(r.Context(), chi.URLParam(r, "featureID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapFeatureResponse(feature))
}

func (s *Server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := s.entitlements.ListFeatures(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]featureResponse, 0, len(features))
	for i := range features {
		resp = append(resp, mapFeatureResponse(&features[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

type assignmentRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) handleAssignFeature(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req assignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id")
		return
	}

	featureID := chi.URLParam(r, "featureID")

	if err := s.entitlements.AssignFeature(r.Context(), actor, req.UserID, featureID); err != nil {
		if errors.Is(err, common.ErrPermissionDenied) {
			metrics.PermissionDenials.WithLabelValues("entitlement").Inc()
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

func (s *Server) handleUnassignFeature(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	featureID := chi.URLParam(r, "featureID")
	userID := chi.URLParam(r, "userID")

	if err := s.entitlements.UnassignFeature(r.Context(), actor, userID, featureID); err != nil {
		if errors.Is(err, common.ErrPermissionDenied) {
			metrics.PermissionDenials.WithLabelValues("entitlement").Inc()
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "unassigned"})
}

type batchRequest struct {
	Role       string `json:"role"`
	DistrictID string `json:"districtId,omitempty"`
	SchoolID   string `json:"schoolId,omitempty"`
}

type batchResponse struct {
	Assigned int `json:"assigned,omitempty"`
	Removed  int `json:"removed,omitempty"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (s *Server) handleBatchAssign(w http.ResponseWriter, r *http.Request) {
	s.handleBatch(w, r, s.entitlements.AssignFeatureToBatch)
}

func (s *Server) handleBatchRemove(w http.ResponseWriter, r *http.Request) {
	s.handleBatch(w, r, s.entitlements.RemoveFeatureFromBatch)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, actor services.Actor, featureID string, role roles.Role, districtID, schoolID string) (*services.BatchResult, error)) {

	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	role, err := roles.Parse(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	result, err := op(r.Context(), actor, chi.URLParam(r, "featureID"), role, req.DistrictID, req.SchoolID)
	if err != nil {
		if errors.Is(err, common.ErrPermissionDenied) {
			metrics.PermissionDenials.WithLabelValues("entitlement").Inc()
		}
		writeServiceError(w, err)
		return
	}

	metrics.BatchGrantFailures.Add(float64(result.Failed))
	writeJSON(w, http.StatusOK, batchResponse{
		Assigned: result.Assigned,
		Removed:  result.Removed,
		Skipped:  result.Skipped,
		Failed:   result.Failed,
	})
}

type hasFeatureResponse struct {
	UserID  string `json:"userId"`
	Feature string `json:"feature"`
	Granted bool   `json:"granted"`
}

// handleHasFeature answers the entitlement question collaborating services
// ask on every gated request: does this user hold this feature.
func (s *Server) handleHasFeature(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	featureName := chi.URLParam(r, "featureName")

	granted, err := s.entitlements.HasFeature(r.Context(), userID, featureName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, hasFeatureResponse{
		UserID:  userID,
		Feature: featureName,
		Granted: granted,
	})
}

// handleListUserFeatures returns the user's active grants, for administrative
// views of who holds what.
func (s *Server) handleListUserFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := s.entitlements.ListUserFeatures(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]featureResponse, 0, len(features))
	for i := range features {
		resp = append(resp, mapFeatureResponse(&features[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}
