// Package httpapi exposes the authorization core over HTTP. Handlers are a
// thin translation layer: decode the request, call the service, map the
// service error to a status code and a stable snake_case error code.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sgescolar/authcore/internal/logging"
	"github.com/sgescolar/authcore/internal/server/auth"
	"github.com/sgescolar/authcore/internal/server/models"
	"github.com/sgescolar/authcore/internal/server/roles"
	"github.com/sgescolar/authcore/internal/server/services"
)

// SessionAPI is the slice of SessionService the HTTP layer consumes.
type SessionAPI interface {
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Validate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

// EntitlementAPI is the slice of EntitlementService the HTTP layer consumes.
type EntitlementAPI interface {
	CreateFeature(ctx context.Context, actor services.Actor, feature *models.Feature) (*models.Feature, error)
	UpdateFeature(ctx context.Context, actor services.Actor, feature *models.Feature) error
	DeleteFeature(ctx context.Context, actor services.Actor, featureID string) error
	GetFeature(ctx context.Context, featureID string) (*models.Feature, error)
	ListFeatures(ctx context.Context) ([]models.Feature, error)
	ListUserFeatures(ctx context.Context, userID string) ([]models.Feature, error)
	AssignFeature(ctx context.Context, actor services.Actor, userID, featureID string) error
	UnassignFeature(ctx context.Context, actor services.Actor, userID, featureID string) error
	HasFeature(ctx context.Context, userID, featureName string) (bool, error)
	Authorize(ctx context.Context, actor services.Actor, featureName string, bypassRoles []roles.Role) error
	AssignFeatureToBatch(ctx context.Context, actor services.Actor, featureID string, role roles.Role, districtID, schoolID string) (*services.BatchResult, error)
	RemoveFeatureFromBatch(ctx context.Context, actor services.Actor, featureID string, role roles.Role, districtID, schoolID string) (*services.BatchResult, error)
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	sessions     SessionAPI
	entitlements EntitlementAPI
	logger       logging.Logger
}

// NewServer constructs the HTTP server facade.
func NewServer(sessions SessionAPI, entitlements EntitlementAPI, logger logging.Logger) *Server {
	return &Server{
		sessions:     sessions,
		entitlements: entitlements,
		logger:       logger.With("module", "httpapi"),
	}
}

// Router builds the route table. Auth endpoints take tokens in the request
// body; everything else requires a bearer access token.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)
	r.Post("/auth/logout", s.handleLogout)
	r.Post("/auth/validate", s.handleValidate)

	r.With(s.authMiddleware).Post("/permissions/check", s.handlePermissionCheck)

	manage := s.requireRoles(roles.Master, roles.Inspetor)

	r.Route("/features", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListFeatures)
		r.Get("/{featureID}", s.handleGetFeature)

		r.With(manage).Post("/", s.handleCreateFeature)
		r.With(manage).Put("/{featureID}", s.handleUpdateFeature)
		r.With(manage).Delete("/{featureID}", s.handleDeleteFeature)

		r.With(manage).Post("/{featureID}/assignments", s.handleAssignFeature)
		r.With(manage).Delete("/{featureID}/assignments/{userID}", s.handleUnassignFeature)

		r.With(manage).Post("/{featureID}/batch-assignments", s.handleBatchAssign)
		r.With(manage).Delete("/{featureID}/batch-assignments", s.handleBatchRemove)
	})

	r.With(s.authMiddleware).Get("/users/{userID}/features", s.handleListUserFeatures)
	r.With(s.authMiddleware).Get("/users/{userID}/features/{featureName}", s.handleHasFeature)

	return r
}
