package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sgescolar/authcore/internal/common"
	"github.com/sgescolar/authcore/internal/dbx"
	"github.com/sgescolar/authcore/internal/logging"
	"github.com/sgescolar/authcore/internal/server/models"
	"github.com/sgescolar/authcore/internal/server/repositories/features"
	"github.com/sgescolar/authcore/internal/server/repositories/refreshtokens"
	"github.com/sgescolar/authcore/internal/server/repositories/userfeatures"
	"github.com/sgescolar/authcore/internal/server/roles"
)

// nopLogger discards everything; service tests assert behavior, not logs.
type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (nopLogger) With(args ...any) logging.Logger                    { return nopLogger{} }

// fakeDirectory serves identities and populations from maps.
type fakeDirectory struct {
	byEmail    map[string]*models.Identity
	byID       map[string]*models.Identity
	population []models.DirectoryUser
	err        error
}

func (d *fakeDirectory) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	if d.err != nil {
		return nil, d.err
	}
	if id, ok := d.byEmail[email]; ok {
		return id, nil
	}
	return nil, common.ErrorNotFound
}

func (d *fakeDirectory) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	if d.err != nil {
		return nil, d.err
	}
	if identity, ok := d.byID[id]; ok {
		return identity, nil
	}
	return nil, common.ErrorNotFound
}

func (d *fakeDirectory) ListUsers(ctx context.Context, role roles.Role, districtID, schoolID string) ([]models.DirectoryUser, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.population, nil
}

// fakeRefreshTokenRepo keeps tokens in a map keyed by token string.
type fakeRefreshTokenRepo struct {
	tokens    map[string]*models.RefreshToken
	createErr error
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[string]*models.RefreshToken)}
}

func (r *fakeRefreshTokenRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.tokens[token] = &models.RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(validity),
	}
	return nil
}

func (r *fakeRefreshTokenRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := r.tokens[token]; ok {
		return t, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeRefreshTokenRepo) Rotate(ctx context.Context, oldToken, newToken string, validity time.Duration) error {
	t, ok := r.tokens[oldToken]
	if !ok {
		return common.ErrorNotFound
	}
	delete(r.tokens, oldToken)
	t.Token = newToken
	t.ExpiresAt = time.Now().Add(validity)
	r.tokens[newToken] = t
	return nil
}

func (r *fakeRefreshTokenRepo) Delete(ctx context.Context, token string) error {
	if _, ok := r.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(r.tokens, token)
	return nil
}

// fakeFeatureRepo keeps feature definitions in memory.
type fakeFeatureRepo struct {
	byID      map[string]*models.Feature
	forUser   map[string][]models.Feature
	createErr error
}

func newFakeFeatureRepo(feats ...*models.Feature) *fakeFeatureRepo {
	r := &fakeFeatureRepo{byID: make(map[string]*models.Feature), forUser: make(map[string][]models.Feature)}
	for _, f := range feats {
		r.byID[f.ID] = f
	}
	return r
}

func (r *fakeFeatureRepo) Create(ctx context.Context, feature *models.Feature) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.byID[feature.ID] = feature
	return nil
}

func (r *fakeFeatureRepo) Update(ctx context.Context, feature *models.Feature) error {
	if _, ok := r.byID[feature.ID]; !ok {
		return common.ErrorNotFound
	}
	r.byID[feature.ID] = feature
	return nil
}

func (r *fakeFeatureRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeFeatureRepo) GetByID(ctx context.Context, id string) (*models.Feature, error) {
	if f, ok := r.byID[id]; ok {
		return f, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeFeatureRepo) GetByName(ctx context.Context, name string) (*models.Feature, error) {
	for _, f := range r.byID {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeFeatureRepo) List(ctx context.Context) ([]models.Feature, error) {
	out := make([]models.Feature, 0, len(r.byID))
	for _, f := range r.byID {
		out = append(out, *f)
	}
	return out, nil
}

func (r *fakeFeatureRepo) ListForUser(ctx context.Context, userID string) ([]models.Feature, error) {
	return r.forUser[userID], nil
}

// fakeUserFeatureRepo keys grants by "userID/featureID".
type fakeUserFeatureRepo struct {
	grants     map[string]*models.UserFeature
	createErrs map[string]error // per-user injected failures
	deleteErrs map[string]error
}

func newFakeUserFeatureRepo() *fakeUserFeatureRepo {
	return &fakeUserFeatureRepo{
		grants:     make(map[string]*models.UserFeature),
		createErrs: make(map[string]error),
		deleteErrs: make(map[string]error),
	}
}

func grantKey(userID, featureID string) string {
	return fmt.Sprintf("%s/%s", userID, featureID)
}

func (r *fakeUserFeatureRepo) Create(ctx context.Context, grant *models.UserFeature) error {
	if err := r.createErrs[grant.UserID]; err != nil {
		return err
	}
	r.grants[grantKey(grant.UserID, grant.FeatureID)] = grant
	return nil
}

func (r *fakeUserFeatureRepo) Delete(ctx context.Context, userID, featureID string) error {
	if err := r.deleteErrs[userID]; err != nil {
		return err
	}
	key := grantKey(userID, featureID)
	if _, ok := r.grants[key]; !ok {
		return common.ErrorNotFound
	}
	delete(r.grants, key)
	return nil
}

func (r *fakeUserFeatureRepo) FindActive(ctx context.Context, userID, featureID string) (*models.UserFeature, error) {
	if g, ok := r.grants[grantKey(userID, featureID)]; ok && g.Active {
		return g, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUserFeatureRepo) ListActiveUserIDs(ctx context.Context, featureID string) ([]string, error) {
	var ids []string
	for _, g := range r.grants {
		if g.FeatureID == featureID && g.Active {
			ids = append(ids, g.UserID)
		}
	}
	return ids, nil
}

func (r *fakeUserFeatureRepo) DeleteByFeature(ctx context.Context, featureID string) error {
	for key, g := range r.grants {
		if g.FeatureID == featureID {
			delete(r.grants, key)
		}
	}
	return nil
}

// fakeRepoManager hands out the fakes regardless of the handle.
type fakeRepoManager struct {
	refreshTokens *fakeRefreshTokenRepo
	features      *fakeFeatureRepo
	userFeatures  *fakeUserFeatureRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		refreshTokens: newFakeRefreshTokenRepo(),
		features:      newFakeFeatureRepo(),
		userFeatures:  newFakeUserFeatureRepo(),
	}
}

func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return m.refreshTokens
}

func (m *fakeRepoManager) Features(db dbx.DBTX) features.Repository {
	return m.features
}

func (m *fakeRepoManager) UserFeatures(db dbx.DBTX) userfeatures.Repository {
	return m.userFeatures
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context) error { return nil }
