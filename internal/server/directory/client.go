// Package directory implements the client for the external user-directory
// service. The directory owns identity storage and profile data; this core
// only asks it two questions: "who is this user" (by email or id) and "which
// users match this population filter".
//
// Every call is bounded by the configured timeout. A timeout or a non-2xx
// response other than 404 surfaces as common.ErrUpstreamService — never as a
// credential or permission error.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sgescolar/authcore/internal/common"
	"github.com/sgescolar/authcore/internal/server/models"
	"github.com/sgescolar/authcore/internal/server/roles"
)

// Client is the directory contract consumed by services.
type Client interface {
	// FindByEmail resolves an identity by email. Returns common.ErrorNotFound
	// when the directory reports 404.
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)

	// FindByID resolves an identity by user id. Returns common.ErrorNotFound
	// when the directory reports 404.
	FindByID(ctx context.Context, id string) (*models.Identity, error)

	// ListUsers resolves the population matching the filters. Role is
	// required; district and school optionally narrow the result.
	ListUsers(ctx context.Context, role roles.Role, districtID, schoolID string) ([]models.DirectoryUser, error)
}

// HTTPClient talks JSON over HTTP to the directory service.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient constructs a client for the directory at baseURL. Timeout
// bounds every request end to end.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type identityPayload struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	PasswordHash string `json:"passwordHash"`
}

type directoryUserPayload struct {
	ID string `json:"id"`
}

func (c *HTTPClient) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	endpoint := c.baseURL + "/internal/users?email=" + url.QueryEscape(email)
	return c.fetchIdentity(ctx, endpoint)
}

func (c *HTTPClient) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	endpoint := c.baseURL + "/internal/users/" + url.PathEscape(id)
	return c.fetchIdentity(ctx, endpoint)
}

func (c *HTTPClient) ListUsers(ctx context.Context, role roles.Role, districtID, schoolID string) ([]models.DirectoryUser, error) {
	params := url.Values{}
	params.Set("role", string(role))
	if districtID != "" {
		params.Set("districtId", districtID)
	}
	if schoolID != "" {
		params.Set("schoolId", schoolID)
	}
	endpoint := c.baseURL + "/internal/users?" + params.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var payload []directoryUserPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding population response: %v", common.ErrUpstreamService, err)
	}

	users := make([]models.DirectoryUser, 0, len(payload))
	for _, p := range payload {
		users = append(users, models.DirectoryUser{ID: p.ID})
	}
	return users, nil
}

func (c *HTTPClient) fetchIdentity(ctx context.Context, endpoint string) (*models.Identity, error) {
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var payload identityPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding identity response: %v", common.ErrUpstreamService, err)
	}

	// The directory is an external system; role strings outside the known
	// set are quarantined here rather than defaulted.
	role, err := roles.Parse(payload.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: directory returned unknown role %q", common.ErrUpstreamService, payload.Role)
	}

	return &models.Identity{ID: payload.ID, Role: role, PasswordHash: payload.PasswordHash}, nil
}

func (c *HTTPClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", common.ErrUpstreamService, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamService, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, common.ErrorNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: directory responded %d", common.ErrUpstreamService, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", common.ErrUpstreamService, err)
	}
	return body, nil
}
