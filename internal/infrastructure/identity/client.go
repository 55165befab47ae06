//go:generate mockgen -source=client.go -destination=mocks/identity_mocks.go -package=mocks

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/skillsync/skillsync-backend/internal/models"
	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
)

// Profile is a user as the identity provider knows it. Role lives in
// the provider's public metadata and mirrors the local users table.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	Role     string `json:"role"`
}

// Client is the identity provider admin API. GetUser backfills local
// users on the first-login race; SetUserRole keeps the provider's role
// metadata authoritative when admins promote or demote.
type Client interface {
	GetUser(ctx context.Context, userID string) (*Profile, error)
	SetUserRole(ctx context.Context, userID string, role models.Role) error
}

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) Client {
	return &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) GetUser(ctx context.Context, userID string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/users/%s", c.baseURL, userID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, pkgerrors.ErrUserNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode identity profile: %w", err)
	}
	if profile.Role == "" {
		profile.Role = string(models.RoleStudent)
	}
	return &profile, nil
}

func (c *httpClient) SetUserRole(ctx context.Context, userID string, role models.Role) error {
	body, err := json.Marshal(map[string]string{"role": string(role)})
	if err != nil {
		return fmt.Errorf("failed to marshal role update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		fmt.Sprintf("%s/users/%s/metadata", c.baseURL, userID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.ErrUserNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}
	return nil
}
