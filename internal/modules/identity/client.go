package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/petlens/core/internal/middleware"
)

// httpUserDataClient calls the user data service's internal deletion endpoint.
type httpUserDataClient struct {
	baseURL string
	client  *http.Client
}

func NewUserDataClient(baseURL string, client *http.Client) UserDataClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpUserDataClient{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

func (c *httpUserDataClient) DeleteUserData(ctx context.Context, userID, role string) (*DeletionSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/v1/users/delete", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(middleware.HeaderUserID, userID)
	req.Header.Set(middleware.HeaderUserRole, role)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user data service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user data service returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Deleted DeletionSummary `json:"deleted"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode deletion response: %w", err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("user data service reported failure")
	}
	return &envelope.Data.Deleted, nil
}
