package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/petlens/core/internal/middleware"
)

// PetFetcher resolves a pet through the user data service with the caller's
// identity, so ownership is enforced there.
type PetFetcher interface {
	FetchPet(ctx context.Context, userID, role, petID string) (*Pet, error)
}

type httpPetFetcher struct {
	baseURL string
	client  *http.Client
}

func NewPetFetcher(baseURL string, client *http.Client) PetFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpPetFetcher{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

func (f *httpPetFetcher) FetchPet(ctx context.Context, userID, role, petID string) (*Pet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.baseURL+"/api/v1/pets/"+petID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(middleware.HeaderUserID, userID)
	req.Header.Set(middleware.HeaderUserRole, role)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user data service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPetNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user data service returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Pet Pet `json:"pet"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode pet response: %w", err)
	}
	if !envelope.Success {
		return nil, ErrPetNotFound
	}
	return &envelope.Data.Pet, nil
}
