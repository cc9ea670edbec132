package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ClassifierClient talks to the classifier cluster over HTTP JSON. One client
// serves all three classifier roles.
type ClassifierClient struct {
	baseURL string
	client  *http.Client
}

func NewClassifierClient(baseURL string, timeout time.Duration) *ClassifierClient {
	return &ClassifierClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *ClassifierClient) CheckSafety(ctx context.Context, image []byte) (*SafetyResult, error) {
	var out SafetyResult
	if err := c.post(ctx, "/classify/safety", image, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ClassifierClient) DetectSpecies(ctx context.Context, image []byte) ([]Prediction, error) {
	var out struct {
		Predictions []Prediction `json:"predictions"`
	}
	if err := c.post(ctx, "/classify/species", image, &out); err != nil {
		return nil, err
	}
	return out.Predictions, nil
}

func (c *ClassifierClient) ClassifyBreed(ctx context.Context, image []byte, species string) ([]Prediction, error) {
	var out struct {
		Predictions []Prediction `json:"predictions"`
	}
	path := "/classify/breed/" + url.PathEscape(species)
	if err := c.post(ctx, path, image, &out); err != nil {
		return nil, err
	}
	return out.Predictions, nil
}

func (c *ClassifierClient) post(ctx context.Context, path string, image []byte, out interface{}) error {
	payload, err := json.Marshal(map[string]string{
		"image": base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("classifier %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("classifier %s: decode: %w", path, err)
	}
	return nil
}
