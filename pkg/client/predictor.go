// Package client provides an HTTP client for the predictor service, for UI
// layers that collect conditions and display predictions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/HatiCode/trafficcast/pkg/dataset"
	"github.com/HatiCode/trafficcast/pkg/features"
	"github.com/HatiCode/trafficcast/pkg/models"
)

// PredictorClient talks to the predictor HTTP API.
// It is safe for concurrent use by multiple goroutines.
type PredictorClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPredictorClient creates a client with a 5 second request timeout.
// The baseURL should include the scheme and host (e.g., "http://localhost:8080").
func NewPredictorClient(baseURL string) *PredictorClient {
	return NewPredictorClientWithTimeout(baseURL, 5*time.Second)
}

// NewPredictorClientWithTimeout creates a client with a custom timeout.
func NewPredictorClientWithTimeout(baseURL string, timeout time.Duration) *PredictorClient {
	return &PredictorClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PredictResponse is the JSON body of POST /predict.
type PredictResponse struct {
	TrafficVolume float64                          `json:"trafficVolume"`
	ModelID       string                           `json:"modelId"`
	Unseen        []features.UnseenCategoryWarning `json:"unseen,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Predict requests a prediction for c. Error kinds survive the round trip:
// a rejected input wraps features.ErrSchemaMismatch and a server without a
// model wraps models.ErrModelUnavailable.
func (c *PredictorClient) Predict(ctx context.Context, cond features.Conditions) (*PredictResponse, error) {
	body, err := json.Marshal(cond)
	if err != nil {
		return nil, fmt.Errorf("encode conditions: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/predict", nil, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var out PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Summary fetches the dataset summary used to bound UI inputs.
func (c *PredictorClient) Summary(ctx context.Context) (*dataset.Summary, error) {
	resp, err := c.do(ctx, http.MethodGet, "/dataset/summary", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var out dataset.Summary
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

func (c *PredictorClient) do(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	var e errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&e)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", features.ErrSchemaMismatch, e.Error)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", models.ErrModelUnavailable, e.Error)
	default:
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, e.Error)
	}
}
