package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Request headers expected by the prediction endpoint.
const (
	HeaderPredictionKey = "Prediction-Key"
	ContentTypeOctet    = "application/octet-stream"
)

// maxErrorBody caps how much of an error response is read into an APIError.
const maxErrorBody = 4 << 10

// Client posts images to a fixed prediction endpoint.
type Client struct {
	endpoint   string
	key        string
	httpClient *http.Client
}

// NewClient creates a client for endpoint authenticated with key.
// A zero timeout leaves the request bounded only by the caller's context.
func NewClient(endpoint, key string, timeout time.Duration) (*Client, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if key == "" {
		return nil, ErrNoAPIKey
	}

	return &Client{
		endpoint:   endpoint,
		key:        key,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Predict sends the image and returns its predictions.
// Any failure is logged and yields an empty, non-nil slice.
func (c *Client) Predict(ctx context.Context, image []byte) []Prediction {
	resp, err := c.Detect(ctx, image)
	if err != nil {
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.IsAuthError():
			log.Printf("Failed to fetch predictions: prediction key rejected: %v", err)
		case errors.As(err, &apiErr) && apiErr.IsRateLimited():
			log.Printf("Failed to fetch predictions: rate limited: %v", err)
		default:
			log.Printf("Failed to fetch predictions: %v", err)
		}
		return []Prediction{}
	}
	if resp.Predictions == nil {
		return []Prediction{}
	}
	return resp.Predictions
}

// Detect sends the image and returns the decoded response.
// Non-2xx responses are returned as *APIError.
func (c *Client) Detect(ctx context.Context, image []byte) (*Response, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(HeaderPredictionKey, c.key)
	req.Header.Set("Content-Type", ContentTypeOctet)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &out, nil
}

// parseAPIError builds an APIError from the service's {"code","message"} body when present.
func parseAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code, apiErr.Message = payload.Code, payload.Message
		if payload.Error != nil {
			apiErr.Code, apiErr.Message = payload.Error.Code, payload.Error.Message
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return apiErr
}
