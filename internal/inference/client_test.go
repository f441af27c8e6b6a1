package inference

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const sampleResponse = `{
	"id": "7796df8e-acbc-45fc-90b4-1b0c81b73639",
	"project": "8622c779-471c-4b6e-842c-67a11deffd7b",
	"iteration": "59ec199d-f3fb-443a-b708-4bca79e1b7f7",
	"created": "2024-03-01T10:00:00Z",
	"predictions": [
		{
			"probability": 0.95,
			"tagId": "a1",
			"tagName": "100_euro",
			"boundingBox": {"left": 0.1, "top": 0.2, "width": 0.3, "height": 0.4}
		},
		{
			"probability": 0.42,
			"tagId": "b2",
			"tagName": "20_euro",
			"boundingBox": {"left": 0.5, "top": 0.5, "width": 0.1, "height": 0.1}
		}
	]
}`

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(url, "test-key", 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		key      string
		wantErr  error
	}{
		{"valid", "https://example.com/detect", "k", nil},
		{"missing endpoint", "", "k", ErrNoEndpoint},
		{"missing key", "https://example.com/detect", "", ErrNoAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.endpoint, tt.key, 0)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewClient() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && c.Endpoint() != tt.endpoint {
				t.Errorf("Endpoint() = %q, want %q", c.Endpoint(), tt.endpoint)
			}
		})
	}
}

func TestClient_Detect_SendsHeadersAndBody(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Prediction-Key"); got != "test-key" {
			t.Errorf("Prediction-Key = %q, want test-key", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/octet-stream" {
			t.Errorf("Content-Type = %q, want application/octet-stream", got)
		}
		body, _ := io.ReadAll(r.Body)
		if diff := cmp.Diff(image, body); diff != "" {
			t.Errorf("body mismatch (-want +got):\n%s", diff)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, sampleResponse)
	}))
	defer ts.Close()

	resp, err := newTestClient(t, ts.URL).Detect(context.Background(), image)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	want := []Prediction{
		{TagID: "a1", TagName: "100_euro", Probability: 0.95, BoundingBox: BoundingBox{Left: 0.1, Top: 0.2, Width: 0.3, Height: 0.4}},
		{TagID: "b2", TagName: "20_euro", Probability: 0.42, BoundingBox: BoundingBox{Left: 0.5, Top: 0.5, Width: 0.1, Height: 0.1}},
	}
	if diff := cmp.Diff(want, resp.Predictions); diff != "" {
		t.Errorf("predictions mismatch (-want +got):\n%s", diff)
	}
	if resp.Project != "8622c779-471c-4b6e-842c-67a11deffd7b" {
		t.Errorf("Project = %q", resp.Project)
	}
	if resp.Created != "2024-03-01T10:00:00Z" {
		t.Errorf("Created = %q, want 2024-03-01T10:00:00Z", resp.Created)
	}
}

func TestClient_Detect_APIError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    string
		wantMessage string
	}{
		{
			name:        "custom vision error body",
			status:      http.StatusUnauthorized,
			body:        `{"code": "Unauthorized", "message": "Invalid prediction key."}`,
			wantCode:    "Unauthorized",
			wantMessage: "Invalid prediction key.",
		},
		{
			name:        "nested error body",
			status:      http.StatusTooManyRequests,
			body:        `{"error": {"code": "429", "message": "Rate limit is exceeded."}}`,
			wantCode:    "429",
			wantMessage: "Rate limit is exceeded.",
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			body:        "upstream unavailable",
			wantMessage: "upstream unavailable",
		},
		{
			name:        "empty body",
			status:      http.StatusInternalServerError,
			wantMessage: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			_, err := newTestClient(t, ts.URL).Detect(context.Background(), []byte("img"))

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Detect() error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantCode)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
		})
	}
}

func TestClient_Detect_EmptyImage(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	if _, err := c.Detect(context.Background(), nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Detect() error = %v, want ErrEmptyImage", err)
	}
}

func TestClient_Predict_SoftFailure(t *testing.T) {
	t.Run("non-2xx returns empty list", func(t *testing.T) {
		for _, status := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusServiceUnavailable} {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))

			preds := newTestClient(t, ts.URL).Predict(context.Background(), []byte("img"))
			ts.Close()

			if preds == nil {
				t.Fatalf("status %d: Predict() returned nil, want empty slice", status)
			}
			if len(preds) != 0 {
				t.Errorf("status %d: len(preds) = %d, want 0", status, len(preds))
			}
		}
	})

	t.Run("unreachable endpoint returns empty list", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := ts.URL
		ts.Close()

		preds := newTestClient(t, url).Predict(context.Background(), []byte("img"))
		if preds == nil || len(preds) != 0 {
			t.Errorf("Predict() = %v, want empty slice", preds)
		}
	})

	t.Run("timeout returns empty list", func(t *testing.T) {
		release := make(chan struct{})
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer ts.Close()
		defer close(release)

		c, _ := NewClient(ts.URL, "k", 50*time.Millisecond)
		preds := c.Predict(context.Background(), []byte("img"))
		if len(preds) != 0 {
			t.Errorf("len(preds) = %d, want 0", len(preds))
		}
	})

	t.Run("malformed JSON returns empty list", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "{not json")
		}))
		defer ts.Close()

		preds := newTestClient(t, ts.URL).Predict(context.Background(), []byte("img"))
		if preds == nil || len(preds) != 0 {
			t.Errorf("Predict() = %v, want empty slice", preds)
		}
	})

	t.Run("missing predictions key returns empty list", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"id": "x"}`)
		}))
		defer ts.Close()

		preds := newTestClient(t, ts.URL).Predict(context.Background(), []byte("img"))
		if preds == nil || len(preds) != 0 {
			t.Errorf("Predict() = %v, want empty slice", preds)
		}
	})
}

func TestClient_Predict_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sampleResponse)
	}))
	defer ts.Close()

	preds := newTestClient(t, ts.URL).Predict(context.Background(), []byte("img"))
	if len(preds) != 2 {
		t.Fatalf("len(preds) = %d, want 2", len(preds))
	}
	if preds[0].TagName != "100_euro" {
		t.Errorf("TagName = %q, want 100_euro", preds[0].TagName)
	}
}

func TestFilter(t *testing.T) {
	preds := []Prediction{
		{TagName: "below", Probability: 0.5},
		{TagName: "at", Probability: 0.9},
		{TagName: "above", Probability: 0.9000001},
		{TagName: "certain", Probability: 1.0},
	}
	original := append([]Prediction(nil), preds...)

	got := Filter(preds, 0.9)

	var names []string
	for _, p := range got {
		names = append(names, p.TagName)
	}
	if diff := cmp.Diff([]string{"above", "certain"}, names); diff != "" {
		t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(original, preds); diff != "" {
		t.Errorf("Filter() mutated its input (-want +got):\n%s", diff)
	}

	if got := Filter(nil, 0.9); got == nil || len(got) != 0 {
		t.Errorf("Filter(nil) = %v, want empty slice", got)
	}
}

func TestClient_Predict_CreatedWithoutZone(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"created": "2024-03-01T10:00:00", "predictions": [`+
			`{"tagName": "50_euro", "probability": 0.99, "boundingBox": {"left": 0.1, "top": 0.1, "width": 0.2, "height": 0.2}}]}`)
	}))
	defer ts.Close()

	preds := newTestClient(t, ts.URL).Predict(context.Background(), []byte{1})
	if len(preds) != 1 {
		t.Fatalf("len(preds) = %d, want 1", len(preds))
	}
	if preds[0].TagName != "50_euro" || preds[0].Probability != 0.99 {
		t.Errorf("preds[0] = %+v", preds[0])
	}
}

func TestClient_Predict_LogsAPIErrorKind(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"unauthorized", http.StatusUnauthorized, "prediction key rejected"},
		{"forbidden", http.StatusForbidden, "prediction key rejected"},
		{"rate limited", http.StatusTooManyRequests, "rate limited"},
		{"server error", http.StatusInternalServerError, "Failed to fetch predictions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer ts.Close()

			var buf bytes.Buffer
			log.SetOutput(&buf)
			defer log.SetOutput(os.Stderr)

			preds := newTestClient(t, ts.URL).Predict(context.Background(), []byte{1})
			if preds == nil || len(preds) != 0 {
				t.Errorf("Predict() = %v, want empty slice", preds)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("log = %q, want it to contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestAPIError(t *testing.T) {
	rate := &APIError{StatusCode: 429, Message: "slow down"}
	if !rate.IsRateLimited() {
		t.Error("429 should be rate limited")
	}
	if rate.IsAuthError() {
		t.Error("429 is not an auth error")
	}

	auth := &APIError{StatusCode: 401, Code: "Unauthorized", Message: "bad key"}
	if !auth.IsAuthError() {
		t.Error("401 should be an auth error")
	}
	if got, want := auth.Error(), "inference: API error 401 (Unauthorized): bad key"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestMockPredictor(t *testing.T) {
	m := NewMockPredictor()
	var _ Predictor = m

	if preds := m.Predict(context.Background(), []byte("a")); preds == nil || len(preds) != 0 {
		t.Errorf("default Predict() = %v, want empty slice", preds)
	}

	m.SetPredictions([]Prediction{{TagName: "5_euro", Probability: 0.99}})
	preds := m.Predict(context.Background(), []byte("b"))
	if len(preds) != 1 {
		t.Fatalf("len(preds) = %d, want 1", len(preds))
	}
	if m.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", m.Calls())
	}
	if string(m.LastImage()) != "b" {
		t.Errorf("LastImage() = %q, want b", m.LastImage())
	}
}
