package inference

import (
	"context"
	"sync"
)

// MockPredictor is a test implementation of the Predictor interface.
type MockPredictor struct {
	mu     sync.Mutex
	preds  []Prediction
	calls  int
	images [][]byte
}

// NewMockPredictor creates a MockPredictor that returns no predictions.
func NewMockPredictor() *MockPredictor {
	return &MockPredictor{}
}

// SetPredictions sets the predictions returned by Predict.
func (m *MockPredictor) SetPredictions(preds []Prediction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preds = preds
}

// Predict records the call and returns the configured predictions.
func (m *MockPredictor) Predict(ctx context.Context, image []byte) []Prediction {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.images = append(m.images, image)

	if m.preds == nil {
		return []Prediction{}
	}
	return m.preds
}

// Calls returns how many times Predict was called.
func (m *MockPredictor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastImage returns the bytes passed to the most recent Predict call.
func (m *MockPredictor) LastImage() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.images) == 0 {
		return nil
	}
	return m.images[len(m.images)-1]
}
