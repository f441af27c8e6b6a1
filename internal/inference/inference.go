// Package inference talks to the remote object-detection prediction endpoint.
package inference

import (
	"context"

	"github.com/samber/lo"
)

// BoundingBox is a box normalized to 0..1 relative to the image dimensions.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Prediction is one labeled, confidence-scored box returned by the service.
type Prediction struct {
	TagID       string      `json:"tagId,omitempty"`
	TagName     string      `json:"tagName"`
	Probability float64     `json:"probability"`
	BoundingBox BoundingBox `json:"boundingBox"`
}

// Response is the body returned by the prediction endpoint.
// Created is kept verbatim; the service does not always include a zone offset.
type Response struct {
	ID          string       `json:"id,omitempty"`
	Project     string       `json:"project,omitempty"`
	Iteration   string       `json:"iteration,omitempty"`
	Created     string       `json:"created,omitempty"`
	Predictions []Prediction `json:"predictions"`
}

// Predictor returns the predictions for an encoded image.
type Predictor interface {
	// Predict never fails: errors are logged and reported as no predictions.
	Predict(ctx context.Context, image []byte) []Prediction
}

// Filter returns the predictions whose probability is strictly greater than threshold.
// The input slice is not modified.
func Filter(preds []Prediction, threshold float64) []Prediction {
	return lo.Filter(preds, func(p Prediction, _ int) bool {
		return p.Probability > threshold
	})
}
