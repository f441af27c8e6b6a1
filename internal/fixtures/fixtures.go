// Package fixtures provides recorded prediction responses and synthetic frames for tests.
package fixtures

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/ayusman/banknotes/internal/inference"
	"gocv.io/x/gocv"
)

//go:embed responses/*
var responsesFS embed.FS

// ResponseBody returns the raw JSON of a recorded prediction response.
func ResponseBody(name string) ([]byte, error) {
	data, err := responsesFS.ReadFile("responses/" + name)
	if err != nil {
		return nil, fmt.Errorf("load response %s: %w", name, err)
	}
	return data, nil
}

// LoadResponse decodes a recorded prediction response.
func LoadResponse(name string) (*inference.Response, error) {
	data, err := ResponseBody(name)
	if err != nil {
		return nil, err
	}

	var resp inference.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode response %s: %w", name, err)
	}
	return &resp, nil
}

// SolidFrame returns a width x height BGR frame filled with one color.
// The caller is responsible for closing it.
func SolidFrame(width, height int, b, g, r float64) *gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(b, g, r, 0))
	return &mat
}

// Sequence returns n copies of a solid frame, as a static camera would deliver.
func Sequence(n, width, height int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		frames[i] = SolidFrame(width, height, 40, 40, 40)
	}
	return frames
}

// CloseAll closes every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
