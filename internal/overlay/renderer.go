// Package overlay draws prediction boxes and labels onto frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/ayusman/banknotes/internal/inference"
	"gocv.io/x/gocv"
)

// Style controls how detections are drawn.
type Style struct {
	Color       color.RGBA
	Thickness   int
	FontScale   float64
	LabelOffset int // pixels between the label baseline and the box top
}

// DefaultStyle returns a green box with a label just above it.
func DefaultStyle() Style {
	return Style{
		Color:       color.RGBA{0, 255, 0, 0},
		Thickness:   2,
		FontScale:   0.6,
		LabelOffset: 10,
	}
}

// Renderer overlays predictions above a probability threshold.
type Renderer struct {
	Threshold float64
	Style     Style
}

// NewRenderer creates a Renderer with the default style.
func NewRenderer(threshold float64) *Renderer {
	return &Renderer{
		Threshold: threshold,
		Style:     DefaultStyle(),
	}
}

// BoxToRect maps a normalized box onto a width x height frame.
// Coordinates are truncated, not rounded.
func BoxToRect(box inference.BoundingBox, width, height int) image.Rectangle {
	w, h := float64(width), float64(height)

	left := int(box.Left * w)
	top := int(box.Top * h)
	right := int((box.Left + box.Width) * w)
	bottom := int((box.Top + box.Height) * h)

	return image.Rect(left, top, right, bottom)
}

// Label formats the text drawn next to a detection, e.g. "50_euro (97.25%)".
func Label(p inference.Prediction) string {
	return fmt.Sprintf("%s (%.2f%%)", p.TagName, p.Probability*100)
}

// Render draws every prediction above the threshold onto frame and returns it.
// The frame is modified in place; preds is never modified.
func (r *Renderer) Render(frame *gocv.Mat, preds []inference.Prediction) *gocv.Mat {
	if frame == nil || frame.Empty() {
		return frame
	}

	if len(preds) == 0 {
		log.Println("No valid objects detected.")
		return frame
	}

	width, height := frame.Cols(), frame.Rows()

	for _, p := range inference.Filter(preds, r.Threshold) {
		rect := BoxToRect(p.BoundingBox, width, height)

		gocv.Rectangle(frame, rect, r.Style.Color, r.Style.Thickness)

		// image.Rect canonicalizes, so use the unswapped left/top for the label origin
		origin := image.Pt(int(p.BoundingBox.Left*float64(width)), int(p.BoundingBox.Top*float64(height))-r.Style.LabelOffset)
		gocv.PutText(frame, Label(p), origin, gocv.FontHersheySimplex, r.Style.FontScale, r.Style.Color, r.Style.Thickness)

		log.Printf("Detected: %s with probability %.2f%%", p.TagName, p.Probability*100)
	}

	return frame
}
