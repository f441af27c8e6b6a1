package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion detection constants
const (
	// BlurSize is the Gaussian kernel used to suppress sensor noise.
	BlurSize = 21
	// PixelDiffThreshold is the per-pixel intensity change counted as motion.
	PixelDiffThreshold = 25
	// analysisWidth is the width frames are shrunk to before differencing.
	analysisWidth = 320
)

// MotionDetector compares consecutive frames and reports whether the scene changed.
type MotionDetector struct {
	threshold float64
	prev      gocv.Mat
	hasPrev   bool
	closed    bool
	mu        sync.Mutex
}

// NewMotionDetector creates a detector that reports motion when more than
// threshold percent of the pixels changed.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect returns whether frame differs from the previous one and the changed percentage.
// The first frame after construction or Reset always counts as changed.
// A closed detector reports no motion.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || frame == nil || frame.Empty() {
		return false, 0
	}

	cur := prepare(frame)

	if !m.hasPrev || cur.Rows() != m.prev.Rows() || cur.Cols() != m.prev.Cols() {
		m.prev.Close()
		m.prev = cur
		m.hasPrev = true
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(cur, m.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, PixelDiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100.0

	m.prev.Close()
	m.prev = cur

	return changed > m.threshold, changed
}

// prepare shrinks, grays and blurs a frame for differencing.
func prepare(frame *gocv.Mat) gocv.Mat {
	small := gocv.NewMat()
	defer small.Close()

	if frame.Cols() > analysisWidth {
		h := frame.Rows() * analysisWidth / frame.Cols()
		gocv.Resize(*frame, &small, image.Pt(analysisWidth, h), 0, 0, gocv.InterpolationArea)
	} else {
		frame.CopyTo(&small)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if small.Channels() > 1 {
		gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)
	} else {
		small.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Pt(BlurSize, BlurSize), 0, 0, gocv.BorderDefault)
	return blurred
}

// Reset forgets the previous frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.prev.Close()
	m.prev = gocv.NewMat()
	m.hasPrev = false
}

// Close releases the stored frame. It is safe to call more than once.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prev.Close()
	m.hasPrev = false
	m.closed = true
}

// Threshold returns the changed-pixel percentage above which motion is reported.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}
