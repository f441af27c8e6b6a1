// Package app runs the detection loops: live camera frames or a single image
// are sent to the prediction service and shown with their detections drawn on top.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ayusman/banknotes/internal/capture"
	"github.com/ayusman/banknotes/internal/config"
	"github.com/ayusman/banknotes/internal/display"
	"github.com/ayusman/banknotes/internal/inference"
	"github.com/ayusman/banknotes/internal/overlay"
	"github.com/ayusman/banknotes/internal/source"
	"github.com/ayusman/banknotes/internal/store"
	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// Loop timing.
const (
	// LiveWaitMs is how long continuous mode pumps display events per frame.
	LiveWaitMs = 1
	// ResultPollMs is the poll interval while single-shot mode waits for a key.
	ResultPollMs = 100
)

// ImageLoader loads a still image from a path or URL.
type ImageLoader interface {
	Load(ctx context.Context, input string) (gocv.Mat, error)
}

// Deps holds the collaborators used by App.
type Deps struct {
	Cameras   capture.Provider
	Predictor inference.Predictor
	Loader    ImageLoader

	// NewDisplay opens a display with the given title.
	NewDisplay func(title string) display.Display

	// Store is optional. When set, the last camera and source are remembered.
	Store *store.Store
}

// App orchestrates capture, prediction, rendering and display.
type App struct {
	cfg        *config.Config
	cameras    capture.Provider
	predictor  inference.Predictor
	loader     ImageLoader
	newDisplay func(title string) display.Display
	store      *store.Store
	renderer   *overlay.Renderer
	motion     *capture.MotionDetector
	session    string
}

// New creates a new App instance with the given configuration.
func New(cfg *config.Config, deps Deps) *App {
	a := &App{
		cfg:        cfg,
		cameras:    deps.Cameras,
		predictor:  deps.Predictor,
		loader:     deps.Loader,
		newDisplay: deps.NewDisplay,
		store:      deps.Store,
		renderer:   overlay.NewRenderer(cfg.Threshold),
		session:    uuid.NewString(),
	}

	if a.loader == nil {
		a.loader = source.NewLoader(cfg.Timeout())
	}
	if a.newDisplay == nil {
		a.newDisplay = func(title string) display.Display { return display.NewWindow(title) }
	}
	if cfg.Motion.SkipStaticFrames {
		a.motion = capture.NewMotionDetector(cfg.Motion.Threshold)
	}

	return a
}

// Session returns the identifier attached to published detection events.
func (a *App) Session() string {
	return a.session
}

// Renderer returns the overlay renderer.
func (a *App) Renderer() *overlay.Renderer {
	return a.renderer
}

// ProcessFrame encodes frame as JPEG, sends it for prediction and draws the
// detections onto frame. It returns the unfiltered predictions.
func (a *App) ProcessFrame(ctx context.Context, frame *gocv.Mat) ([]inference.Prediction, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	image := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	preds := a.predictor.Predict(ctx, image)
	a.renderer.Render(frame, preds)

	return preds, nil
}

// RunContinuous streams frames from the camera at deviceIndex until the quit
// key is pressed, a frame cannot be read or ctx is cancelled.
// The camera and the display are always released before it returns.
func (a *App) RunContinuous(ctx context.Context, deviceIndex int) error {
	cam, err := a.cameras.OpenDevice(deviceIndex)
	if err != nil {
		log.Println("Error: Could not open the selected camera.")
		return fmt.Errorf("open camera %d: %w", deviceIndex, err)
	}
	defer func() {
		if err := cam.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}()

	disp := a.newDisplay(a.cfg.Display.LiveTitle)
	defer disp.Close()

	if a.motion != nil {
		a.motion.Reset()
	}

	src := fmt.Sprintf("camera %d", deviceIndex)
	log.Printf("Starting real-time detection (session %s)...", a.session)

	var last []inference.Prediction
	for {
		select {
		case <-ctx.Done():
			log.Println("Detection interrupted")
			return nil
		default:
		}

		frame, err := cam.ReadFrame()
		if err != nil {
			log.Printf("Error reading frame: %v", err)
			return nil
		}

		preds, err := a.frame(ctx, frame, last)
		if err != nil {
			log.Printf("Error processing frame: %v", err)
		} else {
			last = preds
			disp.Show(*frame)
			a.publish(disp, src, preds)
		}
		frame.Close()

		if display.IsQuit(disp.WaitKey(LiveWaitMs)) {
			log.Println("Quit requested")
			return nil
		}
	}
}

// frame runs one continuous-mode iteration. With the motion gate enabled,
// static frames reuse the previous predictions instead of calling the service.
func (a *App) frame(ctx context.Context, frame *gocv.Mat, last []inference.Prediction) ([]inference.Prediction, error) {
	if a.motion != nil {
		moved, _ := a.motion.Detect(frame)
		if !moved && last != nil {
			a.renderer.Render(frame, last)
			return last, nil
		}
	}

	return a.ProcessFrame(ctx, frame)
}

// RunSingleShot loads one image from a path or URL, runs detection on it and
// shows the result until a key is pressed or ctx is cancelled.
func (a *App) RunSingleShot(ctx context.Context, input string) error {
	if source.IsURL(input) {
		log.Printf("Fetching image from URL: %s", input)
	} else {
		log.Printf("Reading image from path: %s", input)
	}

	img, err := a.loader.Load(ctx, input)
	if err != nil {
		img.Close()
		log.Println("Failed to load image. Please check the path or URL.")
		return fmt.Errorf("load %q: %w", input, err)
	}
	defer img.Close()

	preds, err := a.ProcessFrame(ctx, &img)
	if err != nil {
		return err
	}

	disp := a.newDisplay(a.cfg.Display.ResultTitle)
	defer disp.Close()

	disp.Show(img)
	a.publish(disp, input, preds)

	for ctx.Err() == nil {
		if disp.WaitKey(ResultPollMs) != display.KeyNone {
			break
		}
	}
	return nil
}

// publish forwards the drawn detections to displays that accept events.
func (a *App) publish(disp display.Display, src string, preds []inference.Prediction) {
	pub, ok := disp.(display.Publisher)
	if !ok {
		return
	}

	pub.Publish(display.Event{
		Session:     a.session,
		Source:      src,
		Predictions: inference.Filter(preds, a.renderer.Threshold),
		At:          time.Now(),
	})
}

// Close releases resources held by the App.
func (a *App) Close() {
	if a.motion != nil {
		a.motion.Close()
	}
}
