// Package source loads single images from local files or http(s) URLs.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	// Registers the WebP format with image.Decode, which imaging.Decode uses.
	_ "golang.org/x/image/webp"
)

// DefaultFetchTimeout bounds URL downloads.
const DefaultFetchTimeout = 30 * time.Second

// maxImageBytes caps how much is read from a URL.
const maxImageBytes = 50 << 20

const userAgent = "banknotes/1.0"

var (
	// ErrDecode is returned when the bytes are not a decodable image.
	ErrDecode = errors.New("failed to decode image")

	// ErrEmptyInput is returned for a blank path or URL.
	ErrEmptyInput = errors.New("empty image path or URL")
)

// IsURL reports whether input should be fetched over the network.
func IsURL(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Loader reads images into BGR Mats.
type Loader struct {
	httpClient *http.Client
}

// NewLoader creates a Loader whose downloads time out after timeout.
func NewLoader(timeout time.Duration) *Loader {
	return &Loader{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Load reads input from a URL or a local path and decodes it.
// The caller is responsible for closing the returned Mat.
func (l *Loader) Load(ctx context.Context, input string) (gocv.Mat, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return gocv.NewMat(), ErrEmptyInput
	}

	var (
		data []byte
		err  error
	)
	if IsURL(input) {
		data, err = l.fetch(ctx, input)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return gocv.NewMat(), err
	}

	return Decode(data)
}

// fetch downloads the body of an image URL.
func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return data, nil
}

// Decode turns encoded image bytes into a BGR Mat.
// OpenCV codecs are tried first; formats it cannot read fall back to the Go decoders.
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), ErrDecode
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	mat.Close()

	img, err := decodeGo(data)
	if err != nil {
		return gocv.NewMat(), err
	}

	return fromImage(img)
}

// fromImage converts a decoded Go image into a 3-channel BGR Mat.
func fromImage(img image.Image) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), ErrDecode
	}

	return mat, nil
}

// decodeGo decodes with the registered Go decoders, honouring EXIF orientation.
func decodeGo(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}
