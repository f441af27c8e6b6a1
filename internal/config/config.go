// Package config loads and validates runtime configuration for banknotes.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Environment variables holding the prediction service credentials.
const (
	EnvPredictionKey      = "PREDICTION_KEY"
	EnvPredictionEndpoint = "PREDICTION_ENDPOINT"
)

// Defaults
const (
	DefaultThreshold       = 0.9
	DefaultRequestTimeout  = 30 * time.Second
	DefaultCameraWidth     = 640
	DefaultCameraHeight    = 480
	DefaultMaxProbe        = 10
	DefaultMotionThreshold = 1.0
	DefaultLiveTitle       = "Banknote Detection"
	DefaultResultTitle     = "Detection Result"
)

// ErrMissingCredentials is returned when the prediction key or endpoint is not set.
var ErrMissingCredentials = errors.New("prediction key or endpoint not set")

// Duration is a time.Duration that decodes from a JSON string such as "30s".
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}

	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config holds the application configuration.
// The credentials come from the environment and are never read from or written to files.
type Config struct {
	PredictionKey      string `json:"-"`
	PredictionEndpoint string `json:"-"`

	Threshold      float64  `json:"threshold"`
	RequestTimeout Duration `json:"request_timeout"`

	Camera  CameraConfig  `json:"camera"`
	Display DisplayConfig `json:"display"`
	Motion  MotionConfig  `json:"motion"`
}

// CameraConfig holds capture settings.
type CameraConfig struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	MaxProbe int `json:"max_probe"`
}

// DisplayConfig holds window titles and the optional preview server address.
type DisplayConfig struct {
	LiveTitle   string `json:"live_title"`
	ResultTitle string `json:"result_title"`
	ServeAddr   string `json:"serve_addr"`
}

// MotionConfig controls the optional motion gate in continuous mode.
type MotionConfig struct {
	SkipStaticFrames bool    `json:"skip_static_frames"`
	Threshold        float64 `json:"threshold"`
}

// Default returns a configuration with default values and no credentials.
func Default() *Config {
	return &Config{
		Threshold:      DefaultThreshold,
		RequestTimeout: Duration(DefaultRequestTimeout),
		Camera: CameraConfig{
			Width:    DefaultCameraWidth,
			Height:   DefaultCameraHeight,
			MaxProbe: DefaultMaxProbe,
		},
		Display: DisplayConfig{
			LiveTitle:   DefaultLiveTitle,
			ResultTitle: DefaultResultTitle,
		},
		Motion: MotionConfig{
			SkipStaticFrames: false,
			Threshold:        DefaultMotionThreshold,
		},
	}
}

// Load builds the configuration from defaults, an optional JSON file and the environment.
// It fails if either credential is absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.FromEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv fills the credentials using getenv.
func (c *Config) FromEnv(getenv func(string) string) error {
	c.PredictionKey = getenv(EnvPredictionKey)
	c.PredictionEndpoint = getenv(EnvPredictionEndpoint)

	if c.PredictionKey == "" || c.PredictionEndpoint == "" {
		return fmt.Errorf("%w: configure %s and %s", ErrMissingCredentials, EnvPredictionKey, EnvPredictionEndpoint)
	}
	return nil
}

// MergeFile overlays the values found in a JSON file onto c.
// Fields absent from the file keep their current values.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// SaveToFile writes the non-secret part of the configuration to a JSON file.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Export writes the defaults merged with the optional file at src to dst.
// Credentials are not needed and are never written.
func Export(src, dst string) error {
	cfg := Default()

	if src != "" {
		if err := cfg.MergeFile(src); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	return cfg.SaveToFile(dst)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1")
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}

	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		return fmt.Errorf("camera.width and camera.height must not be negative")
	}

	if c.Camera.MaxProbe < 1 {
		return fmt.Errorf("camera.max_probe must be positive")
	}

	if c.Motion.Threshold <= 0 {
		return fmt.Errorf("motion.threshold must be positive")
	}

	return nil
}

// Timeout returns the request timeout as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout)
}

// DataDir returns the directory used for local application state.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".banknotes"
	}
	return filepath.Join(home, ".banknotes")
}
