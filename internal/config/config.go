// Package config defines the enumerated configuration knobs, loaded with
// flag and environment variable overrides plus an optional YAML file
// overlay.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full enumerated knob set for tuning capture, pipeline,
// and transport behavior.
type Config struct {
	CameraIndex             int     `yaml:"camera_index"`
	CameraWidth             int     `yaml:"camera_width"`
	CameraHeight            int     `yaml:"camera_height"`
	TargetFPS               int     `yaml:"target_fps"`
	MaxHands                int     `yaml:"max_hands"`
	MinDetectionConfidence  float64 `yaml:"min_detection_confidence"`
	MinTrackingConfidence   float64 `yaml:"min_tracking_confidence"`
	PipelineBufferSize      int     `yaml:"pipeline_buffer_size"`
	PipelineDropFrames      bool    `yaml:"pipeline_drop_frames"`
	MaxWebSocketConnections int     `yaml:"max_websocket_connections"`
	GestureUpdateInterval   float64 `yaml:"gesture_update_interval"`
	AllowedOrigins          []string `yaml:"allowed_origins"`
	DefaultProject          string  `yaml:"default_project"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		CameraIndex:             0,
		CameraWidth:             640,
		CameraHeight:            480,
		TargetFPS:               30,
		MaxHands:                2,
		MinDetectionConfidence:  0.7,
		MinTrackingConfidence:   0.5,
		PipelineBufferSize:      5,
		PipelineDropFrames:      true,
		MaxWebSocketConnections: 10,
		GestureUpdateInterval:   0.033,
		AllowedOrigins:          []string{"localhost:3000", "localhost:5173"},
		DefaultProject:          "finger_count",
	}
}

// Validate clamps or rejects out-of-range values.
func (c *Config) Validate() error {
	if c.CameraIndex < 0 {
		return fmt.Errorf("camera_index must be >= 0, got %d", c.CameraIndex)
	}
	c.CameraWidth = clampInt(c.CameraWidth, 320, 1920)
	c.CameraHeight = clampInt(c.CameraHeight, 320, 1920)
	c.TargetFPS = clampInt(c.TargetFPS, 1, 120)
	c.MaxHands = clampInt(c.MaxHands, 1, 4)
	c.MinDetectionConfidence = clampFloat(c.MinDetectionConfidence, 0, 1)
	c.MinTrackingConfidence = clampFloat(c.MinTrackingConfidence, 0, 1)
	c.PipelineBufferSize = clampInt(c.PipelineBufferSize, 1, 30)
	c.MaxWebSocketConnections = clampInt(c.MaxWebSocketConnections, 1, 100)
	c.GestureUpdateInterval = clampFloat(c.GestureUpdateInterval, 0.016, 0.5)
	if c.DefaultProject == "" {
		return fmt.Errorf("default_project must not be empty")
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LoadFromFile overlays YAML config file contents onto the receiver.
// Missing files are not an error (the overlay is optional); malformed
// YAML is.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv overlays recognized environment variables onto the
// receiver, matching the prior os.Getenv-fallback convention.
func (c *Config) LoadFromEnv() {
	if v, ok := os.LookupEnv("CAMERA_INDEX"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.CameraIndex = n
		}
	}
	if v, ok := os.LookupEnv("CAMERA_WIDTH"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.CameraWidth = n
		}
	}
	if v, ok := os.LookupEnv("CAMERA_HEIGHT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.CameraHeight = n
		}
	}
	if v, ok := os.LookupEnv("TARGET_FPS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.TargetFPS = n
		}
	}
	if v, ok := os.LookupEnv("MAX_HANDS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxHands = n
		}
	}
	if v, ok := os.LookupEnv("DEFAULT_PROJECT"); ok && v != "" {
		c.DefaultProject = v
	}
}

// RegisterFlags binds flag.FlagSet entries to the config's fields.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.CameraIndex, "camera-index", c.CameraIndex, "camera device index")
	fs.IntVar(&c.CameraWidth, "camera-width", c.CameraWidth, "requested capture width")
	fs.IntVar(&c.CameraHeight, "camera-height", c.CameraHeight, "requested capture height")
	fs.IntVar(&c.TargetFPS, "target-fps", c.TargetFPS, "pipeline pacing in frames/sec")
	fs.IntVar(&c.MaxHands, "max-hands", c.MaxHands, "extractor hand cap")
	fs.IntVar(&c.PipelineBufferSize, "buffer-size", c.PipelineBufferSize, "frame buffer capacity")
	fs.IntVar(&c.MaxWebSocketConnections, "max-ws-connections", c.MaxWebSocketConnections, "hub connection cap")
	fs.Float64Var(&c.GestureUpdateInterval, "gesture-update-interval", c.GestureUpdateInterval, "min seconds between outbound gesture_data pushes")
	fs.StringVar(&c.DefaultProject, "default-project", c.DefaultProject, "project auto-loaded on start")
}
