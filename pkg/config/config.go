// Package config loads the YAML configuration shared by every command.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/offlinefirst/motiontrack/pkg/motion"
	"github.com/offlinefirst/motiontrack/pkg/spring"
)

const DefaultFileName = "config.yaml"

// Config captures the user-adjustable knobs for recording and smoothing.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Recording RecordingConfig `yaml:"recording"`
	Pointer   PointerConfig   `yaml:"pointer"`
	Smoothing SmoothingConfig `yaml:"smoothing"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-"`
}

// PathsConfig controls filesystem locations used by the CLI.
type PathsConfig struct {
	SessionsDir string `yaml:"sessions_dir"`
	IndexPath   string `yaml:"index_path"`
}

// RecordingConfig selects the channels of a recording session.
type RecordingConfig struct {
	DisplayID             string       `yaml:"display_id"`
	DisplayPauseSupported bool         `yaml:"display_pause_supported"`
	Pointer               bool         `yaml:"pointer"`
	SystemAudio           bool         `yaml:"system_audio"`
	Microphone            DeviceConfig `yaml:"microphone"`
	Webcam                DeviceConfig `yaml:"webcam"`
}

// DeviceConfig toggles an optional capture device.
type DeviceConfig struct {
	Enabled        bool   `yaml:"enabled"`
	DeviceID       string `yaml:"device_id"`
	PauseSupported bool   `yaml:"pause_supported"`
}

// PointerConfig tunes the pointer polling loop.
type PointerConfig struct {
	PollHz float64 `yaml:"poll_hz"`
}

// SmoothingConfig holds the spring and resampling parameters.
type SmoothingConfig struct {
	Stiffness         float64 `yaml:"stiffness"`
	Damping           float64 `yaml:"damping"`
	Mass              float64 `yaml:"mass"`
	TeleportThreshold float64 `yaml:"teleport_threshold"`
	OutputFPS         float64 `yaml:"output_fps"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	sp := spring.DefaultConfig()
	return Config{
		Paths: PathsConfig{
			SessionsDir: "sessions",
		},
		Recording: RecordingConfig{
			DisplayID: "display-1",
			Pointer:   true,
			Microphone: DeviceConfig{
				DeviceID:       "default",
				PauseSupported: true,
			},
			Webcam: DeviceConfig{
				DeviceID: "default",
			},
		},
		Pointer: PointerConfig{
			PollHz: 120,
		},
		Smoothing: SmoothingConfig{
			Stiffness:         sp.Stiffness,
			Damping:           sp.Damping,
			Mass:              sp.Mass,
			TeleportThreshold: motion.DefaultTeleportThreshold,
			OutputFPS:         60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader attempts to read ./config.yaml but tolerates a missing file.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	file, err := os.Open(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return cfg, fmt.Errorf("config file %q not found", candidate)
			}
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config file %q: %w", candidate, err)
	}
	defer file.Close()

	if err := decodeYAML(file, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %q: %w", candidate, err)
	}
	cfg.Source = candidate
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// decodeYAML overlays the document onto cfg. Unknown keys are rejected.
func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Paths.SessionsDir) == "" {
		return errors.New("paths.sessions_dir must not be empty")
	}

	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}

	if strings.TrimSpace(c.Recording.DisplayID) == "" {
		return errors.New("recording.display_id must not be empty")
	}
	if c.Recording.Microphone.Enabled && strings.TrimSpace(c.Recording.Microphone.DeviceID) == "" {
		return errors.New("recording.microphone.device_id must not be empty when enabled")
	}
	if c.Recording.Webcam.Enabled && strings.TrimSpace(c.Recording.Webcam.DeviceID) == "" {
		return errors.New("recording.webcam.device_id must not be empty when enabled")
	}
	if c.Pointer.PollHz <= 0 || c.Pointer.PollHz > 1000 {
		return fmt.Errorf("pointer.poll_hz must be within (0, 1000], got %g", c.Pointer.PollHz)
	}

	if err := c.MotionConfig().Validate(); err != nil {
		return fmt.Errorf("smoothing: %w", err)
	}
	if c.Smoothing.OutputFPS <= 0 {
		return errors.New("smoothing.output_fps must be positive")
	}

	return nil
}

// IndexFile returns the session index location, defaulting to index.db
// inside the sessions directory.
func (c Config) IndexFile() string {
	if c.Paths.IndexPath != "" {
		return c.Paths.IndexPath
	}
	return filepath.Join(c.Paths.SessionsDir, "index.db")
}

// MotionConfig returns the engine parameters described by the smoothing section.
func (c Config) MotionConfig() motion.Config {
	return motion.Config{
		Spring: spring.Config{
			Stiffness: c.Smoothing.Stiffness,
			Damping:   c.Smoothing.Damping,
			Mass:      c.Smoothing.Mass,
		},
		TeleportThreshold: c.Smoothing.TeleportThreshold,
	}
}

func (c *Config) normalize() {
	c.Paths.SessionsDir = filepath.Clean(strings.TrimSpace(c.Paths.SessionsDir))
	c.Paths.IndexPath = strings.TrimSpace(c.Paths.IndexPath)

	defaults := Default()

	if c.Paths.SessionsDir == "." || c.Paths.SessionsDir == "" {
		c.Paths.SessionsDir = defaults.Paths.SessionsDir
	}
	if c.Paths.IndexPath != "" {
		c.Paths.IndexPath = filepath.Clean(c.Paths.IndexPath)
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Recording.DisplayID = strings.TrimSpace(c.Recording.DisplayID)

	if c.Pointer.PollHz == 0 {
		c.Pointer.PollHz = defaults.Pointer.PollHz
	}
	if c.Smoothing.OutputFPS == 0 {
		c.Smoothing.OutputFPS = defaults.Smoothing.OutputFPS
	}
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}
