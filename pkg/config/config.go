package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Camera CameraConfig `yaml:"camera"`
	Torch  TorchConfig  `yaml:"torch"`
	Device DeviceConfig `yaml:"device"`
	Mock   MockConfig   `yaml:"mock"`
	Log    LogConfig    `yaml:"log"`
}

// EngineConfig contains the signal processing parameters.
type EngineConfig struct {
	BufferSize             int     `yaml:"buffer_size"`              // Samples kept in the signal buffer (~10s at 30 fps)
	SampleRate             float64 `yaml:"sample_rate"`              // Frame rate assumed by the filters (Hz)
	MinBPM                 int     `yaml:"min_bpm"`                  // Lowest accepted estimate
	MaxBPM                 int     `yaml:"max_bpm"`                  // Highest accepted estimate
	LowCutoff              float64 `yaml:"low_cutoff"`               // Band lower edge (Hz)
	HighCutoff             float64 `yaml:"high_cutoff"`              // Band upper edge (Hz)
	StabilizationWindow    int     `yaml:"stabilization_window"`     // Samples required before estimating (~3s)
	SignalQualityThreshold float64 `yaml:"signal_quality_threshold"` // Minimum detrended variance
	StabilityThreshold     int     `yaml:"stability_threshold"`      // Max BPM difference between agreeing estimates
	StableCountRequired    int     `yaml:"stable_count_required"`    // Agreeing estimates needed for a stable reading
	CalculationInterval    int     `yaml:"calculation_interval"`     // Frames between BPM calculations
	SampleStep             int     `yaml:"sample_step"`              // Pixel stride used by the frame sampler
	ROIFraction            float64 `yaml:"roi_fraction"`             // Centered fraction of the frame sampled (0-1]
}

// CameraConfig contains video source configuration.
type CameraConfig struct {
	Driver       string `yaml:"driver"` // "mock" or "opencv"
	DeviceID     int    `yaml:"device_id"`
	Facing       string `yaml:"facing"` // "environment" (rear) or "user"
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	FPS          int    `yaml:"fps"`
	RequireTorch bool   `yaml:"require_torch"` // Fail Start when illumination cannot be enabled
}

// TorchConfig contains external illuminator configuration.
type TorchConfig struct {
	Port       string        `yaml:"port"` // Serial port of the LED board, empty disables it
	BaudRate   int           `yaml:"baud_rate"`
	AckTimeout time.Duration `yaml:"ack_timeout"`
}

// DeviceConfig overrides environment detection used by the capability check.
type DeviceConfig struct {
	Handheld      *bool    `yaml:"handheld,omitempty"`
	Model         string   `yaml:"model"`
	BlockedModels []string `yaml:"blocked_models"`
}

// MockConfig contains mock camera configuration.
type MockConfig struct {
	BPM       float64 `yaml:"bpm"`       // Simulated pulse rate
	Amplitude float64 `yaml:"amplitude"` // Pulse amplitude on the red channel
	Noise     float64 `yaml:"noise"`     // Bounded noise amplitude
	Base      float64 `yaml:"base"`      // Red channel baseline (0-255)
	FPS       int     `yaml:"fps"`
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Torch     bool    `yaml:"torch"` // Whether the simulated camera exposes a torch
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			BufferSize:             300,
			SampleRate:             30,
			MinBPM:                 42,
			MaxBPM:                 240,
			LowCutoff:              0.7,
			HighCutoff:             4.0,
			StabilizationWindow:    90,
			SignalQualityThreshold: 0.5,
			StabilityThreshold:     5,
			StableCountRequired:    3,
			CalculationInterval:    10,
			SampleStep:             4,
			ROIFraction:            1.0,
		},
		Camera: CameraConfig{
			Driver:       "mock",
			DeviceID:     0,
			Facing:       "environment",
			Width:        640,
			Height:       480,
			FPS:          30,
			RequireTorch: true,
		},
		Torch: TorchConfig{
			Port:       "",
			BaudRate:   115200,
			AckTimeout: 500 * time.Millisecond,
		},
		Device: DeviceConfig{
			BlockedModels: []string{},
		},
		Mock: MockConfig{
			BPM:       72,
			Amplitude: 3,
			Noise:     0.3,
			Base:      180,
			FPS:       30,
			Width:     64,
			Height:    48,
			Torch:     true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks relationships between fields that defaults cannot repair.
func (c *Config) Validate() error {
	e := c.Engine
	if e.MinBPM >= e.MaxBPM {
		return fmt.Errorf("invalid bpm range: min %d >= max %d", e.MinBPM, e.MaxBPM)
	}
	if e.LowCutoff >= e.HighCutoff {
		return fmt.Errorf("invalid frequency band: low %.2f >= high %.2f", e.LowCutoff, e.HighCutoff)
	}
	if e.StabilizationWindow > e.BufferSize {
		return fmt.Errorf("stabilization window %d exceeds buffer size %d", e.StabilizationWindow, e.BufferSize)
	}
	if e.HighCutoff*2 > e.SampleRate {
		return fmt.Errorf("high cutoff %.2f Hz is above Nyquist for %.1f Hz", e.HighCutoff, e.SampleRate)
	}
	if e.ROIFraction <= 0 || e.ROIFraction > 1 {
		return fmt.Errorf("roi fraction %.2f out of range (0, 1]", e.ROIFraction)
	}
	return nil
}

// ApplyLogLevel configures the global logrus level from the Log section.
func (c *Config) ApplyLogLevel() error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	logrus.SetLevel(level)
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Engine.BufferSize == 0 {
		c.Engine.BufferSize = def.Engine.BufferSize
	}
	if c.Engine.SampleRate == 0 {
		c.Engine.SampleRate = def.Engine.SampleRate
	}
	if c.Engine.MinBPM == 0 {
		c.Engine.MinBPM = def.Engine.MinBPM
	}
	if c.Engine.MaxBPM == 0 {
		c.Engine.MaxBPM = def.Engine.MaxBPM
	}
	if c.Engine.LowCutoff == 0 {
		c.Engine.LowCutoff = def.Engine.LowCutoff
	}
	if c.Engine.HighCutoff == 0 {
		c.Engine.HighCutoff = def.Engine.HighCutoff
	}
	if c.Engine.StabilizationWindow == 0 {
		c.Engine.StabilizationWindow = def.Engine.StabilizationWindow
	}
	if c.Engine.SignalQualityThreshold == 0 {
		c.Engine.SignalQualityThreshold = def.Engine.SignalQualityThreshold
	}
	if c.Engine.StabilityThreshold == 0 {
		c.Engine.StabilityThreshold = def.Engine.StabilityThreshold
	}
	if c.Engine.StableCountRequired == 0 {
		c.Engine.StableCountRequired = def.Engine.StableCountRequired
	}
	if c.Engine.CalculationInterval == 0 {
		c.Engine.CalculationInterval = def.Engine.CalculationInterval
	}
	if c.Engine.SampleStep == 0 {
		c.Engine.SampleStep = def.Engine.SampleStep
	}
	if c.Engine.ROIFraction == 0 {
		c.Engine.ROIFraction = def.Engine.ROIFraction
	}

	if c.Camera.Driver == "" {
		c.Camera.Driver = def.Camera.Driver
	}
	if c.Camera.Facing == "" {
		c.Camera.Facing = def.Camera.Facing
	}
	if c.Camera.Width == 0 {
		c.Camera.Width = def.Camera.Width
	}
	if c.Camera.Height == 0 {
		c.Camera.Height = def.Camera.Height
	}
	if c.Camera.FPS == 0 {
		c.Camera.FPS = def.Camera.FPS
	}

	if c.Torch.BaudRate == 0 {
		c.Torch.BaudRate = def.Torch.BaudRate
	}
	if c.Torch.AckTimeout == 0 {
		c.Torch.AckTimeout = def.Torch.AckTimeout
	}

	if c.Mock.BPM == 0 {
		c.Mock.BPM = def.Mock.BPM
	}
	if c.Mock.Amplitude == 0 {
		c.Mock.Amplitude = def.Mock.Amplitude
	}
	if c.Mock.Base == 0 {
		c.Mock.Base = def.Mock.Base
	}
	if c.Mock.FPS == 0 {
		c.Mock.FPS = def.Mock.FPS
	}
	if c.Mock.Width == 0 {
		c.Mock.Width = def.Mock.Width
	}
	if c.Mock.Height == 0 {
		c.Mock.Height = def.Mock.Height
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}
