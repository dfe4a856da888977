// Package config loads the server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/stereoview/internal/core/gaze"
	"github.com/zeusync/stereoview/internal/core/observability/log"
	"github.com/zeusync/stereoview/internal/core/viewer"
	"github.com/zeusync/stereoview/internal/core/world"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Gaze   GazeConfig   `yaml:"gaze"`
	Viewer ViewerConfig `yaml:"viewer"`
	World  WorldConfig  `yaml:"world"`
}

type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	MaxSessions int    `yaml:"max_sessions"`
	// ReadLimit caps a single client message in bytes.
	ReadLimit    int64         `yaml:"read_limit"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// OutboxSize and MailboxSize bound the per-session queues.
	OutboxSize  int `yaml:"outbox_size"`
	MailboxSize int `yaml:"mailbox_size"`
	// AllowedOrigins lists accepted Origin headers; empty accepts any.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type GazeConfig struct {
	Dwell time.Duration `yaml:"dwell"`
}

type ViewerConfig struct {
	Images    []string            `yaml:"images"`
	StartMode string              `yaml:"start_mode"`
	Layout    []viewer.TargetSpec `yaml:"layout"`
}

type WorldConfig struct {
	world.Params `yaml:",inline"`
	// Seed fixes the layout for every session. Empty derives it from the
	// session id, so each viewer gets its own landscape.
	Seed string `yaml:"seed"`
}

// Default returns a complete working configuration.
func Default() Config {
	images := make([]string, 0, 10)
	for i := 1; i <= 7; i++ {
		images = append(images, fmt.Sprintf("./images/stereo-image-%d.jpeg", i))
	}
	images = append(images,
		"./images/stereo-image-8.jpg",
		"./images/stereo-image-9.JPG",
		"./images/stereo-image-10.jpg",
	)

	return Config{
		Server: ServerConfig{
			ListenAddr:   "127.0.0.1:8080",
			MaxSessions:  64,
			ReadLimit:    64 * 1024,
			WriteTimeout: 5 * time.Second,
			OutboxSize:   256,
			MailboxSize:  256,
		},
		Log: LogConfig{Level: "info"},
		Gaze: GazeConfig{
			Dwell: gaze.DefaultDwell,
		},
		Viewer: ViewerConfig{
			Images:    images,
			StartMode: string(viewer.ModeStart),
		},
		World: WorldConfig{Params: world.DefaultParams()},
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadReader(f)
}

// LoadReader decodes YAML over Default and validates the result. Unknown
// keys are rejected. An empty document yields the defaults.
func LoadReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("%w: server.listen_addr is empty", ErrInvalidConfig)
	}
	if c.Server.MaxSessions <= 0 {
		return fmt.Errorf("%w: server.max_sessions must be positive", ErrInvalidConfig)
	}
	if c.Server.ReadLimit <= 0 {
		return fmt.Errorf("%w: server.read_limit must be positive", ErrInvalidConfig)
	}
	if c.Server.OutboxSize <= 0 || c.Server.MailboxSize <= 0 {
		return fmt.Errorf("%w: server queue sizes must be positive", ErrInvalidConfig)
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("%w: server.write_timeout is negative", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	if c.Gaze.Dwell <= 0 {
		return fmt.Errorf("%w: gaze.dwell must be positive", ErrInvalidConfig)
	}
	if _, err := viewer.ParseMode(c.Viewer.StartMode); err != nil {
		return fmt.Errorf("%w: viewer.start_mode: %v", ErrInvalidConfig, err)
	}
	for _, spec := range c.Viewer.Layout {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("%w: viewer.layout: %v", ErrInvalidConfig, err)
		}
	}
	w := c.World
	if w.Count < 0 {
		return fmt.Errorf("%w: world.count is negative", ErrInvalidConfig)
	}
	if w.MinHeight <= 0 || w.MaxHeight < w.MinHeight {
		return fmt.Errorf("%w: world heights must satisfy 0 < min_height <= max_height", ErrInvalidConfig)
	}
	if w.Spread <= 0 || w.Clearance < 0 {
		return fmt.Errorf("%w: world.spread must be positive and world.clearance non-negative", ErrInvalidConfig)
	}
	return nil
}

// LogLevel returns the parsed log level; Validate guarantees it parses.
func (c *Config) LogLevel() log.Level {
	l, _ := log.ParseLevel(c.Log.Level)
	return l
}

// ViewerSettings converts the viewer section for viewer.NewManager.
func (c *Config) ViewerSettings() viewer.Config {
	return viewer.Config{
		Images:    c.Viewer.Images,
		StartMode: viewer.Mode(c.Viewer.StartMode),
		Layout:    c.Viewer.Layout,
	}
}
