// Package config handles viewer and tool configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/scenebatch/internal/registry"
)

// Backend kinds.
const (
	BackendMemory = "memory"
	BackendGL     = "gl"
	BackendWGPU   = "wgpu"
)

// Profile modes.
const (
	ProfileOff = ""
	ProfileCPU = "cpu"
	ProfileMem = "mem"
)

// Config holds all settings.
type Config struct {
	Window   WindowConfig    `yaml:"window"`
	Registry registry.Config `yaml:"registry"`
	Backend  BackendConfig   `yaml:"backend"`
	Scene    SceneConfig     `yaml:"scene"`
	Logging  LoggingConfig   `yaml:"logging"`
	Profile  ProfileConfig   `yaml:"profile"`
}

// WindowConfig holds display settings for the viewer.
type WindowConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// BackendConfig selects the GPU buffer backend.
type BackendConfig struct {
	Kind string `yaml:"kind"` // memory, gl or wgpu
}

// SceneConfig holds scene file settings.
type SceneConfig struct {
	AssetRoot string `yaml:"asset_root"`
	File      string `yaml:"file"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ProfileConfig enables pprof output.
type ProfileConfig struct {
	Mode string `yaml:"mode"` // "", cpu or mem
	Dir  string `yaml:"dir"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Registry: registry.DefaultConfig(),
		Backend: BackendConfig{
			Kind: BackendGL,
		},
		Scene: SceneConfig{
			AssetRoot: ".",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Profile: ProfileConfig{
			Mode: ProfileOff,
			Dir:  ".",
		},
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendMemory, BackendGL, BackendWGPU:
	default:
		return fmt.Errorf("unknown backend %q (want memory, gl or wgpu)", c.Backend.Kind)
	}
	switch c.Profile.Mode {
	case ProfileOff, ProfileCPU, ProfileMem:
	default:
		return fmt.Errorf("unknown profile mode %q (want cpu or mem)", c.Profile.Mode)
	}
	if c.Registry.InitialCommandCapacity < 1 || c.Registry.InitialInstanceCapacity < 1 {
		return fmt.Errorf("registry capacities must be positive, got %d commands and %d instances",
			c.Registry.InitialCommandCapacity, c.Registry.InitialInstanceCapacity)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}
