package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test window defaults
	if cfg.Window.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 720 {
		t.Errorf("expected height 720, got %d", cfg.Window.Height)
	}
	if cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}
	if !cfg.Window.VSync {
		t.Error("expected vsync to be true by default")
	}

	// Test registry defaults
	if cfg.Registry.InitialCommandCapacity != 16 {
		t.Errorf("expected command capacity 16, got %d", cfg.Registry.InitialCommandCapacity)
	}
	if cfg.Registry.InitialInstanceCapacity != 1024 {
		t.Errorf("expected instance capacity 1024, got %d", cfg.Registry.InitialInstanceCapacity)
	}

	// Test backend and scene defaults
	if cfg.Backend.Kind != BackendGL {
		t.Errorf("expected backend %q, got %q", BackendGL, cfg.Backend.Kind)
	}
	if cfg.Scene.File != "" {
		t.Errorf("expected empty scene file, got %s", cfg.Scene.File)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if cfg.Profile.Mode != ProfileOff {
		t.Errorf("expected profiling off, got %q", cfg.Profile.Mode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1920
  height: 1080
  fullscreen: true
  vsync: false

registry:
  initial_command_capacity: 64
  initial_instance_capacity: 4096

backend:
  kind: wgpu

scene:
  asset_root: "assets"
  file: "yard.yaml"

logging:
  level: "debug"
  log_file: "scene.log"

profile:
  mode: cpu
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 1080 {
		t.Errorf("expected height 1080, got %d", cfg.Window.Height)
	}
	if !cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be true")
	}
	if cfg.Window.VSync {
		t.Error("expected vsync to be false")
	}

	if cfg.Registry.InitialCommandCapacity != 64 {
		t.Errorf("expected command capacity 64, got %d", cfg.Registry.InitialCommandCapacity)
	}
	if cfg.Registry.InitialInstanceCapacity != 4096 {
		t.Errorf("expected instance capacity 4096, got %d", cfg.Registry.InitialInstanceCapacity)
	}

	if cfg.Backend.Kind != BackendWGPU {
		t.Errorf("expected backend wgpu, got %s", cfg.Backend.Kind)
	}
	if cfg.Scene.AssetRoot != "assets" {
		t.Errorf("expected asset root 'assets', got %s", cfg.Scene.AssetRoot)
	}
	if cfg.Scene.File != "yard.yaml" {
		t.Errorf("expected scene file 'yard.yaml', got %s", cfg.Scene.File)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "scene.log" {
		t.Errorf("expected log file 'scene.log', got %s", cfg.Logging.LogFile)
	}
	if cfg.Profile.Mode != ProfileCPU {
		t.Errorf("expected profile mode cpu, got %s", cfg.Profile.Mode)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
window:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"memory backend", func(c *Config) { c.Backend.Kind = BackendMemory }, false},
		{"mem profile", func(c *Config) { c.Profile.Mode = ProfileMem }, false},
		{"unknown backend", func(c *Config) { c.Backend.Kind = "vulkan" }, true},
		{"unknown profile", func(c *Config) { c.Profile.Mode = "trace" }, true},
		{"zero command capacity", func(c *Config) { c.Registry.InitialCommandCapacity = 0 }, true},
		{"negative instance capacity", func(c *Config) { c.Registry.InitialInstanceCapacity = -1 }, true},
		{"zero width", func(c *Config) { c.Window.Width = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create config.yaml in current directory
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Backend.Kind = BackendMemory
	cfg.Registry.InitialCommandCapacity = 8
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.Backend.Kind != BackendMemory {
		t.Errorf("expected backend memory, got %s", loaded.Backend.Kind)
	}
	if loaded.Registry.InitialCommandCapacity != 8 {
		t.Errorf("expected command capacity 8, got %d", loaded.Registry.InitialCommandCapacity)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "backend flag",
			setup: func() {
				*flagBackend = BackendMemory
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Backend.Kind != BackendMemory {
					t.Errorf("expected backend memory, got %s", cfg.Backend.Kind)
				}
			},
			teardown: func() {
				*flagBackend = ""
			},
		},
		{
			name: "scene and assets flags",
			setup: func() {
				*flagScene = "demo.yaml"
				*flagAssets = "/data"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Scene.File != "demo.yaml" {
					t.Errorf("expected scene demo.yaml, got %s", cfg.Scene.File)
				}
				if cfg.Scene.AssetRoot != "/data" {
					t.Errorf("expected asset root /data, got %s", cfg.Scene.AssetRoot)
				}
			},
			teardown: func() {
				*flagScene = ""
				*flagAssets = ""
			},
		},
		{
			name: "profile flag",
			setup: func() {
				*flagProfile = ProfileMem
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Profile.Mode != ProfileMem {
					t.Errorf("expected profile mem, got %s", cfg.Profile.Mode)
				}
			},
			teardown: func() {
				*flagProfile = ""
			},
		},
		{
			name: "windowed flag",
			setup: func() {
				*flagWindowed = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be false with windowed flag")
				}
			},
			teardown: func() {
				*flagWindowed = false
			},
		},
		{
			name: "fullscreen flag",
			setup: func() {
				*flagFullscreen = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() {
				*flagFullscreen = false
			},
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Window.Width != 2560 {
					t.Errorf("expected width 2560, got %d", cfg.Window.Width)
				}
				if cfg.Window.Height != 1440 {
					t.Errorf("expected height 1440, got %d", cfg.Window.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1600
  height: 900
backend:
  kind: memory
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width should be from flag (1920), not file (1600)
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Window.Width)
	}

	// Height should be from file (900) since no flag override
	if cfg.Window.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Window.Height)
	}
	if cfg.Backend.Kind != BackendMemory {
		t.Errorf("expected backend memory from file, got %s", cfg.Backend.Kind)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("backend:\n  kind: vulkan\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown backend, got nil")
	}
}
