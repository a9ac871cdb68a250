package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"galaxy-generator/internal/galaxy"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file, relative to the process working directory.
const DefaultPath = "config/galaxy.yaml"

// PresetDir holds named parameter presets saved from the terminal.
const PresetDir = "presets"

// Config is everything the galaxy viewer reads at startup. Galaxy parameters are also
// re-read whenever the file is saved while the viewer runs.
type Config struct {
	Galaxy  galaxy.Parameters `yaml:"galaxy"`
	Seed    int64             `yaml:"seed"`
	Window  WindowConfig      `yaml:"window"`
	Camera  CameraConfig      `yaml:"camera"`
	Debug   DebugConfig       `yaml:"debug"`
	Logging LoggingConfig     `yaml:"logging"`
}

type WindowConfig struct {
	Width      int32  `yaml:"width"`
	Height     int32  `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	Title      string `yaml:"title"`
	TargetFPS  int32  `yaml:"target_fps"`
}

// CameraConfig positions the orbit camera. AutoRotate spins it around the Y axis at
// RotateSpeed radians per second.
type CameraConfig struct {
	Position    [3]float32 `yaml:"position"`
	Fovy        float32    `yaml:"fovy"`
	AutoRotate  bool       `yaml:"auto_rotate"`
	RotateSpeed float32    `yaml:"rotate_speed"`
}

type DebugConfig struct {
	ShowFPS      bool `yaml:"show_fps"`
	ShowMemAlloc bool `yaml:"show_memalloc"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the stock configuration: default galaxy, time seed, camera at (3,3,3).
func Default() Config {
	return Config{
		Galaxy: galaxy.DefaultParameters(),
		Seed:   0,
		Window: WindowConfig{
			Width:     1280,
			Height:    720,
			Title:     "galaxy generator",
			TargetFPS: 60,
		},
		Camera: CameraConfig{
			Position:    [3]float32{3, 3, 3},
			Fovy:        75,
			AutoRotate:  true,
			RotateSpeed: 0.1,
		},
		Debug: DebugConfig{ShowFPS: true},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config at path. A missing file yields Default() and no error; a file
// that does not parse, or whose galaxy section is invalid, is an error. Fields absent
// from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Galaxy.Validate(); err != nil {
		return Default(), fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating the directory if needed.
func Save(path string, cfg Config) error {
	return writeYAML(path, cfg)
}

var presetName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// PresetPath returns the file a named preset lives in.
func PresetPath(dir, name string) (string, error) {
	if !presetName.MatchString(name) {
		return "", fmt.Errorf("preset: invalid name %q (letters, digits, _ and - only)", name)
	}
	return filepath.Join(dir, name+".yaml"), nil
}

// SavePreset stores p under dir/name.yaml.
func SavePreset(dir, name string, p galaxy.Parameters) error {
	path, err := PresetPath(dir, name)
	if err != nil {
		return err
	}
	return writeYAML(path, p)
}

// LoadPreset reads dir/name.yaml. Missing fields fall back to the default parameters.
func LoadPreset(dir, name string) (galaxy.Parameters, error) {
	path, err := PresetPath(dir, name)
	if err != nil {
		return galaxy.Parameters{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return galaxy.Parameters{}, fmt.Errorf("preset: %w", err)
	}
	p := galaxy.DefaultParameters()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return galaxy.Parameters{}, fmt.Errorf("preset: parse %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return galaxy.Parameters{}, fmt.Errorf("preset %s: %w", name, err)
	}
	return p, nil
}

func writeYAML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
