package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dpfractal/internal/pendulum"
)

const (
	DefaultTimestep  = pendulum.DefaultTimestep
	DefaultNumSteps  = 100
	DefaultNumFrames = 1000
	DefaultDetail    = 400
	DefaultGravity   = pendulum.DefaultGravity
	DefaultLength    = pendulum.DefaultLength
	DefaultPrefix    = "out/frame"
	DefaultFPS       = 30
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Timestep     float64     `yaml:"timestep"`
	NumSteps     int         `yaml:"num_steps"`
	NumFrames    int         `yaml:"num_frames"`
	Width        int         `yaml:"width"`
	Height       int         `yaml:"height"`
	Gravity      float64     `yaml:"gravity"`
	Length1      float64     `yaml:"length1"`
	Length2      float64     `yaml:"length2"`
	OutputPrefix string      `yaml:"output_prefix"`
	Workers      int         `yaml:"workers"`
	Video        VideoConfig `yaml:"video"`
}

type VideoConfig struct {
	Path string `yaml:"path"`
	FPS  int    `yaml:"fps"`
}

func DefaultConfig() *Config {
	return &Config{
		Timestep:     DefaultTimestep,
		NumSteps:     DefaultNumSteps,
		NumFrames:    DefaultNumFrames,
		Width:        DefaultDetail,
		Height:       DefaultDetail,
		Gravity:      DefaultGravity,
		Length1:      DefaultLength,
		Length2:      DefaultLength,
		OutputPrefix: DefaultPrefix,
		Video:        VideoConfig{FPS: DefaultFPS},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := Overlay(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay reads the YAML file at path over cfg. Keys missing from the file
// keep their current values, except that a file which sets width without
// height gets a square grid.
func Overlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	width, height := cfg.Width, cfg.Height
	cfg.Height = 0
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Height == 0 {
		cfg.Height = height
		if cfg.Width != width {
			cfg.Height = cfg.Width
		}
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Params returns the integration constants for a single pendulum step.
func (c *Config) Params() pendulum.Params {
	return pendulum.Params{Timestep: c.Timestep, Gravity: c.Gravity}
}

// Resolution returns the grid size, with a zero height meaning square.
func (c *Config) Resolution() (w, h int) {
	h = c.Height
	if h == 0 {
		h = c.Width
	}
	return c.Width, h
}

func (c *Config) Validate() error {
	w, h := c.Resolution()
	switch {
	case w <= 0 || h <= 0:
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidConfig, w, h)
	case c.NumSteps < 0:
		return fmt.Errorf("%w: num_steps %d", ErrInvalidConfig, c.NumSteps)
	case c.NumFrames < 0:
		return fmt.Errorf("%w: num_frames %d", ErrInvalidConfig, c.NumFrames)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	case c.Video.Path != "" && c.Video.FPS <= 0:
		return fmt.Errorf("%w: video fps %d", ErrInvalidConfig, c.Video.FPS)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	probe := pendulum.NewWithLengths(0, 0, c.Length1, c.Length2)
	if err := probe.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
