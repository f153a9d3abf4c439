// Package config loads process-wide configuration for scsynthd. Grounded
// on the teacher's engine/assets/loaders/shader.go, which unmarshals a TOML
// file into a tagged struct via github.com/pelletier/go-toml/v2 and
// transforms it into the runtime type the rest of the engine consumes; this
// package follows the same read-unmarshal-validate-transform shape, one
// level up at process-configuration scope instead of per-asset scope.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the transformed, validated runtime configuration.
type Config struct {
	ListenAddr       string
	WorkerCount      int
	FrameRate        float64
	OffscreenWidth   uint32
	OffscreenHeight  uint32
	OffscreenImages  int
	ClearColor       [4]float32
	DefsDirectory    string
	VGensDirectory   string
	WatchDirectories bool
	GLSLCPath        string
	LogLevel         string
}

// fileConfig mirrors the on-disk TOML shape before defaulting and
// validation, matching the teacher's tmpShaderConfig split between raw
// decoded fields and the transformed runtime struct.
type fileConfig struct {
	ListenAddr       string     `toml:"listen_addr"`
	WorkerCount      int        `toml:"worker_count"`
	FrameRate        float64    `toml:"frame_rate"`
	OffscreenWidth   uint32     `toml:"offscreen_width"`
	OffscreenHeight  uint32     `toml:"offscreen_height"`
	OffscreenImages  int        `toml:"offscreen_images"`
	ClearColor       [3]float32 `toml:"clear_color"`
	DefsDirectory    string     `toml:"defs_directory"`
	VGensDirectory   string     `toml:"vgens_directory"`
	WatchDirectories bool       `toml:"watch_directories"`
	GLSLCPath        string     `toml:"glslc_path"`
	LogLevel         string     `toml:"log_level"`
}

// Default returns the configuration used when no file is supplied: two
// scheduler workers, a 60fps free-running offscreen driver, and a
// triple-buffered 1280x720 render target, matching spec.md §5's "N
// scheduler worker threads (default 2)" and §4.8's "N >= 2" pool floor.
func Default() Config {
	return Config{
		ListenAddr:      "127.0.0.1:57110",
		WorkerCount:     2,
		FrameRate:       60,
		OffscreenWidth:  1280,
		OffscreenHeight: 720,
		OffscreenImages: 3,
		ClearColor:      [4]float32{0, 0, 0, 1},
		GLSLCPath:       "glslc",
		LogLevel:        "info",
	}
}

// Load reads and unmarshals a TOML file at path, applying it over
// Default() so an omitted key keeps its default rather than zeroing out.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	fc := fileConfig{
		ListenAddr:      cfg.ListenAddr,
		WorkerCount:     cfg.WorkerCount,
		FrameRate:       cfg.FrameRate,
		OffscreenWidth:  cfg.OffscreenWidth,
		OffscreenHeight: cfg.OffscreenHeight,
		OffscreenImages: cfg.OffscreenImages,
		ClearColor:      [3]float32{cfg.ClearColor[0], cfg.ClearColor[1], cfg.ClearColor[2]},
		GLSLCPath:       cfg.GLSLCPath,
		LogLevel:        cfg.LogLevel,
	}
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := fc.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}

	return fc.transform(), nil
}

func (fc *fileConfig) validate() error {
	if fc.WorkerCount < 1 {
		return fmt.Errorf("worker_count must be >= 1, got %d", fc.WorkerCount)
	}
	if fc.OffscreenImages < 2 {
		return fmt.Errorf("offscreen_images must be >= 2, got %d", fc.OffscreenImages)
	}
	if fc.FrameRate < 0 {
		return fmt.Errorf("frame_rate must be >= 0 (0 selects snapshot mode), got %v", fc.FrameRate)
	}
	if fc.OffscreenWidth == 0 || fc.OffscreenHeight == 0 {
		return fmt.Errorf("offscreen_width and offscreen_height must be nonzero")
	}
	return nil
}

func (fc *fileConfig) transform() Config {
	return Config{
		ListenAddr:       fc.ListenAddr,
		WorkerCount:      fc.WorkerCount,
		FrameRate:        fc.FrameRate,
		OffscreenWidth:   fc.OffscreenWidth,
		OffscreenHeight:  fc.OffscreenHeight,
		OffscreenImages:  fc.OffscreenImages,
		ClearColor:       [4]float32{fc.ClearColor[0], fc.ClearColor[1], fc.ClearColor[2], 1},
		DefsDirectory:    fc.DefsDirectory,
		VGensDirectory:   fc.VGensDirectory,
		WatchDirectories: fc.WatchDirectories,
		GLSLCPath:        fc.GLSLCPath,
		LogLevel:         fc.LogLevel,
	}
}
