// Package config loads imgzap settings from TOML.
//
// Settings are resolved in layers: built-in defaults, then the first config
// file found by Locate, then command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lucasb-eyer/go-colorful"

	"imgzap/internal/icon"
	"imgzap/internal/raster"
	"imgzap/internal/trace"
	"imgzap/internal/vector"
	"imgzap/pkg/imgutil"
)

const (
	appName   = "imgzap"
	localFile = "imgzap.toml"
)

type Config struct {
	Targets      []imgutil.Format `toml:"targets"`
	CanvasSize   int              `toml:"canvas_size"`
	IconSizes    []int            `toml:"icon_sizes"`
	JPEGQuality  int              `toml:"jpeg_quality"`
	WebPLossless bool             `toml:"webp_lossless"`
	WebPQuality  float32          `toml:"webp_quality"`
	AVIFQuality  int              `toml:"avif_quality"`
	AVIFSpeed    int              `toml:"avif_speed"`
	Background   string           `toml:"background"`
	Workers      int              `toml:"workers"`
	AutoOrient   bool             `toml:"auto_orient"`
	Recursive    bool             `toml:"recursive"`
	Trace        TraceConfig      `toml:"trace"`
}

type TraceConfig struct {
	ColorPrecision int `toml:"color_precision"`
	AlphaThreshold int `toml:"alpha_threshold"`
}

func Default() Config {
	return Config{
		CanvasSize:   vector.DefaultCanvasSize,
		IconSizes:    append([]int(nil), icon.DefaultSizes...),
		JPEGQuality:  raster.DefaultJPEGQuality,
		WebPLossless: true,
		WebPQuality:  raster.DefaultWebPQuality,
		AVIFQuality:  raster.DefaultAVIFQuality,
		AVIFSpeed:    raster.DefaultAVIFSpeed,
		Background:   "#ffffff",
		Workers:      runtime.NumCPU(),
		Trace: TraceConfig{
			ColorPrecision: trace.DefaultColorPrecision,
			AlphaThreshold: trace.DefaultAlphaThreshold,
		},
	}
}

// Load reads path on top of the defaults. Unknown keys are rejected so
// typos do not silently fall back to a default.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Locate returns the config file to use, or "" when there is none. An
// explicit path must exist; the implicit locations are optional.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}

	candidates := []string{localFile}
	if dir, err := configDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "config.toml"))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", nil
}

// Resolve locates and loads the config, returning the path it came from.
func Resolve(explicit string) (Config, string, error) {
	path, err := Locate(explicit)
	if err != nil {
		return Default(), "", err
	}
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// configDir follows XDG (~/.config/imgzap/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

func (c Config) Validate() error {
	var errs []error
	if c.CanvasSize < 1 || c.CanvasSize > vector.MaxCanvasSize {
		errs = append(errs, fmt.Errorf("canvas_size %d outside 1..%d", c.CanvasSize, vector.MaxCanvasSize))
	}
	if err := icon.ValidateSizes(c.IconSizes); err != nil {
		errs = append(errs, fmt.Errorf("icon_sizes: %w", err))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg_quality %d outside 1..100", c.JPEGQuality))
	}
	if c.WebPQuality < 1 || c.WebPQuality > 100 {
		errs = append(errs, fmt.Errorf("webp_quality %g outside 1..100", c.WebPQuality))
	}
	if c.AVIFQuality < 1 || c.AVIFQuality > 100 {
		errs = append(errs, fmt.Errorf("avif_quality %d outside 1..100", c.AVIFQuality))
	}
	if c.AVIFSpeed < 1 || c.AVIFSpeed > 10 {
		errs = append(errs, fmt.Errorf("avif_speed %d outside 1..10", c.AVIFSpeed))
	}
	if _, err := c.BackgroundColor(); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, errors.New("workers must not be negative"))
	}
	if c.Trace.ColorPrecision < 1 || c.Trace.ColorPrecision > 8 {
		errs = append(errs, fmt.Errorf("trace.color_precision %d outside 1..8", c.Trace.ColorPrecision))
	}
	if c.Trace.AlphaThreshold < 0 || c.Trace.AlphaThreshold > 255 {
		errs = append(errs, fmt.Errorf("trace.alpha_threshold %d outside 0..255", c.Trace.AlphaThreshold))
	}
	for _, f := range c.Targets {
		if !f.Valid() {
			errs = append(errs, errors.New("targets: invalid format"))
			break
		}
	}
	return errors.Join(errs...)
}

// BackgroundColor parses Background as #rrggbb.
func (c Config) BackgroundColor() (color.Color, error) {
	bg, err := colorful.Hex(c.Background)
	if err != nil {
		return nil, fmt.Errorf("background %q: %w", c.Background, err)
	}
	r, g, b := bg.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// RasterOptions maps the encoder settings onto the raster codec.
func (c Config) RasterOptions() raster.Options {
	opts := raster.Options{
		JPEGQuality:  c.JPEGQuality,
		WebPLossless: c.WebPLossless,
		WebPQuality:  c.WebPQuality,
		AVIFQuality:  c.AVIFQuality,
		AVIFSpeed:    c.AVIFSpeed,
		AutoOrient:   c.AutoOrient,
	}
	if bg, err := c.BackgroundColor(); err == nil {
		opts.Background = bg
	}
	return opts
}

func (c Config) TraceOptions() trace.Options {
	return trace.Options{
		ColorPrecision: c.Trace.ColorPrecision,
		AlphaThreshold: c.Trace.AlphaThreshold,
	}
}
