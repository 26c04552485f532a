package config

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imgzap/pkg/imgutil"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.CanvasSize != 256 {
		t.Errorf("CanvasSize = %d, want 256", cfg.CanvasSize)
	}
	if len(cfg.IconSizes) != 6 || cfg.IconSizes[5] != 256 {
		t.Errorf("IconSizes = %v", cfg.IconSizes)
	}
	if !cfg.WebPLossless {
		t.Error("WebPLossless should default to true")
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
targets = ["png", "jpg", "ico"]
canvas_size = 512
icon_sizes = [16, 32]
jpeg_quality = 75
background = "#102030"
auto_orient = true

[trace]
color_precision = 4
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := []imgutil.Format{imgutil.FormatPNG, imgutil.FormatJPEG, imgutil.FormatICO}
	if len(cfg.Targets) != len(want) {
		t.Fatalf("Targets = %v, want %v", cfg.Targets, want)
	}
	for i := range want {
		if cfg.Targets[i] != want[i] {
			t.Fatalf("Targets[%d] = %v, want %v", i, cfg.Targets[i], want[i])
		}
	}
	if cfg.CanvasSize != 512 || cfg.JPEGQuality != 75 || !cfg.AutoOrient {
		t.Errorf("unexpected values: %+v", cfg)
	}
	if cfg.Trace.ColorPrecision != 4 || cfg.Trace.AlphaThreshold != 128 {
		t.Errorf("unexpected trace config: %+v", cfg.Trace)
	}
	if cfg.AVIFSpeed != Default().AVIFSpeed {
		t.Errorf("unset keys should keep defaults, AVIFSpeed = %d", cfg.AVIFSpeed)
	}

	opts := cfg.RasterOptions()
	if opts.Background != (color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}) {
		t.Errorf("Background = %v", opts.Background)
	}
	if !opts.AutoOrient || opts.JPEGQuality != 75 {
		t.Errorf("unexpected raster options: %+v", opts)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "canvas = 12\n", "unknown keys"},
		{"unknown format", `targets = ["gif"]`, "gif"},
		{"bad canvas", "canvas_size = 0\n", "canvas_size"},
		{"bad icon size", "icon_sizes = [16, 300]\n", "icon_sizes"},
		{"bad background", `background = "white"`, "background"},
		{"bad quality", "jpeg_quality = 101\n", "jpeg_quality"},
		{"syntax", "canvas_size = \n", "load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	path, err := Locate("")
	if err != nil || path != "" {
		t.Fatalf("Locate() = %q, %v; want no config", path, err)
	}

	xdgPath := filepath.Join(dir, "xdg", appName, "config.toml")
	if err := os.MkdirAll(filepath.Dir(xdgPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(xdgPath, []byte("workers = 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if path, _ := Locate(""); path != xdgPath {
		t.Fatalf("Locate() = %q, want %q", path, xdgPath)
	}

	if err := os.WriteFile(localFile, []byte("workers = 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if path, _ := Locate(""); path != localFile {
		t.Fatalf("Locate() = %q, want local file first", path)
	}

	if _, err := Locate(filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatal("explicit missing path should fail")
	}

	cfg, from, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if from != localFile || cfg.Workers != 3 {
		t.Fatalf("Resolve() = workers %d from %q", cfg.Workers, from)
	}
}

func TestConfigDirXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/custom-config")
	dir, err := configDir()
	if err != nil {
		t.Fatalf("configDir() error: %v", err)
	}
	if dir != filepath.Join("/tmp/custom-config", appName) {
		t.Errorf("configDir() = %q", dir)
	}
}
