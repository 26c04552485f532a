package cmd

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imgzap/pkg/imgutil"
)

func TestParseTargets(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []imgutil.Format
		wantErr bool
	}{
		{"single", []string{"png"}, []imgutil.Format{imgutil.FormatPNG}, false},
		{"aliases and dedupe", []string{"jpg", "JPEG", ".tif"}, []imgutil.Format{imgutil.FormatJPEG, imgutil.FormatTIFF}, false},
		{"all", []string{"all"}, imgutil.Formats(), false},
		{"unknown", []string{"gif"}, nil, true},
		{"empty", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTargets(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFormatRows(t *testing.T) {
	rows := formatRows()
	if len(rows) != len(imgutil.Formats()) {
		t.Fatalf("expected one row per format, got %d", len(rows))
	}
	for _, row := range rows {
		switch row[0] {
		case "ICO":
			if row[3] != "largest frame" {
				t.Errorf("ICO read mode = %q", row[3])
			}
		case "SVG":
			if row[4] != "traced" {
				t.Errorf("SVG write mode = %q", row[4])
			}
		case "PNG":
			if row[1] != "png" || row[2] != "image/png" {
				t.Errorf("unexpected PNG row %v", row)
			}
		}
	}
}

func TestConvertAndInspectCommands(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(80 * x), G: uint8(100 * y), B: 40, A: 0xff})
		}
	}
	f, err := os.Create(filepath.Join(dir, "a.png"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"convert", "--no-progress", "-t", "bmp,png", "-j", "2", dir})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("convert: %v\n%s", err, out.String())
	}
	for _, want := range []string{"Converted", "Skipped (same format)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("convert output missing %q:\n%s", want, out.String())
		}
	}
	if format, err := imgutil.SniffFile(filepath.Join(dir, "a.bmp")); err != nil || format != imgutil.FormatBMP {
		t.Fatalf("a.bmp sniffed as %v, %v", format, err)
	}

	out.Reset()
	rootCmd.SetArgs([]string{"inspect", filepath.Join(dir, "a.bmp")})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"a.bmp", "BMP", "3x2"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("inspect output missing %q:\n%s", want, out.String())
		}
	}
}
