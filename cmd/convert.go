package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"imgzap/internal/config"
	"imgzap/internal/processor"
	"imgzap/internal/tui"
	"imgzap/pkg/imgutil"
)

var (
	convertTo         []string
	convertSize       int
	convertIconSizes  []int
	convertQuality    int
	convertBackground string
	convertWorkers    int
	convertRecursive  bool
	convertOrient     bool
	convertNoProgress bool
	convertConfig     string
)

var convertCmd = &cobra.Command{
	Use:   "convert [flags] <path>...",
	Short: "Convert images to one or more target formats",
	Example: "  imgzap convert -t png,webp photos/\n" +
		"  imgzap convert -t ico --icon-sizes 16,32,48 logo.svg\n" +
		"  imgzap convert -t all -r assets/",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := loggerFromContext(cmd.Context())

		cfg, from, err := config.Resolve(convertConfig)
		if err != nil {
			return err
		}
		if from != "" {
			logger.Debug("loaded config", "path", from)
		}
		if err := applyConvertFlags(cmd, &cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if len(cfg.Targets) == 0 {
			return errors.New("no target formats: pass --to or set targets in the config file")
		}

		sel, ignored, err := processor.Collect(args, cfg.Recursive)
		if err != nil {
			return err
		}
		for _, path := range ignored {
			logger.Debug("not an image", "path", path)
		}
		if len(sel) == 0 {
			return fmt.Errorf("no supported images in %s", strings.Join(args, ", "))
		}

		opts := processor.Options{
			Workers:    cfg.Workers,
			Raster:     cfg.RasterOptions(),
			CanvasSize: cfg.CanvasSize,
			IconSizes:  cfg.IconSizes,
			Trace:      cfg.TraceOptions(),
			Logger:     logger,
		}
		targets := processor.NewTargets(cfg.Targets...)

		var summary processor.Summary
		if convertNoProgress || !isatty.IsTerminal(os.Stdout.Fd()) {
			summary = processor.Run(cmd.Context(), sel, targets, opts, nil)
		} else {
			summary = runWithProgress(cmd, sel, targets, opts, logger)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, tui.RenderSummary(tui.SummaryRows(summary)))
		if failures := tui.RenderFailures(summary.Failures); failures != "" {
			fmt.Fprintln(out, failures)
		}

		switch {
		case summary.Canceled:
			return errors.New("interrupted")
		case summary.Failed > 0:
			return fmt.Errorf("%d of %d conversions failed", summary.Failed, summary.Total)
		}
		return nil
	},
}

// runWithProgress drives the progress view while the batch runs. Log
// records are held back until the view has exited so they do not tear
// the redrawn lines. The view owns the terminal in raw mode, so Ctrl+C
// reaches it as a key press and cancels the batch from there.
func runWithProgress(cmd *cobra.Command, sel processor.Selection, targets processor.Targets, opts processor.Options, logger *log.Logger) processor.Summary {
	var held bytes.Buffer
	opts.Logger = newLogger(&held, logger.GetLevel())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	updates := make(chan processor.ProgressUpdate, 64)
	model := tui.NewModel(updates).WithCancel(cancel)
	program := tea.NewProgram(model, tea.WithOutput(cmd.OutOrStdout()))

	uiDone := make(chan struct{})
	go func() {
		_, _ = program.Run()
		close(uiDone)
	}()

	summary := processor.Run(ctx, sel, targets, opts, updates)
	close(updates)
	<-uiDone

	_, _ = io.Copy(cmd.ErrOrStderr(), &held)
	return summary
}

// applyConvertFlags overrides config values with the flags the user set.
func applyConvertFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("to") {
		targets, err := parseTargets(convertTo)
		if err != nil {
			return err
		}
		cfg.Targets = targets
	}
	if flags.Changed("size") {
		cfg.CanvasSize = convertSize
	}
	if flags.Changed("icon-sizes") {
		cfg.IconSizes = convertIconSizes
	}
	if flags.Changed("quality") {
		cfg.JPEGQuality = convertQuality
		cfg.AVIFQuality = convertQuality
		cfg.WebPQuality = float32(convertQuality)
		cfg.WebPLossless = false
	}
	if flags.Changed("background") {
		cfg.Background = convertBackground
	}
	if flags.Changed("workers") {
		cfg.Workers = convertWorkers
	}
	if flags.Changed("recursive") {
		cfg.Recursive = convertRecursive
	}
	if flags.Changed("auto-orient") {
		cfg.AutoOrient = convertOrient
	}
	return nil
}

// parseTargets resolves format names, accepting "all" for every format.
// Duplicates are dropped and order is kept.
func parseTargets(names []string) ([]imgutil.Format, error) {
	var out []imgutil.Format
	seen := make(map[imgutil.Format]bool)
	add := func(f imgutil.Format) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "all") {
			for _, f := range imgutil.Formats() {
				add(f)
			}
			continue
		}
		f, err := imgutil.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		add(f)
	}
	if len(out) == 0 {
		return nil, errors.New("--to needs at least one format")
	}
	return out, nil
}

func init() {
	flags := convertCmd.Flags()
	flags.StringSliceVarP(&convertTo, "to", "t", nil, "target formats (png, jpeg, webp, tiff, bmp, ico, avif, svg or all)")
	flags.IntVarP(&convertSize, "size", "s", 0, "canvas size in pixels for SVG sources")
	flags.IntSliceVar(&convertIconSizes, "icon-sizes", nil, "frame sizes for ICO outputs")
	flags.IntVarP(&convertQuality, "quality", "q", 0, "lossy quality 1-100 for JPEG, WEBP and AVIF")
	flags.StringVar(&convertBackground, "background", "", "#rrggbb color behind transparent pixels in JPEG outputs")
	flags.IntVarP(&convertWorkers, "workers", "j", 0, "concurrent conversions (0 means one per CPU)")
	flags.BoolVarP(&convertRecursive, "recursive", "r", false, "descend into subdirectories")
	flags.BoolVar(&convertOrient, "auto-orient", false, "apply the EXIF orientation of JPEG and TIFF sources")
	flags.BoolVar(&convertNoProgress, "no-progress", false, "disable the progress view")
	flags.StringVarP(&convertConfig, "config", "c", "", "config file (default ./imgzap.toml, then ~/.config/imgzap/config.toml)")

	rootCmd.AddCommand(convertCmd)
}
