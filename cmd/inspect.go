package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"imgzap/internal/processor"
	"imgzap/internal/tui"
)

var inspectRecursive bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] <path>...",
	Short: "Report format, dimensions and metadata without converting",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := loggerFromContext(cmd.Context())

		sel, ignored, err := processor.Collect(args, inspectRecursive)
		if err != nil {
			return err
		}
		for _, path := range ignored {
			logger.Debug("not an image", "path", path)
		}

		paths := make([]string, 0, len(sel))
		for path := range sel {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		out := cmd.OutOrStdout()
		for i, path := range paths {
			if i > 0 {
				fmt.Fprintln(out)
			}
			report, err := processor.Inspect(path)
			if err != nil {
				fmt.Fprintf(out, "%s\n", inspectFileStyle.Render(path))
				writeDetail(out, "Error", err.Error())
				continue
			}
			writeReport(out, report)
		}
		return nil
	},
}

func writeReport(out io.Writer, r processor.Report) {
	fmt.Fprintf(out, "%s\n", inspectFileStyle.Render(r.Path))
	writeDetail(out, "Format", r.Format.String())
	writeDetail(out, "Size", r.Dimensions())

	if len(r.Frames) > 0 {
		frames := make([]string, len(r.Frames))
		for i, f := range r.Frames {
			frames[i] = fmt.Sprintf("%dx%d", f.Width, f.Height)
		}
		writeDetail(out, "Frames", strings.Join(frames, ", "))
	}
	if r.Exif.Model != "" {
		writeDetail(out, "Camera", r.Exif.Model)
	}
	if r.Exif.Timestamp != "" {
		writeDetail(out, "Taken", r.Exif.Timestamp)
	}
	if r.Exif.Orientation > 1 {
		writeDetail(out, "Orientation", fmt.Sprint(r.Exif.Orientation))
	}
	if r.Exif.TagCount > 0 {
		writeDetail(out, "EXIF tags", fmt.Sprint(r.Exif.TagCount))
	}
	if r.Text.Modified != "" {
		writeDetail(out, "Modified", r.Text.Modified)
	}
	if len(r.Text.Entries) > 0 {
		fmt.Fprintf(out, "  %s\n", inspectLabelStyle.Render("Text:"))
		for _, entry := range r.Text.Entries {
			fmt.Fprintf(out, "    %s %s\n", inspectBulletStyle.Render("-"), inspectValueStyle.Render(entry))
		}
	}
}

func writeDetail(out io.Writer, label, value string) {
	fmt.Fprintf(out, "  %s %s\n", inspectLabelStyle.Render(label+":"), inspectValueStyle.Render(value))
}

var (
	inspectFileStyle   = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	inspectLabelStyle  = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	inspectValueStyle  = lipgloss.NewStyle().Foreground(tui.ColorInk)
	inspectBulletStyle = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	inspectCmd.Flags().BoolVarP(&inspectRecursive, "recursive", "r", false, "descend into subdirectories")
	rootCmd.AddCommand(inspectCmd)
}
