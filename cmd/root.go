package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// version is set at link time with -ldflags "-X imgzap/cmd.version=...".
var version string

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "imgzap",
	Short: "imgzap ⚡ - convert images between formats",
	Long: "imgzap ⚡ converts batches of images between PNG, JPEG, WEBP, TIFF, BMP, ICO, AVIF and SVG.\n" +
		"Outputs are written next to their sources with the target extension.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level := log.InfoLevel
		if verbose {
			level = log.DebugLevel
		}
		cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
	},
}

// Execute runs the root command. An interrupt cancels the context so a
// running batch stops dispatching new jobs.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func init() {
	rootCmd.Version = resolveVersion()
	rootCmd.SetVersionTemplate("imgzap {{.Version}}\n")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every job at debug level")
}
