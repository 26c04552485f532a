package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"imgzap/internal/tui"
	"imgzap/pkg/imgutil"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported formats and how each is read and written",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), tui.RenderTable(
			[]string{"FORMAT", "EXT", "MIME", "READ", "WRITE"},
			formatRows(),
		))
		return nil
	},
}

func formatRows() [][]string {
	var rows [][]string
	for _, f := range imgutil.Formats() {
		read, write := "raster", "raster"
		switch {
		case f.IsContainer():
			read, write = "largest frame", "multi-size"
		case f.IsVector():
			read, write = "rasterized", "traced"
		}
		rows = append(rows, []string{f.String(), f.Ext(), f.MIME(), read, write})
	}
	return rows
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
