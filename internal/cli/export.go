package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sadopc/timekeep/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd(e *env) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every entry to CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q (want csv or json)", format)
			}

			rows, err := e.store.ExportRows()
			if err != nil {
				return err
			}

			now := e.now()
			if out == "-" && format == "csv" {
				return export.WriteCSV(cmd.OutOrStdout(), rows, now)
			}
			path := out
			if path == "" {
				path = filepath.Join(e.cfg.ExportDir, export.FileName(now, format))
			}

			if format == "json" {
				err = export.ToJSON(rows, now, path)
			} else {
				err = export.ToCSV(rows, now, path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(rows), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, - for stdout (csv only)")
	return cmd
}
