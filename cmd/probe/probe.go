// Package probe implements the table detection inspection command.
package probe

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kitabu/kitabu-go/internal/conf"
	"github.com/kitabu/kitabu-go/internal/legacy"
	"github.com/kitabu/kitabu-go/internal/migration"
)

// Command creates a new probe command for inspecting a legacy database file.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe [legacy.db]",
		Short: "Inspect a legacy database file",
		Long:  `Validate a legacy database file and report which tables map to which library entities.`,
		Args:  cobra.ExactArgs(1), // the command expects exactly one argument
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(args[0])
		},
	}
	return cmd
}

func runProbe(path string) error {
	src, err := legacy.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	detections, err := migration.DetectTables(src)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tENTITY\tSCORE\tSTATUS\tROWS\tMAPPED FIELDS")
	for i := range detections {
		det := &detections[i]
		entity := string(det.TargetEntity)
		if det.Status == migration.StatusUnmapped {
			entity = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%d\n",
			det.SourceTable, entity, det.Score, det.Status, det.RecordCount, len(det.FieldMappings))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for i := range detections {
		det := &detections[i]
		if len(det.FieldMappings) == 0 {
			continue
		}
		fmt.Printf("\n%s -> %s\n", det.SourceTable, det.TargetEntity)
		for _, m := range det.FieldMappings {
			fmt.Printf("  %-24s -> %s (%s)\n", m.SourceColumn, m.TargetField, m.DataKind)
		}
	}

	return nil
}
