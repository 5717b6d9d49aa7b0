package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/export"
	"plaques2gallery/internal/records"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var path string
	var sheet string
	var statuses []string
	var batchID int64

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the gallery spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseStatuses(statuses)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *records.Store) error {
				target := cfg.Export.Path
				if trimmed := strings.TrimSpace(path); trimmed != "" {
					expanded, err := config.ExpandPath(trimmed)
					if err != nil {
						return fmt.Errorf("resolve export path: %w", err)
					}
					target = expanded
				}
				sheetName := cfg.Export.Sheet
				if trimmed := strings.TrimSpace(sheet); trimmed != "" {
					sheetName = trimmed
				}

				exporter := export.New(store, ctx.commandLogger())
				report, err := exporter.WriteFile(cmd.Context(), target, sheetName, export.Filter{
					Statuses: parsed,
					BatchID:  batchID,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d plaques (%d resolved) to %s [%s]\n",
					report.Rows, report.Resolved, report.Path, report.Sheet)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&path, "path", "o", "", "Destination workbook (defaults to export.path)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name (defaults to export.sheet)")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Only export plaques with these statuses (repeatable)")
	cmd.Flags().Int64VarP(&batchID, "batch", "b", 0, "Only export plaques in this batch")
	return cmd
}
