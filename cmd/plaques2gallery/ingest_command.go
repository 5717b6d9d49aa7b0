package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/ingest"
	"plaques2gallery/internal/records"
)

type ingestView struct {
	Directory  string  `json:"directory"`
	Discovered int     `json:"discovered"`
	Added      int     `json:"added"`
	Existing   int     `json:"existing"`
	Skipped    int     `json:"skipped"`
	Batches    []int64 `json:"batches"`
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Record new plaque photos as pending without processing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *records.Store) error {
				root := cfg.Paths.PlaquesDir
				if trimmed := strings.TrimSpace(dir); trimmed != "" {
					expanded, err := config.ExpandPath(trimmed)
					if err != nil {
						return fmt.Errorf("resolve directory: %w", err)
					}
					root = expanded
				}

				ingester := ingest.NewIngester(store, cfg.Workflow.BatchSize, ctx.commandLogger())
				report, err := ingester.Directory(cmd.Context(), root)
				if err != nil {
					return err
				}
				view := ingestView{
					Directory:  root,
					Discovered: report.Discovered,
					Added:      report.Added,
					Existing:   report.Existing,
					Skipped:    report.Skipped,
					Batches:    report.Batches,
				}
				if jsonOutput {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Scanned %s\n", root)
				fmt.Fprintf(out, "  Discovered: %d\n", view.Discovered)
				fmt.Fprintf(out, "  Added:      %d\n", view.Added)
				fmt.Fprintf(out, "  Existing:   %d\n", view.Existing)
				fmt.Fprintf(out, "  Skipped:    %d\n", view.Skipped)
				if len(view.Batches) > 0 {
					fmt.Fprintf(out, "  Batches:    %s\n", formatBatchIDs(view.Batches))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory to scan instead of paths.plaques_dir")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the ingest report as JSON")
	return cmd
}
