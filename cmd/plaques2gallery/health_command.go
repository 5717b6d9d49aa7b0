package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/preflight"
	"plaques2gallery/internal/records"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check directories, credentials, and external services",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *records.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				for _, line := range renderSectionHeader("Database", colorize) {
					fmt.Fprintln(out, line)
				}
				health, err := store.CheckHealth(cmd.Context())
				dbKind := statusOK
				dbMsg := fmt.Sprintf("%s (schema v%d, %d records)", health.DBPath, health.SchemaVersion, health.TotalRecords)
				switch {
				case err != nil:
					dbKind, dbMsg = statusError, err.Error()
				case !health.IntegrityCheck:
					dbKind, dbMsg = statusError, "integrity check failed"
					if health.Error != "" {
						dbMsg = health.Error
					}
				}
				fmt.Fprintln(out, renderStatusLine("Record store", dbKind, dbMsg, colorize))
				fmt.Fprintln(out)

				for _, line := range renderSectionHeader("Preflight", colorize) {
					fmt.Fprintln(out, line)
				}
				results := preflight.RunAll(cmd.Context(), cfg)
				for _, line := range preflightLines(results, colorize) {
					fmt.Fprintln(out, line)
				}

				failed := len(preflight.Failed(results))
				if dbKind == statusError {
					failed++
				}
				if failed > 0 {
					return fmt.Errorf("%d health check(s) failed", failed)
				}
				return nil
			})
		},
	}
}
