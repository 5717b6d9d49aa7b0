package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plaques2gallery/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var noScan bool
	var skipPreflight bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest the plaques directory and process pending batches once",
		Long: `Run ingests new plaque photos, then works through pending batches in order
until every batch is finished or the search quota for the current window is
spent. Progress is persisted after every record, so an interrupted run resumes
where it stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}
			opts := ctx.runtimeOptions()
			opts.SkipPreflight = skipPreflight

			summary, err := daemonrun.RunOnce(cmd.Context(), cfg, opts, !noScan)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, newSummaryView(summary))
			}
			out := cmd.OutOrStdout()
			for _, line := range summaryLines(summary) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noScan, "no-scan", false, "Skip ingesting the plaques directory before processing")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip stage health checks before processing")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the plaques directory and process batches as plaques arrive",
		Long: `Watch keeps running until interrupted. New plaque photos are ingested as they
are written, batches are processed as soon as there is work, and when the
search quota is spent the watcher sleeps until the next quota window opens.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}
			opts := ctx.runtimeOptions()
			opts.SkipPreflight = skipPreflight
			return daemonrun.Watch(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip stage health checks before watching")
	return cmd
}
