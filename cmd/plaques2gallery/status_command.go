package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"plaques2gallery/internal/daemonrun"
	"plaques2gallery/internal/records"
)

type statusView struct {
	WatcherRunning bool           `json:"watcher_running"`
	Records        map[string]int `json:"records"`
	ActiveBatch    *int64         `json:"active_batch,omitempty"`
	QuotaUsed      int            `json:"quota_used"`
	QuotaLimit     int            `json:"quota_limit"`
	QuotaWindow    time.Time      `json:"quota_window_start"`
	NextWindow     time.Time      `json:"next_window"`
	DatabasePath   string         `json:"database_path"`
	LockFilePath   string         `json:"lock_file_path"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show record counts, quota usage, and whether a watcher is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), func(rt *daemonrun.Runtime) error {
				status := rt.Daemon.Status(cmd.Context())
				active, err := rt.Store.ActiveBatch(cmd.Context())
				if err != nil {
					return err
				}

				view := statusView{
					WatcherRunning: status.Running || status.LockedByPeer,
					Records:        make(map[string]int, len(status.Workflow.RecordStats)),
					QuotaUsed:      status.Workflow.Quota.Used,
					QuotaLimit:     rt.Quota.Limit(),
					QuotaWindow:    status.Workflow.Quota.WindowStart,
					NextWindow:     status.Workflow.NextWindow,
					DatabasePath:   status.DatabasePath,
					LockFilePath:   status.LockFilePath,
				}
				for _, s := range records.AllStatuses() {
					view.Records[string(s)] = status.Workflow.RecordStats[s]
				}
				if active != nil {
					id := active.ID
					view.ActiveBatch = &id
				}
				if jsonOutput {
					return writeJSON(cmd, view)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Pipeline", colorize) {
					fmt.Fprintln(out, line)
				}
				watcherKind := statusInfo
				if view.WatcherRunning {
					watcherKind = statusOK
				}
				fmt.Fprintln(out, renderStatusLine("Watcher running", watcherKind, yesNo(view.WatcherRunning), colorize))
				batchMsg := "none"
				if view.ActiveBatch != nil {
					batchMsg = fmt.Sprintf("%d", *view.ActiveBatch)
				}
				fmt.Fprintln(out, renderStatusLine("Active batch", statusInfo, batchMsg, colorize))

				quotaKind := statusOK
				if view.QuotaLimit > 0 && view.QuotaUsed >= view.QuotaLimit {
					quotaKind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Search quota", quotaKind,
					fmt.Sprintf("%d/%d used, next window %s", view.QuotaUsed, view.QuotaLimit, formatDisplayTime(view.NextWindow)), colorize))
				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, view.DatabasePath, colorize))
				fmt.Fprintln(out)

				for _, line := range renderSectionHeader("Records", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprint(out, renderTable(
					[]string{"Status", "Count"},
					buildStatusCountRows(status.Workflow.RecordStats),
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print status as JSON")
	return cmd
}
