package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/daemonrun"
)

type quotaView struct {
	Backend     string            `json:"backend"`
	WindowStart time.Time         `json:"window_start"`
	NextWindow  time.Time         `json:"next_window"`
	Used        int               `json:"used"`
	Limit       int               `json:"limit"`
	Remaining   int               `json:"remaining"`
	History     []quotaWindowView `json:"history,omitempty"`
}

type quotaWindowView struct {
	WindowStart time.Time `json:"window_start"`
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
}

func newQuotaCommand(ctx *commandContext) *cobra.Command {
	var history int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show search quota usage for the current window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), func(rt *daemonrun.Runtime) error {
				usage, err := rt.Quota.Usage(cmd.Context())
				if err != nil {
					return err
				}
				remaining, err := rt.Quota.Remaining(cmd.Context())
				if err != nil {
					return err
				}
				view := quotaView{
					Backend:     rt.Config.Quota.Backend,
					WindowStart: usage.WindowStart,
					NextWindow:  rt.Quota.NextWindow(),
					Used:        usage.Used,
					Limit:       rt.Quota.Limit(),
					Remaining:   remaining,
				}
				// Past windows are only persisted by the sqlite backend.
				if history > 0 && strings.EqualFold(view.Backend, config.QuotaBackendSQLite) {
					windows, err := rt.Store.QuotaHistory(cmd.Context(), history)
					if err != nil {
						return err
					}
					for _, window := range windows {
						view.History = append(view.History, quotaWindowView{
							WindowStart: window.WindowStart,
							Used:        window.Used,
							Limit:       window.Limit,
						})
					}
				}
				if jsonOutput {
					return writeJSON(cmd, view)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				kind := statusOK
				if view.Remaining == 0 {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Search quota", kind,
					fmt.Sprintf("%d/%d used, %d remaining", view.Used, view.Limit, view.Remaining), colorize))
				fmt.Fprintln(out, renderStatusLine("Window started", statusInfo, formatDisplayTime(view.WindowStart), colorize))
				fmt.Fprintln(out, renderStatusLine("Next window", statusInfo, formatDisplayTime(view.NextWindow), colorize))
				fmt.Fprintln(out, renderStatusLine("Backend", statusInfo, view.Backend, colorize))
				if len(view.History) > 0 {
					fmt.Fprintln(out)
					rows := make([][]string, 0, len(view.History))
					for _, window := range view.History {
						rows = append(rows, []string{
							formatDisplayTime(window.WindowStart),
							strconv.Itoa(window.Used),
							strconv.Itoa(window.Limit),
						})
					}
					fmt.Fprint(out, renderTable(
						[]string{"Window", "Used", "Limit"},
						rows,
						[]columnAlignment{alignLeft, alignRight, alignRight},
					))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&history, "history", 0, "Also show this many past quota windows")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print quota usage as JSON")
	return cmd
}
