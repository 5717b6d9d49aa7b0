package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/daemonrun"
	"plaques2gallery/internal/language"
	"plaques2gallery/internal/records"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var stage string
	var batchID int64
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plaque records in batch order",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseStatuses(statuses)
			if err != nil {
				return err
			}
			failureStage, err := parseOptionalStage(stage)
			if err != nil {
				return err
			}
			if limit < 0 {
				return errors.New("--limit must not be negative")
			}
			return ctx.withStore(func(_ *config.Config, store *records.Store) error {
				recs, err := store.List(cmd.Context(), records.ListFilter{
					Statuses:     parsed,
					FailureStage: failureStage,
					BatchID:      batchID,
					Limit:        limit,
				})
				if err != nil {
					return err
				}
				if jsonOutput {
					views := make([]recordView, 0, len(recs))
					for _, record := range recs {
						views = append(views, newRecordView(record))
					}
					return writeJSON(cmd, views)
				}
				if len(recs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No plaques match")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Plaque", "Batch", "Status", "Query", "Detail"},
					buildRecordListRows(recs),
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status: pending, searched, resolved, failed (repeatable)")
	cmd.Flags().StringVar(&stage, "stage", "", "Filter failed plaques by failure stage")
	cmd.Flags().Int64VarP(&batchID, "batch", "b", 0, "Only list plaques in this batch")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of plaques to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print plaques as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <plaque_id>",
		Short: "Show every recorded detail for one plaque",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(_ *config.Config, store *records.Store) error {
				record, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("plaque %q not found", id)
				}
				view := newRecordView(record)
				if jsonOutput {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader(view.PlaqueID, colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Status", recordStatusKind(record.Status), formatStatusLabel(view.Status), colorize))
				for _, field := range showFields(view) {
					if field[1] == "" {
						continue
					}
					fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, field[0]+":", field[1])
				}
				if len(view.Candidates) > 0 {
					fmt.Fprintln(out)
					rows := make([][]string, 0, len(view.Candidates))
					for _, candidate := range view.Candidates {
						rows = append(rows, []string{fmt.Sprintf("%d", candidate.Rank), candidate.URL})
					}
					fmt.Fprint(out, renderTable([]string{"Rank", "Candidate URL"}, rows, []columnAlignment{alignRight, alignLeft}))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the plaque as JSON")
	return cmd
}

func showFields(view recordView) [][2]string {
	fields := [][2]string{
		{"Photo", view.ImagePath},
		{"Batch", fmt.Sprintf("%d (position %d)", view.BatchID, view.Position)},
		{"Title", view.Title},
		{"Artist", view.Artist},
		{"Museum", view.Museum},
		{"Image", view.DownloadedImagePath},
		{"Source page", view.SourceURL},
		{"Image URL", view.ImageURL},
		{"Failure stage", view.FailureStage},
		{"Failure reason", view.FailureReason},
		{"Language", formatLanguage(view.Language)},
		{"Attempts", fmt.Sprintf("%d", view.Attempts)},
		{"Created", formatDisplayTime(view.CreatedAt)},
		{"Updated", formatDisplayTime(view.UpdatedAt)},
	}
	if view.OCRConfidence > 0 {
		fields = append(fields, [2]string{"OCR confidence", fmt.Sprintf("%.0f%%", view.OCRConfidence)})
	}
	if text := strings.TrimSpace(view.OCRText); text != "" {
		fields = append(fields, [2]string{"OCR text", strings.Join(strings.Fields(text), " ")})
	}
	return fields
}

func formatLanguage(code string) string {
	if strings.TrimSpace(code) == "" {
		return ""
	}
	return fmt.Sprintf("%s (%s)", language.DisplayName(code), code)
}

func newBatchesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Show every batch with its per-status counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *records.Store) error {
				batches, err := store.Batches(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					type batchView struct {
						ID        int64          `json:"id"`
						Size      int            `json:"size"`
						Capacity  int            `json:"capacity"`
						Remaining int            `json:"remaining"`
						Counts    map[string]int `json:"counts"`
					}
					views := make([]batchView, 0, len(batches))
					for _, batch := range batches {
						counts := make(map[string]int, len(batch.Counts))
						for status, count := range batch.Counts {
							counts[string(status)] = count
						}
						views = append(views, batchView{
							ID:        batch.ID,
							Size:      batch.Size,
							Capacity:  batch.Capacity,
							Remaining: batch.Remaining(),
							Counts:    counts,
						})
					}
					return writeJSON(cmd, views)
				}
				if len(batches) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No batches yet")
					return nil
				}
				headers := []string{"Batch", "Created", "Size"}
				aligns := []columnAlignment{alignRight, alignLeft, alignRight}
				for _, status := range records.AllStatuses() {
					headers = append(headers, formatStatusLabel(string(status)))
					aligns = append(aligns, alignRight)
				}
				rows, footer := buildBatchRows(batches)
				fmt.Fprint(cmd.OutOrStdout(), renderTableWithFooter(headers, rows, footer, aligns))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print batches as JSON")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var stage string

	cmd := &cobra.Command{
		Use:   "retry [plaque_id...]",
		Short: "Return failed plaques to pending so the next run retries them",
		Long: `Retry rewinds failed plaques. Plaques that already have search candidates go
back to the searched state so no search quota is spent on them again; the rest
go back to pending. Without plaque ids every failed plaque is retried,
optionally narrowed by --stage.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			failureStage, err := parseOptionalStage(stage)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(args))
			for _, arg := range args {
				if trimmed := strings.TrimSpace(arg); trimmed != "" {
					ids = append(ids, trimmed)
				}
			}
			return ctx.withRuntime(cmd.Context(), func(rt *daemonrun.Runtime) error {
				count, err := rt.Daemon.RetryFailed(cmd.Context(), failureStage, ids...)
				if err != nil {
					return err
				}
				if count == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No failed plaques matched")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d failed plaque(s) for retry\n", count)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&stage, "stage", "", "Only retry plaques that failed at this stage")
	return cmd
}
