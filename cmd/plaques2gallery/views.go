package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"plaques2gallery/internal/records"
	"plaques2gallery/internal/workflow"
)

const (
	displayTimeLayout = "2006-01-02 15:04"
	maxCellWidth      = 48
)

type recordView struct {
	PlaqueID            string              `json:"plaque_id"`
	ImagePath           string              `json:"image_path"`
	BatchID             int64               `json:"batch_id"`
	Position            int                 `json:"position"`
	Status              string              `json:"status"`
	Title               string              `json:"title,omitempty"`
	Artist              string              `json:"artist,omitempty"`
	Candidates          []records.Candidate `json:"candidates,omitempty"`
	Museum              string              `json:"museum,omitempty"`
	DownloadedImagePath string              `json:"downloaded_image_path,omitempty"`
	SourceURL           string              `json:"source_url,omitempty"`
	ImageURL            string              `json:"image_url,omitempty"`
	FailureStage        string              `json:"failure_stage,omitempty"`
	FailureReason       string              `json:"failure_reason,omitempty"`
	OCRText             string              `json:"ocr_text,omitempty"`
	OCRConfidence       float64             `json:"ocr_confidence,omitempty"`
	Language            string              `json:"language,omitempty"`
	Attempts            int                 `json:"attempts"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

func newRecordView(record *records.Record) recordView {
	view := recordView{
		PlaqueID:            record.PlaqueID,
		ImagePath:           record.ImagePath,
		BatchID:             record.BatchID,
		Position:            record.Position,
		Status:              string(record.Status),
		Candidates:          record.Candidates,
		Museum:              record.Museum,
		DownloadedImagePath: record.DownloadedImagePath,
		SourceURL:           record.SourceURL,
		ImageURL:            record.ImageURL,
		FailureStage:        string(record.FailureStage),
		FailureReason:       record.FailureReason,
		OCRText:             record.OCRText,
		OCRConfidence:       record.OCRConfidence,
		Language:            record.Language,
		Attempts:            record.Attempts,
		CreatedAt:           record.CreatedAt,
		UpdatedAt:           record.UpdatedAt,
	}
	if record.Query != nil {
		view.Title = record.Query.Title
		view.Artist = record.Query.Artist
	}
	return view
}

type summaryView struct {
	RunID          string         `json:"run_id"`
	Batches        []int64        `json:"batches"`
	Processed      int            `json:"processed"`
	Resolved       int            `json:"resolved"`
	Failed         int            `json:"failed"`
	FailedByStage  map[string]int `json:"failed_by_stage,omitempty"`
	Retried        int            `json:"retried"`
	Pending        int            `json:"pending"`
	QuotaExhausted bool           `json:"quota_exhausted"`
	QuotaUsed      int            `json:"quota_used"`
	QuotaLimit     int            `json:"quota_limit"`
	NextWindow     *time.Time     `json:"next_window,omitempty"`
	DurationMillis int64          `json:"duration_ms"`
}

func newSummaryView(summary workflow.Summary) summaryView {
	view := summaryView{
		RunID:          summary.RunID,
		Batches:        summary.Batches,
		Processed:      summary.Processed,
		Resolved:       summary.Resolved,
		Failed:         summary.Failed(),
		Retried:        summary.Retried,
		Pending:        summary.Pending,
		QuotaExhausted: summary.QuotaExhausted,
		QuotaUsed:      summary.QuotaUsed,
		QuotaLimit:     summary.QuotaLimit,
		DurationMillis: summary.Duration.Milliseconds(),
	}
	if len(summary.FailedByStage) > 0 {
		view.FailedByStage = make(map[string]int, len(summary.FailedByStage))
		for stage, count := range summary.FailedByStage {
			view.FailedByStage[string(stage)] = count
		}
	}
	if !summary.NextWindow.IsZero() {
		next := summary.NextWindow
		view.NextWindow = &next
	}
	return view
}

func summaryLines(summary workflow.Summary) []string {
	lines := []string{
		fmt.Sprintf("Run %s finished in %s", summary.RunID, summary.Duration.Round(time.Millisecond)),
		fmt.Sprintf("  Batches:   %s", formatBatchIDs(summary.Batches)),
		fmt.Sprintf("  Processed: %d", summary.Processed),
		fmt.Sprintf("  Resolved:  %d", summary.Resolved),
		fmt.Sprintf("  Failed:    %d%s", summary.Failed(), formatStageCounts(summary.FailedByStage)),
		fmt.Sprintf("  Retried:   %d", summary.Retried),
		fmt.Sprintf("  Pending:   %d", summary.Pending),
		fmt.Sprintf("  Quota:     %d/%d", summary.QuotaUsed, summary.QuotaLimit),
	}
	if summary.QuotaExhausted {
		next := "unknown"
		if !summary.NextWindow.IsZero() {
			next = formatDisplayTime(summary.NextWindow)
		}
		lines = append(lines, fmt.Sprintf("Search quota exhausted; resume after %s", next))
	}
	return lines
}

func buildRecordListRows(recs []*records.Record) [][]string {
	rows := make([][]string, 0, len(recs))
	for _, record := range recs {
		detail := ""
		switch record.Status {
		case records.StatusResolved:
			detail = record.DownloadedImagePath
		case records.StatusFailed:
			detail = string(record.FailureStage)
			if reason := strings.TrimSpace(record.FailureReason); reason != "" {
				detail += ": " + reason
			}
		case records.StatusSearched:
			detail = fmt.Sprintf("%d candidates", len(record.Candidates))
		}
		rows = append(rows, []string{
			record.PlaqueID,
			strconv.FormatInt(record.BatchID, 10),
			formatStatusLabel(string(record.Status)),
			truncateCell(formatQuery(record.Query)),
			truncateCell(detail),
		})
	}
	return rows
}

func buildStatusCountRows(stats map[records.Status]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range records.AllStatuses() {
		rows = append(rows, []string{formatStatusLabel(string(status)), strconv.Itoa(stats[status])})
	}
	return rows
}

func buildBatchRows(batches []records.BatchSummary) ([][]string, []string) {
	rows := make([][]string, 0, len(batches))
	totals := make(map[records.Status]int)
	size := 0
	for _, batch := range batches {
		size += batch.Size
		row := []string{
			strconv.FormatInt(batch.ID, 10),
			formatDisplayTime(batch.CreatedAt),
			fmt.Sprintf("%d/%d", batch.Size, batch.Capacity),
		}
		for _, status := range records.AllStatuses() {
			totals[status] += batch.Counts[status]
			row = append(row, strconv.Itoa(batch.Counts[status]))
		}
		rows = append(rows, row)
	}
	footer := []string{"Total", "", strconv.Itoa(size)}
	for _, status := range records.AllStatuses() {
		footer = append(footer, strconv.Itoa(totals[status]))
	}
	return rows, footer
}

func parseStatuses(values []string) ([]records.Status, error) {
	statuses := make([]records.Status, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, err := records.ParseStatus(part)
			if err != nil {
				return nil, err
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

func parseOptionalStage(value string) (records.FailureStage, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return records.ParseFailureStage(value)
}

func formatStageCounts(counts map[records.FailureStage]int) string {
	if len(counts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(counts))
	for stage, count := range counts {
		if count > 0 {
			keys = append(keys, fmt.Sprintf("%s=%d", stage, count))
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return " (" + strings.Join(keys, ", ") + ")"
}

func formatBatchIDs(ids []int64) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

func formatQuery(query *records.Query) string {
	if query == nil {
		return ""
	}
	return query.String()
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(displayTimeLayout)
}

func truncateCell(value string) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= maxCellWidth {
		return string(runes)
	}
	return string(runes[:maxCellWidth-1]) + "…"
}
