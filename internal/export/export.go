package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"plaques2gallery/internal/fileutil"
	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/records"
)

const (
	defaultSheet    = "Gallery"
	maxReasonLength = 140
)

var headers = []string{
	"Plaque",
	"Batch",
	"Status",
	"Title",
	"Artist",
	"Museum",
	"Image Path",
	"Source URL",
	"Image URL",
	"Failure Stage",
	"Failure Reason",
}

// Filter narrows the exported records. Zero values export everything.
type Filter struct {
	Statuses []records.Status
	BatchID  int64
}

// Report summarizes a written workbook.
type Report struct {
	Path     string
	Sheet    string
	Rows     int
	Resolved int
}

// Exporter reads records and renders the gallery workbook.
type Exporter struct {
	store  *records.Store
	logger *slog.Logger
}

// New constructs an Exporter over store.
func New(store *records.Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{store: store, logger: logging.NewComponentLogger(logger, "export")}
}

// WriteFile renders the workbook and replaces path atomically.
func (e *Exporter) WriteFile(ctx context.Context, path, sheet string, filter Filter) (Report, error) {
	start := time.Now()
	if strings.TrimSpace(sheet) == "" {
		sheet = defaultSheet
	}
	recs, err := e.store.List(ctx, records.ListFilter{Statuses: filter.Statuses, BatchID: filter.BatchID})
	if err != nil {
		return Report{}, fmt.Errorf("query records: %w", err)
	}

	book, err := Workbook(recs, sheet)
	if err != nil {
		return Report{}, err
	}
	defer book.Close()

	err = fileutil.WriteAtomicFunc(path, 0o644, func(w io.Writer) error {
		return book.Write(w)
	})
	if err != nil {
		return Report{}, fmt.Errorf("xlsx write: %w", err)
	}

	report := Report{Path: path, Sheet: sheet, Rows: len(recs)}
	for _, r := range recs {
		if r.Status == records.StatusResolved {
			report.Resolved++
		}
	}
	e.logger.Info("gallery exported",
		logging.String(logging.FieldEventType, "export_complete"),
		logging.String("path", path),
		logging.Int("rows", report.Rows),
		logging.Int("resolved", report.Resolved),
		logging.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return report, nil
}

// Workbook lays recs out on sheet, one row per record after a frozen
// header row. Source URLs become hyperlinks.
func Workbook(recs []*records.Record, sheet string) (*excelize.File, error) {
	f := excelize.NewFile()
	// New files start with Sheet1; rename it rather than leave it empty.
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheet, "A1", last, headerStyle)

	for i, r := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		title, artist := "", ""
		if r.Query != nil {
			title, artist = r.Query.Title, r.Query.Artist
		}
		write(1, r.PlaqueID)
		write(2, r.BatchID)
		write(3, string(r.Status))
		write(4, title)
		write(5, artist)
		write(6, r.Museum)
		write(7, r.DownloadedImagePath)
		write(8, r.SourceURL)
		write(9, r.ImageURL)
		write(10, string(r.FailureStage))
		write(11, truncate(r.FailureReason, maxReasonLength))

		if r.SourceURL != "" {
			cell, _ := excelize.CoordinatesToCellName(8, row)
			_ = f.SetCellHyperLink(sheet, cell, r.SourceURL, "External")
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 32) // plaque
	_ = f.SetColWidth(sheet, "B", "C", 10) // batch, status
	_ = f.SetColWidth(sheet, "D", "E", 30) // title, artist
	_ = f.SetColWidth(sheet, "F", "F", 24) // museum
	_ = f.SetColWidth(sheet, "G", "I", 48) // paths and urls
	_ = f.SetColWidth(sheet, "J", "J", 16)
	_ = f.SetColWidth(sheet, "K", "K", 48)
	_ = f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	if len(recs) > 0 {
		end, _ := excelize.CoordinatesToCellName(len(headers), len(recs)+1)
		_ = f.AutoFilter(sheet, "A1:"+end, nil)
	}
	return f, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
