package records

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a match record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSearched Status = "searched"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusSearched, StatusResolved, StatusFailed}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// IsTerminal reports whether no further processing happens for the status.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusFailed
}

func (s Status) valid() bool {
	for _, candidate := range allStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// ParseStatus converts user input to a Status.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if !status.valid() {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return status, nil
}

// FailureStage names where a failed record stopped.
type FailureStage string

const (
	StageNormalization  FailureStage = "normalization"
	StageSearch         FailureStage = "search"
	StageRender         FailureStage = "render"
	StageImageSelection FailureStage = "image_selection"
	StageDownload       FailureStage = "download"
)

var allFailureStages = []FailureStage{
	StageNormalization,
	StageSearch,
	StageRender,
	StageImageSelection,
	StageDownload,
}

// AllFailureStages returns every failure stage in pipeline order.
func AllFailureStages() []FailureStage {
	out := make([]FailureStage, len(allFailureStages))
	copy(out, allFailureStages)
	return out
}

func (f FailureStage) valid() bool {
	for _, candidate := range allFailureStages {
		if f == candidate {
			return true
		}
	}
	return false
}

// ParseFailureStage converts user input to a FailureStage.
func ParseFailureStage(value string) (FailureStage, error) {
	stage := FailureStage(strings.ToLower(strings.TrimSpace(value)))
	if !stage.valid() {
		return "", fmt.Errorf("unknown failure stage %q", value)
	}
	return stage, nil
}

// Query is the normalized search query for one plaque.
type Query struct {
	Title  string
	Artist string
}

// String renders "Title by Artist", or just the title when the artist is unknown.
func (q Query) String() string {
	title := strings.TrimSpace(q.Title)
	artist := strings.TrimSpace(q.Artist)
	if artist == "" {
		return title
	}
	return title + " by " + artist
}

// Candidate is one search result page.
type Candidate struct {
	URL  string `json:"url"`
	Rank int    `json:"rank"`
}

// Record is the durable outcome of one plaque.
type Record struct {
	PlaqueID            string
	ImagePath           string
	BatchID             int64
	Position            int
	Status              Status
	Query               *Query
	Candidates          []Candidate
	Museum              string
	DownloadedImagePath string
	SourceURL           string
	ImageURL            string
	FailureStage        FailureStage
	FailureReason       string
	OCRText             string
	OCRConfidence       float64
	Language            string
	Attempts            int
	TransientFailures   int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ErrInvalidRecord marks writes refused by Record.Validate.
var ErrInvalidRecord = errors.New("invalid record")

// Validate checks the record invariants. The store refuses to persist a
// record that fails validation.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.PlaqueID) == "" {
		return fmt.Errorf("%w: plaque_id is required", ErrInvalidRecord)
	}
	if !r.Status.valid() {
		return fmt.Errorf("%w: %s: unknown status %q", ErrInvalidRecord, r.PlaqueID, r.Status)
	}
	if r.Query != nil && strings.TrimSpace(r.Query.Title) == "" {
		return fmt.Errorf("%w: %s: query title must not be empty", ErrInvalidRecord, r.PlaqueID)
	}
	if (r.DownloadedImagePath == "") != (r.SourceURL == "") {
		return fmt.Errorf("%w: %s: downloaded_image_path and source_url must be set together", ErrInvalidRecord, r.PlaqueID)
	}
	if r.DownloadedImagePath != "" && r.Status != StatusResolved {
		return fmt.Errorf("%w: %s: downloaded image set on %s record", ErrInvalidRecord, r.PlaqueID, r.Status)
	}
	if (r.Status == StatusFailed) != (r.FailureStage != "") {
		return fmt.Errorf("%w: %s: failure_stage must be set exactly when status is failed", ErrInvalidRecord, r.PlaqueID)
	}
	if (r.Status == StatusFailed) != (strings.TrimSpace(r.FailureReason) != "") {
		return fmt.Errorf("%w: %s: failure_reason must be set exactly when status is failed", ErrInvalidRecord, r.PlaqueID)
	}
	if r.FailureStage != "" && !r.FailureStage.valid() {
		return fmt.Errorf("%w: %s: unknown failure stage %q", ErrInvalidRecord, r.PlaqueID, r.FailureStage)
	}
	switch r.Status {
	case StatusSearched:
		if r.Query == nil {
			return fmt.Errorf("%w: %s: searched record requires a query", ErrInvalidRecord, r.PlaqueID)
		}
		if len(r.Candidates) == 0 {
			return fmt.Errorf("%w: %s: searched record requires at least one candidate", ErrInvalidRecord, r.PlaqueID)
		}
	case StatusResolved:
		if r.Query == nil {
			return fmt.Errorf("%w: %s: resolved record requires a query", ErrInvalidRecord, r.PlaqueID)
		}
		if r.DownloadedImagePath == "" {
			return fmt.Errorf("%w: %s: resolved record requires downloaded_image_path and source_url", ErrInvalidRecord, r.PlaqueID)
		}
	}
	return nil
}

// MarkFailed moves the record to failed at stage with reason. Partial
// resolution fields are cleared so the invariants hold.
func (r *Record) MarkFailed(stage FailureStage, reason string) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = string(stage) + " failed"
	}
	r.Status = StatusFailed
	r.FailureStage = stage
	r.FailureReason = reason
	r.DownloadedImagePath = ""
	r.SourceURL = ""
	r.ImageURL = ""
}

// MarkSearched stores the candidates and advances the record.
func (r *Record) MarkSearched(candidates []Candidate) {
	r.Candidates = append([]Candidate(nil), candidates...)
	r.Status = StatusSearched
}

// MarkResolved stores the resolution outcome.
func (r *Record) MarkResolved(imagePath, sourceURL, imageURL, museum string) {
	r.Status = StatusResolved
	r.DownloadedImagePath = imagePath
	r.SourceURL = sourceURL
	r.ImageURL = imageURL
	r.Museum = museum
	r.FailureStage = ""
	r.FailureReason = ""
}

// Batch groups records processed within one quota window.
type Batch struct {
	ID        int64
	CreatedAt time.Time
	Size      int
	Capacity  int
}

// BatchSummary is a batch plus its per-status counts.
type BatchSummary struct {
	Batch
	Counts map[Status]int
}

// Remaining returns the number of non-terminal records in the batch.
func (b BatchSummary) Remaining() int {
	return b.Counts[StatusPending] + b.Counts[StatusSearched]
}

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	Statuses     []Status
	FailureStage FailureStage
	BatchID      int64
	Limit        int
}

// QuotaWindow is persisted usage for one quota window.
type QuotaWindow struct {
	WindowStart time.Time
	Used        int
	Limit       int
}

// DatabaseHealth captures diagnostic information about the record database.
type DatabaseHealth struct {
	DBPath         string
	DatabaseExists bool
	SchemaVersion  int
	IntegrityCheck bool
	TotalRecords   int
	Error          string
}
