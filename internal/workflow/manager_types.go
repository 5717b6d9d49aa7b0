package workflow

import (
	"time"

	"plaques2gallery/internal/records"
	"plaques2gallery/internal/stage"
)

const (
	maxWorkers       = 8
	maxReasonLength  = 500
	progressBucketPc = 10
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Normalizer stage.Handler
	Searcher   stage.Handler
	Resolver   stage.Handler
}

type pipelineStage struct {
	name         string
	handler      stage.Handler
	failureStage records.FailureStage
	accepts      func(*records.Record) bool
}

// Summary reports the outcome of one Run.
type Summary struct {
	RunID          string
	Batches        []int64
	Processed      int
	Resolved       int
	FailedByStage  map[records.FailureStage]int
	Retried        int
	Pending        int
	QuotaExhausted bool
	QuotaUsed      int
	QuotaLimit     int
	NextWindow     time.Time
	StartedAt      time.Time
	Duration       time.Duration
}

// Failed returns the number of records that failed during the run.
func (s Summary) Failed() int {
	total := 0
	for _, count := range s.FailedByStage {
		total += count
	}
	return total
}

func (s Summary) clone() Summary {
	out := s
	out.Batches = append([]int64(nil), s.Batches...)
	out.FailedByStage = make(map[records.FailureStage]int, len(s.FailedByStage))
	for key, value := range s.FailedByStage {
		out.FailedByStage[key] = value
	}
	return out
}

type recordOutcome int

const (
	outcomeTerminal recordOutcome = iota
	outcomeRetry
	outcomeQuota
	outcomeInterrupted
)
