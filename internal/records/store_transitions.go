package records

import (
	"context"
	"fmt"
)

// retryTarget returns the status a failed record resumes from. Failures
// after search keep their candidates and skip the search call.
func retryTarget(record *Record) Status {
	switch record.FailureStage {
	case StageNormalization, StageSearch:
		return StatusPending
	default:
		if record.Query != nil && len(record.Candidates) > 0 {
			return StatusSearched
		}
		return StatusPending
	}
}

// ResetForRetry clears the failure and rewinds the record to the point the
// failure stage left off.
func ResetForRetry(record *Record) {
	target := retryTarget(record)
	if record.FailureStage == StageNormalization {
		record.Query = nil
	}
	if target == StatusPending {
		record.Candidates = nil
	}
	record.Status = target
	record.TransientFailures = 0
	record.FailureStage = ""
	record.FailureReason = ""
	record.DownloadedImagePath = ""
	record.SourceURL = ""
	record.ImageURL = ""
}

// RetryFailed rewinds failed records so the next run processes them again.
// An empty stage matches every failure stage; explicit plaque IDs narrow the
// selection further. It returns the number of records rewound.
func (s *Store) RetryFailed(ctx context.Context, stage FailureStage, plaqueIDs ...string) (int, error) {
	var candidates []*Record
	if len(plaqueIDs) > 0 {
		for _, id := range plaqueIDs {
			record, err := s.Get(ctx, id)
			if err != nil {
				return 0, err
			}
			if record == nil {
				return 0, fmt.Errorf("retry %s: %w", id, ErrRecordNotFound)
			}
			candidates = append(candidates, record)
		}
	} else {
		all, err := s.List(ctx, ListFilter{Statuses: []Status{StatusFailed}, FailureStage: stage})
		if err != nil {
			return 0, err
		}
		candidates = all
	}

	rewound := 0
	for _, record := range candidates {
		if record.Status != StatusFailed {
			continue
		}
		if stage != "" && record.FailureStage != stage {
			continue
		}
		ResetForRetry(record)
		if err := s.Update(ctx, record); err != nil {
			return rewound, err
		}
		rewound++
	}
	return rewound, nil
}
