package stage

import (
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/services"
)

// RequireQuery returns a services.ErrValidation when the record has no
// normalized query yet.
func RequireQuery(stageName string, record *records.Record) error {
	if record == nil || record.Query == nil || record.Query.Title == "" {
		return services.Wrap(
			services.ErrValidation, stageName, "check preconditions",
			"Record has no normalized query; retry normalization", nil)
	}
	return nil
}

// RequireCandidates returns a services.ErrValidation when the record has no
// candidate URLs to resolve.
func RequireCandidates(stageName string, record *records.Record) error {
	if record == nil || len(record.Candidates) == 0 {
		return services.Wrap(
			services.ErrValidation, stageName, "check preconditions",
			"Record has no candidate URLs; retry search", nil)
	}
	return nil
}
