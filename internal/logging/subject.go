package logging

import "strings"

// FormatSubject builds the batch/plaque/stage subject string used in console output.
func FormatSubject(batchID, plaqueID, stage string) string {
	batchID = strings.TrimSpace(batchID)
	plaqueID = strings.TrimSpace(plaqueID)
	stage = strings.TrimSpace(stage)
	parts := make([]string, 0, 2)
	if batchID != "" {
		parts = append(parts, "Batch "+batchID)
	}
	switch {
	case plaqueID != "" && stage != "":
		parts = append(parts, plaqueID+" ("+stage+")")
	case plaqueID != "":
		parts = append(parts, plaqueID)
	case stage != "":
		parts = append(parts, stage)
	}
	return strings.Join(parts, " · ")
}
