package records

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const recordColumns = "plaque_id, image_path, batch_id, position, status, query_title, query_artist, candidates_json, museum, downloaded_image_path, source_url, image_url, failure_stage, failure_reason, ocr_text, ocr_confidence, language, attempts, transient_failures, created_at, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		plaqueID       string
		imagePath      string
		batchID        int64
		position       int
		statusStr      string
		queryTitle     sql.NullString
		queryArtist    sql.NullString
		candidatesJSON sql.NullString
		museum         sql.NullString
		downloaded     sql.NullString
		sourceURL      sql.NullString
		imageURL       sql.NullString
		failureStage   sql.NullString
		failureReason  sql.NullString
		ocrText        sql.NullString
		ocrConfidence  sql.NullFloat64
		language       sql.NullString
		attempts       sql.NullInt64
		transient      sql.NullInt64
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&plaqueID,
		&imagePath,
		&batchID,
		&position,
		&statusStr,
		&queryTitle,
		&queryArtist,
		&candidatesJSON,
		&museum,
		&downloaded,
		&sourceURL,
		&imageURL,
		&failureStage,
		&failureReason,
		&ocrText,
		&ocrConfidence,
		&language,
		&attempts,
		&transient,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		PlaqueID:            plaqueID,
		ImagePath:           imagePath,
		BatchID:             batchID,
		Position:            position,
		Status:              Status(statusStr),
		Museum:              museum.String,
		DownloadedImagePath: downloaded.String,
		SourceURL:           sourceURL.String,
		ImageURL:            imageURL.String,
		FailureStage:        FailureStage(failureStage.String),
		FailureReason:       failureReason.String,
		OCRText:             ocrText.String,
		OCRConfidence:       ocrConfidence.Float64,
		Language:            language.String,
		Attempts:            int(attempts.Int64),
		TransientFailures:   int(transient.Int64),
	}
	if queryTitle.Valid && queryTitle.String != "" {
		record.Query = &Query{Title: queryTitle.String, Artist: queryArtist.String}
	}
	if candidatesJSON.Valid && candidatesJSON.String != "" {
		if err := json.Unmarshal([]byte(candidatesJSON.String), &record.Candidates); err != nil {
			return nil, err
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

func encodeCandidates(candidates []Candidate) (any, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(candidates)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
