package history

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id              int64
		runID           string
		kind            string
		topic           sql.NullString
		title           sql.NullString
		outputDir       sql.NullString
		statusStr       string
		progressStage   sql.NullString
		progressMessage sql.NullString
		turnCount       int
		segmentCount    int
		skippedImages   int
		videoPath       sql.NullString
		outcome         sql.NullString
		errorMessage    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		finishedRaw     sql.NullString
		notifiedRaw     sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&runID,
		&kind,
		&topic,
		&title,
		&outputDir,
		&statusStr,
		&progressStage,
		&progressMessage,
		&turnCount,
		&segmentCount,
		&skippedImages,
		&videoPath,
		&outcome,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
		&notifiedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:              id,
		RunID:           runID,
		Kind:            kind,
		Topic:           topic.String,
		Title:           title.String,
		OutputDir:       outputDir.String,
		Status:          Status(statusStr),
		ProgressStage:   progressStage.String,
		ProgressMessage: progressMessage.String,
		TurnCount:       turnCount,
		SegmentCount:    segmentCount,
		SkippedImages:   skippedImages,
		VideoPath:       videoPath.String,
		Outcome:         outcome.String,
		ErrorMessage:    errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		run.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		run.UpdatedAt = updated
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	if notifiedRaw.Valid {
		if notified, err := parseTimeString(notifiedRaw.String); err == nil {
			run.NotifiedAt = &notified
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
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
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
