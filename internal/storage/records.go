package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mizuho-ai/kanshi/internal/model"
)

// recordColumns is the column order used by both COPY ingestion and the
// windowed SELECT, so the two cannot drift apart silently.
var recordColumns = []string{
	"id", "pipeline_id", "occurred_at", "user_message", "complexity",
	"word_count", "has_code", "has_question", "execution_time_ms", "status", "created_at",
}

// InsertRecords ingests records using the COPY protocol for high throughput.
// Records without a pipeline_id get a generated one; absent numeric fields
// are stored as NULL, never zero.
func (db *DB) InsertRecords(ctx context.Context, records []model.ExecutionRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, len(records))
	for i, r := range records {
		pipelineID := r.PipelineID
		if pipelineID == "" {
			pipelineID = "pipeline_" + uuid.NewString()
		}
		occurredAt := r.Timestamp
		if occurredAt.IsZero() {
			occurredAt = now
		}
		complexity := r.Complexity
		if complexity == "" {
			complexity = model.ComplexityUnknown
		}
		status := r.Status
		if status == "" {
			status = model.StatusUnknown
		}
		rows[i] = []any{
			uuid.New(),
			pipelineID,
			occurredAt,
			r.UserMessage,
			string(complexity),
			nullableNumeric(r.WordCount),
			r.HasCode,
			r.HasQuestion,
			nullableNumeric(r.ExecutionTimeMS),
			string(status),
			now,
		}
	}

	// Dedicated COPY timeout so a hung Postgres cannot stall an ingest
	// request past the HTTP write deadline.
	copyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	count, err := db.pool.CopyFrom(
		copyCtx,
		pgx.Identifier{"pipeline_records"},
		recordColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: copy records: %w", err)
	}
	return count, nil
}

// ListRecords returns records with occurred_at in [start, end], oldest first.
// Rows that fail to scan are skipped and logged, mirroring the tolerance the
// aggregation layer applies to malformed fields: one bad row must not take
// the dashboard down.
func (db *DB) ListRecords(ctx context.Context, start, end time.Time) ([]model.ExecutionRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT pipeline_id, occurred_at, user_message, complexity, word_count,
		        has_code, has_question, execution_time_ms, status
		 FROM pipeline_records
		 WHERE occurred_at >= $1 AND occurred_at <= $2
		 ORDER BY occurred_at`, start, end)
	if err != nil {
		return nil, fmt.Errorf("storage: list records: %w", err)
	}
	defer rows.Close()

	var records []model.ExecutionRecord
	for rows.Next() {
		var (
			r          model.ExecutionRecord
			complexity string
			status     string
			wordCount  *float64
			execTime   *float64
		)
		if err := rows.Scan(
			&r.PipelineID, &r.Timestamp, &r.UserMessage, &complexity,
			&wordCount, &r.HasCode, &r.HasQuestion, &execTime, &status,
		); err != nil {
			db.logger.Warn("storage: skipping unreadable record row", "error", err)
			continue
		}
		r.Complexity = model.Complexity(complexity)
		r.Status = model.Status(status)
		if wordCount != nil {
			r.WordCount = model.NumericOf(*wordCount)
		}
		if execTime != nil {
			r.ExecutionTimeMS = model.NumericOf(*execTime)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate records: %w", err)
	}
	return records, nil
}

// CountRecords returns the total number of stored records.
func (db *DB) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	if err := db.pool.QueryRow(ctx, `SELECT count(*) FROM pipeline_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("storage: count records: %w", err)
	}
	return count, nil
}

func nullableNumeric(n model.Numeric) any {
	if v, ok := n.Value(); ok {
		return v
	}
	return nil
}
