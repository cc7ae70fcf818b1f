package model

import (
	"fmt"
	"time"
)

// Field length limits for ingested records. These keep a single misbehaving
// logger from filling Postgres TEXT columns with caller-controlled garbage.
const (
	MaxPipelineIDLen  = 200
	MaxUserMessageLen = 32 * 1024 // 32 KB
	MaxIngestBatch    = 1000
)

// ValidateRecord checks per-field limits on an ingested record.
// Loose numeric typing is handled by Numeric; this only rejects sizes that
// would be abusive to store.
func ValidateRecord(r ExecutionRecord) error {
	if len(r.PipelineID) > MaxPipelineIDLen {
		return fmt.Errorf("pipeline_id exceeds maximum length of %d characters", MaxPipelineIDLen)
	}
	if len(r.UserMessage) > MaxUserMessageLen {
		return fmt.Errorf("user_message exceeds maximum length of %d bytes", MaxUserMessageLen)
	}
	return nil
}

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnavailable   = "UNAVAILABLE"
)

// IngestRecordsRequest is the request body for POST /v1/records.
type IngestRecordsRequest struct {
	Records []ExecutionRecord `json:"records"`
}

// IngestRecordsResponse reports how many records were stored.
type IngestRecordsResponse struct {
	Inserted int64 `json:"inserted"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Store         string `json:"store"` // "connected", "degraded", or "disabled"
}
