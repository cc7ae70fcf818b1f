// Package model defines the execution record and summary types shared by the
// generator, aggregator, storage, and HTTP layers.
package model

import "time"

// Status is the terminal outcome of a pipeline execution.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusUnknown Status = "UNKNOWN"
)

// Complexity classifies how demanding the triggering message was.
type Complexity string

const (
	ComplexityLow     Complexity = "low"
	ComplexityMedium  Complexity = "medium"
	ComplexityHigh    Complexity = "high"
	ComplexityUnknown Complexity = "unknown"
)

// ExecutionRecord is one observed (or simulated) pipeline invocation.
//
// WordCount and ExecutionTimeMS use Numeric because upstream loggers emit
// them with inconsistent types; see Numeric for the coercion contract.
// Timestamp carries whatever the source recorded; callers that need
// chronological order must sort explicitly.
type ExecutionRecord struct {
	PipelineID      string     `json:"pipeline_id"`
	Timestamp       time.Time  `json:"timestamp"`
	UserMessage     string     `json:"user_message"`
	Complexity      Complexity `json:"complexity"`
	WordCount       Numeric    `json:"word_count"`
	HasCode         bool       `json:"has_code"`
	HasQuestion     bool       `json:"has_question"`
	ExecutionTimeMS Numeric    `json:"execution_time_ms"`
	Status          Status     `json:"status"`
}

// MetricsSummary is the reduced statistical view over a record collection.
// Percentages are 0-100 and computed against TotalExecutions.
// ComplexityDistribution maps observed labels verbatim to counts; absent
// categories are not zero-filled.
type MetricsSummary struct {
	TotalExecutions        int            `json:"total_executions"`
	SuccessRate            float64        `json:"success_rate"`
	AvgExecutionTime       float64        `json:"avg_execution_time"`
	AvgWordCount           float64        `json:"avg_word_count"`
	ComplexityDistribution map[string]int `json:"complexity_distribution"`
	CodeRequestsPercentage float64        `json:"code_requests_percentage"`
	QuestionPercentage     float64        `json:"question_percentage"`
}
