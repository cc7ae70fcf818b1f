package analytics

import (
	"sort"

	"github.com/mizuho-ai/kanshi/internal/model"
)

// Aggregate reduces a record collection to a MetricsSummary.
//
// Coercion failures are per field: a record whose latency is garbage is
// excluded from the latency mean (numerator and denominator) but still
// counts toward total_executions and every other aggregate. Percentages are
// computed against the total record count, not the count of valid values.
//
// If anything inside the reduction panics, the whole call degrades to the
// safe-defaults summary (total kept, everything else zeroed) instead of
// surfacing the failure. The dashboard must always get a usable summary.
func Aggregate(records []model.ExecutionRecord) (summary model.MetricsSummary) {
	defer func() {
		if r := recover(); r != nil {
			summary = model.MetricsSummary{
				TotalExecutions:        len(records),
				ComplexityDistribution: map[string]int{},
			}
		}
	}()

	summary = model.MetricsSummary{
		TotalExecutions:        len(records),
		ComplexityDistribution: map[string]int{},
	}
	if len(records) == 0 {
		return summary
	}

	var succeeded, withCode, withQuestion int
	var execSum, wordSum float64
	var execCount, wordCount int

	for _, r := range records {
		if r.Status == model.StatusSuccess {
			succeeded++
		}
		if r.HasCode {
			withCode++
		}
		if r.HasQuestion {
			withQuestion++
		}
		if v, ok := r.ExecutionTimeMS.Value(); ok {
			execSum += v
			execCount++
		}
		if v, ok := r.WordCount.Value(); ok {
			wordSum += v
			wordCount++
		}
		// Observed labels verbatim; an empty label means the field was absent.
		if r.Complexity != "" {
			summary.ComplexityDistribution[string(r.Complexity)]++
		}
	}

	total := float64(summary.TotalExecutions)
	summary.SuccessRate = float64(succeeded) / total * 100
	summary.CodeRequestsPercentage = float64(withCode) / total * 100
	summary.QuestionPercentage = float64(withQuestion) / total * 100
	if execCount > 0 {
		summary.AvgExecutionTime = execSum / float64(execCount)
	}
	if wordCount > 0 {
		summary.AvgWordCount = wordSum / float64(wordCount)
	}
	return summary
}

// Recent returns a copy of the n most recent records, newest first.
// The input is left untouched.
func Recent(records []model.ExecutionRecord, n int) []model.ExecutionRecord {
	sorted := make([]model.ExecutionRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
