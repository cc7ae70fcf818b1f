package analytics

import (
	"time"

	"github.com/mizuho-ai/kanshi/internal/model"
)

// TimelineBucket is one fixed interval of the execution timeline.
type TimelineBucket struct {
	Start            time.Time `json:"start"`
	Count            int       `json:"count"`
	Succeeded        int       `json:"succeeded"`
	Failed           int       `json:"failed"`
	AvgExecutionTime float64   `json:"avg_execution_time"`
}

// Timeline buckets records into fixed intervals covering [start, end).
// Records outside the window are dropped. Buckets are chronological and the
// last one absorbs any remainder when the window is not a whole multiple of
// the bucket size. The latency mean follows the same coerce-or-exclude rule
// as Aggregate.
func Timeline(records []model.ExecutionRecord, start, end time.Time, bucket time.Duration) []TimelineBucket {
	if bucket <= 0 || !end.After(start) {
		return nil
	}

	n := int(end.Sub(start) / bucket)
	if n < 1 {
		n = 1
	}

	buckets := make([]TimelineBucket, n)
	for i := range buckets {
		buckets[i].Start = start.Add(time.Duration(i) * bucket)
	}

	sums := make([]float64, n)
	counts := make([]int, n)
	for _, r := range records {
		if r.Timestamp.Before(start) || !r.Timestamp.Before(end) {
			continue
		}
		i := int(r.Timestamp.Sub(start) / bucket)
		if i >= n {
			i = n - 1
		}
		buckets[i].Count++
		switch r.Status {
		case model.StatusSuccess:
			buckets[i].Succeeded++
		case model.StatusFailed:
			buckets[i].Failed++
		}
		if v, ok := r.ExecutionTimeMS.Value(); ok {
			sums[i] += v
			counts[i]++
		}
	}

	for i := range buckets {
		if counts[i] > 0 {
			buckets[i].AvgExecutionTime = sums[i] / float64(counts[i])
		}
	}
	return buckets
}
