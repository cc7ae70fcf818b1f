// Package analytics implements the pipeline analytics core: a synthetic
// execution record generator for demo mode and the aggregation that reduces
// record collections to dashboard metrics.
package analytics

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/mizuho-ai/kanshi/internal/model"
)

// ErrInvalidWindow is returned when a caller asks for a non-positive window.
var ErrInvalidWindow = errors.New("analytics: window must be positive")

// sampleMessages are the canned user messages cycled through by the
// generator. Word counts and the question flag derive from the text itself.
var sampleMessages = []string{
	"How do I implement a REST API in Python?",
	"What's the difference between supervised and unsupervised learning?",
	"Can you help me debug this SQL query?",
	"Explain neural networks in simple terms",
	"How to deploy a machine learning model?",
	"What are the best practices for data preprocessing?",
	"Help me understand Docker containers",
	"How do I optimize database performance?",
	"What's the latest in AI research?",
	"Can you review my Python code?",
}

// StageNames are the simulated pipeline stages reported by StageMetrics.
var StageNames = []string{"input_analyzer", "response_enhancer", "pipeline_logger"}

// Latency ranges per complexity, in milliseconds. The lower bounds are
// strictly increasing with complexity so that "harder queries take longer"
// holds as a distributional property, not per record.
const (
	lowLatencyMin, lowLatencyMax       = 200, 1500
	mediumLatencyMin, mediumLatencyMax = 1000, 3000
	highLatencyMin, highLatencyMax     = 2000, 5000
)

const (
	defaultMinRecords = 50
	defaultMaxRecords = 150
	successPercent    = 95
)

// Generator produces bounded random sequences of execution records spread
// over a requested time window. It is stateless across calls; concurrent use
// of one Generator is not safe because the underlying rand source is not,
// so share a constructor, not an instance, across goroutines.
type Generator struct {
	rng        *rand.Rand
	now        func() time.Time
	minRecords int
	maxRecords int
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithRand injects a seedable random source so tests can assert exact
// distributions deterministically.
func WithRand(rng *rand.Rand) GeneratorOption {
	return func(g *Generator) { g.rng = rng }
}

// WithClock injects the clock used as the window's upper bound.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// WithRecordRange overrides the bounds on how many records one call emits.
func WithRecordRange(minRecords, maxRecords int) GeneratorOption {
	return func(g *Generator) {
		g.minRecords = minRecords
		g.maxRecords = maxRecords
	}
}

// NewGenerator creates a generator. Without options it draws from an
// ambient-seeded source and uses the wall clock.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:        time.Now,
		minRecords: defaultMinRecords,
		maxRecords: defaultMaxRecords,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a random batch of records with timestamps drawn uniformly
// from [now-window, now]. The sequence is not chronologically ordered;
// callers that need order sort explicitly. The only failure mode is a
// non-positive window.
func (g *Generator) Generate(window time.Duration) ([]model.ExecutionRecord, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidWindow, window)
	}

	count := g.minRecords
	if g.maxRecords > g.minRecords {
		count += g.rng.IntN(g.maxRecords - g.minRecords + 1)
	}

	end := g.now()
	records := make([]model.ExecutionRecord, 0, count)
	for i := 0; i < count; i++ {
		complexity := g.sampleComplexity()
		message := sampleMessages[g.rng.IntN(len(sampleMessages))]
		wordCount := len(strings.Fields(message)) + g.rng.IntN(21)

		status := model.StatusSuccess
		if g.rng.IntN(100) >= successPercent {
			status = model.StatusFailed
		}

		records = append(records, model.ExecutionRecord{
			PipelineID:      fmt.Sprintf("pipeline_%04d", i),
			Timestamp:       end.Add(-time.Duration(g.rng.Float64() * float64(window))),
			UserMessage:     message,
			Complexity:      complexity,
			WordCount:       model.NumericOf(float64(wordCount)),
			HasCode:         g.rng.IntN(2) == 0,
			HasQuestion:     strings.Contains(message, "?"),
			ExecutionTimeMS: model.NumericOf(float64(g.sampleLatency(complexity))),
			Status:          status,
		})
	}
	return records, nil
}

// sampleComplexity draws from a weighted categorical distribution favoring
// low-complexity queries (50/30/20).
func (g *Generator) sampleComplexity() model.Complexity {
	switch v := g.rng.IntN(100); {
	case v < 50:
		return model.ComplexityLow
	case v < 80:
		return model.ComplexityMedium
	default:
		return model.ComplexityHigh
	}
}

func (g *Generator) sampleLatency(c model.Complexity) int {
	switch c {
	case model.ComplexityHigh:
		return highLatencyMin + g.rng.IntN(highLatencyMax-highLatencyMin+1)
	case model.ComplexityMedium:
		return mediumLatencyMin + g.rng.IntN(mediumLatencyMax-mediumLatencyMin+1)
	default:
		return lowLatencyMin + g.rng.IntN(lowLatencyMax-lowLatencyMin+1)
	}
}

// StagePoint is one hourly latency datapoint for a simulated pipeline stage.
type StagePoint struct {
	Timestamp time.Time `json:"timestamp"`
	AvgMS     float64   `json:"avg_ms"`
	MaxMS     float64   `json:"max_ms"`
	MinMS     float64   `json:"min_ms"`
}

// StageMetrics returns simulated per-stage hourly latency series covering
// the window, one point per hour per stage (at least one point).
func (g *Generator) StageMetrics(window time.Duration) (map[string][]StagePoint, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidWindow, window)
	}

	hours := int(window / time.Hour)
	if hours < 1 {
		hours = 1
	}
	end := g.now()

	metrics := make(map[string][]StagePoint, len(StageNames))
	for _, stage := range StageNames {
		points := make([]StagePoint, 0, hours)
		for i := hours - 1; i >= 0; i-- {
			points = append(points, StagePoint{
				Timestamp: end.Add(-time.Duration(i) * time.Hour),
				AvgMS:     float64(500 + g.rng.IntN(1501)),
				MaxMS:     float64(2000 + g.rng.IntN(3001)),
				MinMS:     float64(100 + g.rng.IntN(401)),
			})
		}
		metrics[stage] = points
	}
	return metrics, nil
}
