// Package dashboard composes the record store, the synthetic generator, and
// the aggregation pipeline into the responses served by the HTTP API.
//
// The service owns the fallback policy: when the record store is disabled,
// unreachable, or empty for the requested window, it substitutes generator
// output and tags the response accordingly. Callers always learn where the
// data came from; nothing is suppressed silently.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mizuho-ai/kanshi/internal/analytics"
	"github.com/mizuho-ai/kanshi/internal/cache"
	"github.com/mizuho-ai/kanshi/internal/model"
)

// ErrStoreDisabled is returned by Ingest when no record store is configured.
var ErrStoreDisabled = errors.New("dashboard: record store is disabled")

// timelineBuckets is how many intervals the execution timeline is split into,
// whatever the window size.
const timelineBuckets = 20

// recentCount is how many records the dashboard's recent-executions table shows.
const recentCount = 10

// Origin tags where a record set came from.
type Origin string

const (
	OriginLive      Origin = "live"
	OriginSynthetic Origin = "synthetic"
)

// Store is the record store surface the service depends on.
// *storage.DB satisfies it.
type Store interface {
	ListRecords(ctx context.Context, start, end time.Time) ([]model.ExecutionRecord, error)
	InsertRecords(ctx context.Context, records []model.ExecutionRecord) (int64, error)
	Ping(ctx context.Context) error
}

// Cacher is the response cache surface. *cache.Cache satisfies it.
type Cacher interface {
	Get(ctx context.Context, key string, target any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

// FetchResult is a record set together with its origin.
type FetchResult struct {
	Records []model.ExecutionRecord
	Origin  Origin
}

// Response is the full dashboard payload for one window.
type Response struct {
	Source       Origin                             `json:"source"`
	WindowHours  int                                `json:"window_hours"`
	GeneratedAt  time.Time                          `json:"generated_at"`
	Summary      model.MetricsSummary               `json:"summary"`
	Timeline     []analytics.TimelineBucket         `json:"timeline"`
	StageMetrics map[string][]analytics.StagePoint  `json:"stage_metrics"`
	Alerts       []analytics.Alert                  `json:"alerts"`
	Recent       []model.ExecutionRecord            `json:"recent"`
}

// Config holds the service dependencies. Store and Cache are optional:
// nil Store means demo mode (synthetic data only), nil Cache disables
// response caching.
type Config struct {
	Store     Store
	Generator *analytics.Generator
	Cache     Cacher
	Logger    *slog.Logger
}

// Service answers dashboard queries.
type Service struct {
	store  Store
	gen    *analytics.Generator
	cache  Cacher
	logger *slog.Logger
	now    func() time.Time

	// genMu serializes generator access: the underlying rand source is not
	// safe for concurrent use, and Dashboard fans out.
	genMu sync.Mutex
}

// New creates a dashboard service.
func New(cfg Config) *Service {
	s := &Service{
		store:  cfg.Store,
		gen:    cfg.Generator,
		cache:  cfg.Cache,
		logger: cfg.Logger,
		now:    time.Now,
	}
	if s.gen == nil {
		s.gen = analytics.NewGenerator()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Records returns the records for the trailing window of the given length,
// tagged with their origin.
func (s *Service) Records(ctx context.Context, hours int) (FetchResult, error) {
	if hours < 1 {
		return FetchResult{}, fmt.Errorf("%w: got %d hours", analytics.ErrInvalidWindow, hours)
	}
	end := s.now()
	return s.fetch(ctx, end.Add(-time.Duration(hours)*time.Hour), end)
}

// Dashboard computes the full dashboard payload for the trailing window.
func (s *Service) Dashboard(ctx context.Context, hours int) (Response, error) {
	if hours < 1 {
		return Response{}, fmt.Errorf("%w: got %d hours", analytics.ErrInvalidWindow, hours)
	}

	key := cache.DashboardKey(hours)
	if s.cache != nil {
		var cached Response
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", "error", err)
		} else if hit {
			return cached, nil
		}
	}

	window := time.Duration(hours) * time.Hour
	end := s.now()
	start := end.Add(-window)

	var (
		fetched FetchResult
		stages  map[string][]analytics.StagePoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fetched, err = s.fetch(gctx, start, end)
		return err
	})
	g.Go(func() error {
		s.genMu.Lock()
		defer s.genMu.Unlock()
		var err error
		stages, err = s.gen.StageMetrics(window)
		return err
	})
	if err := g.Wait(); err != nil {
		return Response{}, err
	}

	summary := analytics.Aggregate(fetched.Records)
	resp := Response{
		Source:       fetched.Origin,
		WindowHours:  hours,
		GeneratedAt:  end,
		Summary:      summary,
		Timeline:     analytics.Timeline(fetched.Records, start, end, window/timelineBuckets),
		StageMetrics: stages,
		Alerts:       analytics.EvaluateAlerts(summary),
		Recent:       analytics.Recent(fetched.Records, recentCount),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp); err != nil {
			s.logger.Warn("dashboard cache write failed", "error", err)
		}
	}
	return resp, nil
}

// Ingest stores a batch of records. Fails when no store is configured.
func (s *Service) Ingest(ctx context.Context, records []model.ExecutionRecord) (int64, error) {
	if s.store == nil {
		return 0, ErrStoreDisabled
	}
	return s.store.InsertRecords(ctx, records)
}

// StoreHealth reports the record store state for the health endpoint.
func (s *Service) StoreHealth(ctx context.Context) string {
	if s.store == nil {
		return "disabled"
	}
	if err := s.store.Ping(ctx); err != nil {
		return "degraded"
	}
	return "connected"
}

// fetch reads records from the store, falling back to the generator when the
// store is disabled, errors, or has nothing for the window.
func (s *Service) fetch(ctx context.Context, start, end time.Time) (FetchResult, error) {
	window := end.Sub(start)
	if s.store != nil {
		records, err := s.store.ListRecords(ctx, start, end)
		if err != nil {
			s.logger.Warn("record store unavailable, serving synthetic data", "error", err)
		} else if len(records) == 0 {
			s.logger.Info("no records in window, serving synthetic data",
				"start", start, "end", end)
		} else {
			return FetchResult{Records: records, Origin: OriginLive}, nil
		}
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()
	records, err := s.gen.Generate(window)
	if err != nil {
		return FetchResult{}, fmt.Errorf("dashboard: synthetic fallback: %w", err)
	}
	return FetchResult{Records: records, Origin: OriginSynthetic}, nil
}
