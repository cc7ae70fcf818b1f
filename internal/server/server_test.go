package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mizuho-ai/kanshi/internal/analytics"
	"github.com/mizuho-ai/kanshi/internal/auth"
	"github.com/mizuho-ai/kanshi/internal/model"
	"github.com/mizuho-ai/kanshi/internal/ratelimit"
	"github.com/mizuho-ai/kanshi/internal/service/dashboard"
)

type fakeStore struct {
	records  []model.ExecutionRecord
	inserted []model.ExecutionRecord
	listErr  error
	pingErr  error
}

func (f *fakeStore) ListRecords(_ context.Context, _, _ time.Time) ([]model.ExecutionRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records, nil
}

func (f *fakeStore) InsertRecords(_ context.Context, records []model.ExecutionRecord) (int64, error) {
	f.inserted = append(f.inserted, records...)
	return int64(len(records)), nil
}

func (f *fakeStore) Ping(_ context.Context) error { return f.pingErr }

func storedRecords(now time.Time) []model.ExecutionRecord {
	return []model.ExecutionRecord{
		{
			PipelineID:      "pipe-1",
			Timestamp:       now.Add(-10 * time.Minute),
			UserMessage:     "deploy the staging cluster",
			Complexity:      model.ComplexityLow,
			WordCount:       model.NumericOf(4),
			ExecutionTimeMS: model.NumericOf(1200),
			Status:          model.StatusSuccess,
		},
		{
			PipelineID:      "pipe-2",
			Timestamp:       now.Add(-5 * time.Minute),
			UserMessage:     "why did the last run fail?",
			Complexity:      model.ComplexityHigh,
			WordCount:       model.NumericOf(6),
			HasQuestion:     true,
			ExecutionTimeMS: model.NumericOf(4100),
			Status:          model.StatusFailed,
		},
	}
}

func testServer(t *testing.T, store dashboard.Store, opts ...func(*Config)) *Server {
	t.Helper()
	gen := analytics.NewGenerator(
		analytics.WithRand(rand.New(rand.NewPCG(7, 11))),
	)
	svc := dashboard.New(dashboard.Config{
		Store:     store,
		Generator: gen,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	cfg := Config{
		Service:            svc,
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		Port:               0,
		Version:            "test",
		DefaultWindowHours: 24,
		MaxWindowHours:     168,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}

func doRequest(t *testing.T, srv *Server, method, target string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, target any) model.ResponseMeta {
	t.Helper()
	var envelope struct {
		Data json.RawMessage    `json:"data"`
		Meta model.ResponseMeta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, target))
	return envelope.Meta
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.ErrorDetail {
	t.Helper()
	var envelope model.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error
}

func TestHealth(t *testing.T) {
	srv := testServer(t, &fakeStore{})
	rec := doRequest(t, srv, http.MethodGet, "/health", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var health model.HealthResponse
	meta := decodeData(t, rec, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "connected", health.Store)
	assert.NotEmpty(t, meta.RequestID)
}

func TestHealthDemoMode(t *testing.T) {
	srv := testServer(t, nil)
	rec := doRequest(t, srv, http.MethodGet, "/health", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var health model.HealthResponse
	decodeData(t, rec, &health)
	assert.Equal(t, "disabled", health.Store)
}

func TestDashboardLive(t *testing.T) {
	store := &fakeStore{records: storedRecords(time.Now())}
	srv := testServer(t, store)
	rec := doRequest(t, srv, http.MethodGet, "/v1/dashboard?hours=24", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dashboard.Response
	decodeData(t, rec, &resp)
	assert.Equal(t, dashboard.OriginLive, resp.Source)
	assert.Equal(t, 24, resp.WindowHours)
	assert.Equal(t, 2, resp.Summary.TotalExecutions)
	assert.InDelta(t, 50.0, resp.Summary.SuccessRate, 0.01)
	assert.Len(t, resp.Timeline, 20)
	assert.NotEmpty(t, resp.StageMetrics)
}

func TestDashboardFallsBackOnStoreError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection refused")}
	srv := testServer(t, store)
	rec := doRequest(t, srv, http.MethodGet, "/v1/dashboard", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dashboard.Response
	decodeData(t, rec, &resp)
	assert.Equal(t, dashboard.OriginSynthetic, resp.Source)
	assert.GreaterOrEqual(t, resp.Summary.TotalExecutions, 50)
	assert.LessOrEqual(t, resp.Summary.TotalExecutions, 150)
}

func TestDashboardInvalidHours(t *testing.T) {
	srv := testServer(t, &fakeStore{})
	for _, target := range []string{
		"/v1/dashboard?hours=zero",
		"/v1/dashboard?hours=0",
		"/v1/dashboard?hours=-3",
		"/v1/dashboard?hours=9000",
	} {
		rec := doRequest(t, srv, http.MethodGet, target, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, model.ErrCodeInvalidInput, decodeError(t, rec).Code, target)
	}
}

func TestListRecords(t *testing.T) {
	store := &fakeStore{records: storedRecords(time.Now())}
	srv := testServer(t, store)
	rec := doRequest(t, srv, http.MethodGet, "/v1/records?hours=6", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listRecordsResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, dashboard.OriginLive, resp.Source)
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Records, 2)
}

func TestIngestWithoutKeyConfigured(t *testing.T) {
	srv := testServer(t, &fakeStore{})
	rec := doRequest(t, srv, http.MethodPost, "/v1/records",
		strings.NewReader(`{"records":[{"pipeline_id":"p"}]}`), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngest(t *testing.T) {
	hash, err := auth.HashKey("secret-key")
	require.NoError(t, err)

	store := &fakeStore{}
	srv := testServer(t, store, func(cfg *Config) { cfg.IngestKeyHash = hash })

	authorized := http.Header{"Authorization": {"Bearer secret-key"}}

	t.Run("missing key", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/records",
			strings.NewReader(`{"records":[{"pipeline_id":"p"}]}`), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, model.ErrCodeUnauthorized, decodeError(t, rec).Code)
	})

	t.Run("wrong key", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/records",
			strings.NewReader(`{"records":[{"pipeline_id":"p"}]}`),
			http.Header{"Authorization": {"Bearer nope"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("loosely typed payload accepted", func(t *testing.T) {
		body := `{"records":[
			{"pipeline_id":"p1","execution_time_ms":2500,"word_count":"12","status":"SUCCESS"},
			{"pipeline_id":"p2","execution_time_ms":"invalid","word_count":null,"status":"FAILED"}
		]}`
		rec := doRequest(t, srv, http.MethodPost, "/v1/records", strings.NewReader(body), authorized)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp model.IngestRecordsResponse
		decodeData(t, rec, &resp)
		assert.Equal(t, int64(2), resp.Inserted)
		require.Len(t, store.inserted, 2)

		ms, ok := store.inserted[0].ExecutionTimeMS.Value()
		assert.True(t, ok)
		assert.Equal(t, 2500.0, ms)
		_, ok = store.inserted[1].ExecutionTimeMS.Value()
		assert.False(t, ok)
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/records",
			strings.NewReader(`{"records":[]}`), authorized)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized field rejected", func(t *testing.T) {
		body := fmt.Sprintf(`{"records":[{"pipeline_id":%q}]}`, strings.Repeat("x", model.MaxPipelineIDLen+1))
		rec := doRequest(t, srv, http.MethodPost, "/v1/records", strings.NewReader(body), authorized)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/v1/records",
			bytes.NewReader([]byte(`{"records": nope`)), authorized)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestIngestStoreDisabled(t *testing.T) {
	hash, err := auth.HashKey("secret-key")
	require.NoError(t, err)
	srv := testServer(t, nil, func(cfg *Config) { cfg.IngestKeyHash = hash })

	rec := doRequest(t, srv, http.MethodPost, "/v1/records",
		strings.NewReader(`{"records":[{"pipeline_id":"p"}]}`),
		http.Header{"Authorization": {"Bearer secret-key"}})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, model.ErrCodeUnavailable, decodeError(t, rec).Code)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(1, 2)
	defer limiter.Close()

	srv := testServer(t, &fakeStore{}, func(cfg *Config) { cfg.Limiter = limiter })

	var limited bool
	for i := 0; i < 5; i++ {
		rec := doRequest(t, srv, http.MethodGet, "/v1/records", nil, nil)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			assert.Equal(t, model.ErrCodeRateLimited, decodeError(t, rec).Code)
		}
	}
	assert.True(t, limited, "expected at least one request to be limited")
}

func TestHealthNotRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(1, 1)
	defer limiter.Close()

	srv := testServer(t, &fakeStore{}, func(cfg *Config) { cfg.Limiter = limiter })

	for i := 0; i < 10; i++ {
		rec := doRequest(t, srv, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	srv := testServer(t, &fakeStore{})
	rec := doRequest(t, srv, http.MethodGet, "/health", nil,
		http.Header{"X-Request-Id": {"req-abc"}})

	assert.Equal(t, "req-abc", rec.Header().Get("X-Request-ID"))
	var health model.HealthResponse
	meta := decodeData(t, rec, &health)
	assert.Equal(t, "req-abc", meta.RequestID)
}

func TestUnknownRouteReturns404(t *testing.T) {
	srv := testServer(t, &fakeStore{})
	rec := doRequest(t, srv, http.MethodGet, "/v1/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
