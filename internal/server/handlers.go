package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mizuho-ai/kanshi/internal/analytics"
	"github.com/mizuho-ai/kanshi/internal/model"
	"github.com/mizuho-ai/kanshi/internal/service/dashboard"
)

type handlers struct {
	svc                *dashboard.Service
	logger             *slog.Logger
	startedAt          time.Time
	version            string
	defaultWindowHours int
	maxWindowHours     int
}

func newHandlers(cfg Config) *handlers {
	return &handlers{
		svc:                cfg.Service,
		logger:             cfg.Logger,
		startedAt:          time.Now(),
		version:            cfg.Version,
		defaultWindowHours: cfg.DefaultWindowHours,
		maxWindowHours:     cfg.MaxWindowHours,
	}
}

func (h *handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, model.HealthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Store:         h.svc.StoreHealth(r.Context()),
	})
}

// windowHours parses the ?hours query parameter, applying the configured
// default and upper bound.
func (h *handlers) windowHours(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return h.defaultWindowHours, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("hours must be an integer, got %q", raw)
	}
	if hours < 1 {
		return 0, fmt.Errorf("hours must be at least 1, got %d", hours)
	}
	if hours > h.maxWindowHours {
		return 0, fmt.Errorf("hours must be at most %d, got %d", h.maxWindowHours, hours)
	}
	return hours, nil
}

func (h *handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	hours, err := h.windowHours(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	resp, err := h.svc.Dashboard(r.Context(), hours)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidWindow) {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
			return
		}
		h.logger.Error("dashboard request failed", "error", err,
			"request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to build dashboard")
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

type listRecordsResponse struct {
	Source  dashboard.Origin        `json:"source"`
	Count   int                     `json:"count"`
	Records []model.ExecutionRecord `json:"records"`
}

func (h *handlers) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	hours, err := h.windowHours(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	result, err := h.svc.Records(r.Context(), hours)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidWindow) {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
			return
		}
		h.logger.Error("records request failed", "error", err,
			"request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to list records")
		return
	}

	writeJSON(w, r, http.StatusOK, listRecordsResponse{
		Source:  result.Origin,
		Count:   len(result.Records),
		Records: result.Records,
	})
}

func (h *handlers) HandleIngestRecords(w http.ResponseWriter, r *http.Request) {
	var req model.IngestRecordsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid JSON body")
		return
	}
	if len(req.Records) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "records must not be empty")
		return
	}
	if len(req.Records) > model.MaxIngestBatch {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
			fmt.Sprintf("batch exceeds maximum of %d records", model.MaxIngestBatch))
		return
	}
	for i, rec := range req.Records {
		if err := model.ValidateRecord(rec); err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
				fmt.Sprintf("record %d: %v", i, err))
			return
		}
	}

	inserted, err := h.svc.Ingest(r.Context(), req.Records)
	if err != nil {
		if errors.Is(err, dashboard.ErrStoreDisabled) {
			writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeUnavailable, "no backing store configured")
			return
		}
		h.logger.Error("ingest failed", "error", err,
			"request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to store records")
		return
	}
	writeJSON(w, r, http.StatusCreated, model.IngestRecordsResponse{Inserted: inserted})
}
