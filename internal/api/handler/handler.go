package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/api/validator"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/filter"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/query/cache"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/repository"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/tracing"
)

type StringService interface {
	Create(ctx context.Context, value string) (repository.Record, error)
	Get(ctx context.Context, value string) (repository.Record, error)
	List(ctx context.Context, f filter.Filter) (service.ListResult, error)
	FilterByNaturalLanguage(ctx context.Context, raw string) (service.NaturalLanguageResult, error)
	Delete(ctx context.Context, value string) error
	Stats() service.Stats
}

type TranslationCache interface {
	Stats() (hits, misses int64)
	Invalidate(ctx context.Context) (int64, error)
	BreakerState() resilience.State
}

// Deps are the optional collaborators of a Handler. Nil fields disable the
// matching feature.
type Deps struct {
	Cache        TranslationCache
	Tracker      analytics.Tracker
	Metrics      *metrics.Metrics
	MaxBodyBytes int64
}

type Handler struct {
	svc     StringService
	cache   TranslationCache
	tracker analytics.Tracker
	metrics *metrics.Metrics
	maxBody int64
	now     func() time.Time
	logger  *slog.Logger
}

func New(svc StringService, deps Deps) *Handler {
	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Handler{
		svc:     svc,
		cache:   deps.Cache,
		tracker: deps.Tracker,
		metrics: deps.Metrics,
		maxBody: maxBody,
		now:     time.Now,
		logger:  slog.Default().With("component", "string-handler"),
	}
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "String Analysis Service"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *Handler) CreateString(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		h.writeError(ctx, w, apperrors.New(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge, "Request body too large"))
		return
	}
	value, err := validator.DecodeCreateRequest(body)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	rec, err := h.svc.Create(ctx, value)
	h.track(ctx, analytics.EventStringCreated, outcomeFor(err), start)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.StringsCreatedTotal.Inc()
		h.metrics.StringsStored.Set(float64(h.svc.Stats().StoredStrings))
	}
	log.Info("string created", "id", rec.ID, "length", rec.Properties.Length)
	h.writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) GetString(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), r.PathValue("value"))
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) ListStrings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	f, err := validator.ParseFilterParams(r.URL.Query())
	if err != nil {
		h.track(ctx, analytics.EventListQuery, analytics.OutcomeInvalid, start)
		h.writeError(ctx, w, err)
		return
	}
	res, err := h.svc.List(ctx, f)
	h.track(ctx, analytics.EventListQuery, outcomeFor(err), start, func(e *analytics.Event) {
		e.Filters = f.String()
		e.ResultCount = res.Count
	})
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.FilterResultsCount.WithLabelValues("list").Observe(float64(res.Count))
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) FilterByNaturalLanguage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query, err := validator.NaturalLanguageQuery(r.URL.Query())
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	ctx, span := tracing.StartSpan(ctx, "filter_by_natural_language", middleware.GetRequestID(ctx))
	ctx, cacheHit := cache.WithHitTracking(ctx)
	res, err := h.svc.FilterByNaturalLanguage(ctx, query)
	span.SetAttr("cache_hit", *cacheHit)
	span.End()
	span.Log(log)

	outcome := outcomeFor(err)
	h.track(ctx, analytics.EventNLQuery, outcome, start, func(e *analytics.Event) {
		e.Query = query
		e.CacheHit = *cacheHit
		e.ResultCount = res.Count
		e.Filters = res.InterpretedQuery.ParsedFilters.String()
	})
	if h.metrics != nil {
		h.metrics.NLQueriesTotal.WithLabelValues(string(outcome)).Inc()
	}
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.FilterResultsCount.WithLabelValues("natural_language").Observe(float64(res.Count))
	}

	log.Info("natural language query",
		"query", query,
		"filters", res.InterpretedQuery.ParsedFilters.String(),
		"count", res.Count,
		"cache_hit", *cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) DeleteString(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	value := r.PathValue("value")
	err := h.svc.Delete(ctx, value)
	h.track(ctx, analytics.EventStringDeleted, outcomeFor(err), start)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.StringsDeletedTotal.Inc()
		h.metrics.StringsStored.Set(float64(h.svc.Stats().StoredStrings))
	}
	logger.FromContext(ctx).Info("string deleted", "length", len(value))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":            hits,
		"misses":          misses,
		"total":           total,
		"hit_rate":        fmt.Sprintf("%.1f%%", hitRate),
		"circuit_breaker": h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Caching is disabled"})
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Cache invalidation failed"})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// NotFound answers every request no route matched.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusNotFound, map[string]string{
		"error":   "Not found",
		"message": fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path),
	})
}

func (h *Handler) track(ctx context.Context, typ analytics.EventType, outcome analytics.Outcome, start time.Time, fill ...func(e *analytics.Event)) {
	if h.tracker == nil {
		return
	}
	event := analytics.Event{
		Type:      typ,
		Outcome:   outcome,
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: h.now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	}
	for _, f := range fill {
		f(&event)
	}
	h.tracker.Track(event)
}

func outcomeFor(err error) analytics.Outcome {
	switch {
	case err == nil:
		return analytics.OutcomeOK
	case errors.Is(err, apperrors.ErrStringNotFound):
		return analytics.OutcomeNotFound
	case errors.Is(err, apperrors.ErrStringExists):
		return analytics.OutcomeExists
	case errors.Is(err, apperrors.ErrConflictingFilters):
		return analytics.OutcomeConflict
	case errors.Is(err, apperrors.ErrUninterpretableQuery):
		return analytics.OutcomeUninterpretable
	case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrInvalidType):
		return analytics.OutcomeInvalid
	default:
		return analytics.OutcomeError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
	}
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err, "status_code", status)
	} else {
		log.Debug("request rejected", "error", err, "status_code", status)
	}

	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		h.writeJSON(w, status, map[string]any{
			"error":   ve.Title,
			"message": ve.Message(),
			"fields":  ve.Fields,
		})
		return
	}
	h.writeJSON(w, status, map[string]string{"error": apperrors.PublicMessage(err)})
}
