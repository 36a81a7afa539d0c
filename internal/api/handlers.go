package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sells-group/cafe-sync/internal/store"
)

const maxPageSize = 1000

// Response is the envelope for every API response.
type Response struct {
	Status   string    `json:"status"`
	Data     any       `json:"data,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata carries paging information.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Total     *int      `json:"total,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &Response{Status: "ok"})
}

// ListCafes returns a page of cafés ordered by osm_id.
func (h *Handler) ListCafes(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 100)
	if err != nil || limit <= 0 || limit > maxPageSize {
		respondError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 1000", nil)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		respondError(w, http.StatusBadRequest, "INVALID_OFFSET", "offset must be >= 0", nil)
		return
	}

	cafes, err := h.reader.ListCafes(r.Context(), store.CafeFilter{Limit: limit, Offset: offset})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to list cafes", err)
		return
	}
	total, err := h.reader.CountCafes(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to count cafes", err)
		return
	}

	respondJSON(w, http.StatusOK, &Response{
		Status: "success",
		Data:   cafes,
		Metadata: &Metadata{
			Timestamp: time.Now().UTC(),
			Total:     &total,
			Limit:     limit,
			Offset:    offset,
		},
	})
}

// GetCafe returns one café by osm_id.
func (h *Handler) GetCafe(w http.ResponseWriter, r *http.Request) {
	osmID, err := strconv.ParseInt(chi.URLParam(r, "osmID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "osm_id must be an integer", nil)
		return
	}

	cafe, err := h.reader.GetCafe(r.Context(), osmID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "cafe not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to get cafe", err)
		return
	}

	respondJSON(w, http.StatusOK, &Response{Status: "success", Data: cafe})
}

// ListRuns returns the most recent sync runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 20)
	if err != nil || limit <= 0 || limit > maxPageSize {
		respondError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 1000", nil)
		return
	}

	runs, err := h.reader.ListRuns(r.Context(), store.RunFilter{Pipeline: h.pipeline, Limit: limit})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to list runs", err)
		return
	}

	respondJSON(w, http.StatusOK, &Response{
		Status:   "success",
		Data:     runs,
		Metadata: &Metadata{Timestamp: time.Now().UTC(), Limit: limit},
	})
}

// Status returns the sync health snapshot. Unhealthy pipelines answer 503
// so the endpoint can back an uptime probe.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		respondError(w, http.StatusNotFound, "NOT_CONFIGURED", "status monitoring is not configured", nil)
		return
	}

	st, err := h.status.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to collect status", err)
		return
	}

	code, status := http.StatusOK, "success"
	if !st.Healthy {
		code, status = http.StatusServiceUnavailable, "degraded"
	}
	respondJSON(w, code, &Response{
		Status:   status,
		Data:     st,
		Metadata: &Metadata{Timestamp: time.Now().UTC()},
	})
}

func intParam(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func respondJSON(w http.ResponseWriter, status int, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		zap.L().Error("api: marshal response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		zap.L().Warn("api: write response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		zap.L().Error("api: request failed", zap.String("code", code), zap.Error(err))
	}
	respondJSON(w, status, &Response{
		Status: "error",
		Error:  &APIError{Code: code, Message: message},
	})
}
