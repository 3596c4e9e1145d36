package queue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/gentleomega/go-aibob/pkg/audit"
	"github.com/gentleomega/go-aibob/pkg/common/logger"
	"github.com/gentleomega/go-aibob/pkg/common/models"
	"github.com/gentleomega/go-aibob/pkg/provider"
)

// Handler exposes the approval queue over HTTP. Suggestion creation runs a
// provider discovery call first, then persists the result as pending.
type Handler struct {
	service  *Service
	provider provider.Provider
	auditLog *audit.Repository
}

func NewHandler(service *Service, p provider.Provider, auditLog *audit.Repository) *Handler {
	return &Handler{service: service, provider: p, auditLog: auditLog}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/suggestions", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/suggestions", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/suggestions/bulk/approve", h.handleBulkApprove).Methods(http.MethodPost)
	r.HandleFunc("/suggestions/bulk/reject", h.handleBulkReject).Methods(http.MethodPost)
	r.HandleFunc("/suggestions/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/suggestions/{id}", h.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/suggestions/{id}/approve", h.handleApprove).Methods(http.MethodPost)
	r.HandleFunc("/suggestions/{id}/reject", h.handleReject).Methods(http.MethodPost)
	r.HandleFunc("/suggestions/{id}/audit", h.handleAuditTrail).Methods(http.MethodGet)
	r.HandleFunc("/queue/stats", h.handleStats).Methods(http.MethodGet)
}

type createRequest struct {
	Industry       string `json:"industry"`
	TargetAudience string `json:"target_audience"`
	Language       string `json:"language"`
	Location       string `json:"location,omitempty"`
	CreatedBy      string `json:"created_by,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Industry == "" || req.TargetAudience == "" || req.Language == "" {
		http.Error(w, "industry, target_audience and language are required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	result, err := h.provider.DiscoverNiches(r.Context(), provider.NicheInput{
		Industry:       req.Industry,
		TargetAudience: req.TargetAudience,
		Language:       req.Language,
		Location:       req.Location,
	})
	if err != nil {
		logger.Log.WithError(err).Error("niche discovery failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	suggestion, err := h.service.Create(r.Context(),
		models.SuggestionInput{
			Industry:       req.Industry,
			TargetAudience: req.TargetAudience,
			Language:       req.Language,
			Location:       req.Location,
		},
		models.SuggestionOutput{
			SuggestedNiches: result.SuggestedNiches,
			Keywords:        result.Keywords,
			TargetDomains:   result.TargetDomains,
			Confidence:      result.Confidence,
			Reasoning:       result.Reasoning,
		},
		h.provider.Name(), time.Since(start).Milliseconds(), req.CreatedBy)
	if err != nil {
		h.writeError(w, err, "failed to create suggestion")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"suggestion": suggestion})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.StatusPending
	}
	suggestions, err := h.service.ListByStatus(r.Context(), status, parseLimit(r, 50))
	if err != nil {
		h.writeError(w, err, "failed to list suggestions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": suggestions})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	suggestion, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err, "failed to get suggestion")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"suggestion": suggestion})
}

type reviewRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Notes      string `json:"notes,omitempty"`
	Force      bool   `json:"force,omitempty"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, h.service.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, h.service.Reject)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id, reviewerID, notes string, force bool) error) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.ReviewerID == "" {
		http.Error(w, "reviewer_id is required", http.StatusBadRequest)
		return
	}
	if err := apply(r.Context(), mux.Vars(r)["id"], req.ReviewerID, req.Notes, req.Force); err != nil {
		h.writeError(w, err, "failed to review suggestion")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkRequest struct {
	IDs        []string `json:"ids"`
	ReviewerID string   `json:"reviewer_id"`
}

func (h *Handler) handleBulkApprove(w http.ResponseWriter, r *http.Request) {
	h.handleBulk(w, r, h.service.BulkApprove)
}

func (h *Handler) handleBulkReject(w http.ResponseWriter, r *http.Request) {
	h.handleBulk(w, r, h.service.BulkReject)
}

func (h *Handler) handleBulk(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, ids []string, reviewerID string) *models.BulkResult) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 || req.ReviewerID == "" {
		http.Error(w, "ids and reviewer_id are required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, apply(r.Context(), req.IDs, req.ReviewerID))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor := r.URL.Query().Get("actor")
	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"], actor); err != nil {
		h.writeError(w, err, "failed to delete suggestion")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	if h.auditLog == nil {
		http.Error(w, "audit log disabled", http.StatusServiceUnavailable)
		return
	}
	entries, err := h.auditLog.ListBySuggestion(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		logger.Log.WithError(err).Error("failed to list audit entries")
		http.Error(w, "failed to list audit entries", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": entries})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrSuggestionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrIllegalTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrConfidenceRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Log.WithError(err).Error(fallback)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
