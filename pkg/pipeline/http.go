package pipeline

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gentleomega/go-aibob/pkg/common/logger"
	"github.com/gentleomega/go-aibob/pkg/common/models"
	"github.com/gentleomega/go-aibob/pkg/queue"
)

// Handler exposes pipeline trigger, cancel, and status polling.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/suggestions/{id}/process", h.handleProcess).Methods(http.MethodPost)
	r.HandleFunc("/suggestions/{id}/cancel", h.handleCancel).Methods(http.MethodPost)
	r.HandleFunc("/suggestions/{id}/status", h.handleStatus).Methods(http.MethodGet)
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	suggestion, err := h.service.queue.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, queue.ErrSuggestionNotFound) {
			http.Error(w, "suggestion not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to load suggestion")
		http.Error(w, "failed to load suggestion", http.StatusInternalServerError)
		return
	}
	if suggestion.Status != models.StatusApproved {
		http.Error(w, "only approved suggestions can be processed", http.StatusConflict)
		return
	}

	h.service.ProcessAsync(id)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"suggestion_id": id, "status": "processing"}); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.service.CancelProcessing(r.Context(), id); err != nil {
		if errors.Is(err, queue.ErrSuggestionNotFound) {
			http.Error(w, "suggestion not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to cancel processing")
		http.Error(w, "failed to cancel processing", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetProcessingStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, queue.ErrSuggestionNotFound) {
			http.Error(w, "suggestion not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to load processing status")
		http.Error(w, "failed to load processing status", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
