package discovery

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/gentleomega/go-aibob/pkg/common/logger"
)

// Handler exposes opportunity discovery and CSV export.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/discovery/opportunities", h.handleOpportunities).Methods(http.MethodGet)
	r.HandleFunc("/discovery/export", h.handleExport).Methods(http.MethodGet)
}

func (h *Handler) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	niche, keywords, ok := parseNiche(w, r)
	if !ok {
		return
	}
	result, err := h.service.DiscoverOpportunities(r.Context(), niche, keywords)
	if err != nil {
		logger.Log.WithError(err).Error("discovery failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	niche, keywords, ok := parseNiche(w, r)
	if !ok {
		return
	}
	urls, err := h.service.DiscoverURLs(r.Context(), niche, keywords)
	if err != nil {
		logger.Log.WithError(err).Error("discovery failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	csvText, err := h.service.GenerateCSV(urls, niche)
	if err != nil {
		logger.Log.WithError(err).Error("csv generation failed")
		http.Error(w, "failed to generate csv", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="opportunities-`+Slugify(niche)+`.csv"`)
	if _, err := w.Write([]byte(csvText)); err != nil {
		logger.Log.WithError(err).Error("failed to write csv")
	}
}

func parseNiche(w http.ResponseWriter, r *http.Request) (string, []string, bool) {
	niche := r.URL.Query().Get("niche")
	if niche == "" {
		http.Error(w, "niche is required", http.StatusBadRequest)
		return "", nil, false
	}
	var keywords []string
	if raw := r.URL.Query().Get("keywords"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(k); trimmed != "" {
				keywords = append(keywords, trimmed)
			}
		}
	}
	return niche, keywords, true
}
