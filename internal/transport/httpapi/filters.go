package httpapi

import (
	"encoding/json"
	"net/http"
)

type filtersResponse struct {
	ConversationIDs []string `json:"conversation_ids"`
	WorkforceNames  []string `json:"workforce_names"`
}

type filterStatsResponse struct {
	ConversationIDsCount int `json:"conversation_ids_count"`
	WorkforceNamesCount  int `json:"workforce_names_count"`
}

func (h *handlers) handleFilters(w http.ResponseWriter, r *http.Request) {
	resp := filtersResponse{
		ConversationIDs: []string{},
		WorkforceNames:  []string{},
	}
	if h.registry != nil {
		resp.ConversationIDs = h.registry.ConversationIDs()
		resp.WorkforceNames = h.registry.WorkforceNames()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) handleFilterStats(w http.ResponseWriter, r *http.Request) {
	var resp filterStatsResponse
	if h.registry != nil {
		resp.ConversationIDsCount, resp.WorkforceNamesCount = h.registry.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
