package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/accordlabs/dispute-mediation-api/api"
	"github.com/accordlabs/dispute-mediation-api/config"
)

// MetricsSummaryHandler returns overall request metrics and the per-route
// aggregates collected since startup
func MetricsSummaryHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"summary": api.GetMetrics().GetSummary(),
		"routes":  api.GetMetrics().GetRouteMetrics(),
	}

	b, err := json.Marshal(response)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
