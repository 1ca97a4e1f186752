package handlers

import (
	"context"
	"net/http"

	"github.com/markdave123-py/vectordb/internal/models"
)

type HealthChecker interface {
	HealthCheck(ctx context.Context) models.HealthStatus
}

// Health answers 200 when both backends are reachable and 503 otherwise.
func Health(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := checker.HealthCheck(r.Context())
		status := http.StatusOK
		if !st.Overall {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, st)
	}
}
