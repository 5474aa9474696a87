package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/samriddhi-1111/GangaGuards/internal/services"
)

// StatusProvider exposes the session snapshot.
type StatusProvider interface {
	Status() services.Status
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HealthHandler reports liveness and uptime.
func HealthHandler(started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":        "ok",
			"uptimeSeconds": int64(time.Since(started).Seconds()),
		})
	}
}

// StatusHandler returns the current session snapshot.
func StatusHandler(provider StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, provider.Status())
	}
}
