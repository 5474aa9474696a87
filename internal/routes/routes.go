package routes

import (
	"net/http"
	"time"

	"github.com/samriddhi-1111/GangaGuards/internal/config"
	"github.com/samriddhi-1111/GangaGuards/internal/handlers"
	"github.com/samriddhi-1111/GangaGuards/internal/logger"
	"github.com/samriddhi-1111/GangaGuards/internal/metrics"
	"github.com/samriddhi-1111/GangaGuards/internal/middleware"
	"github.com/samriddhi-1111/GangaGuards/internal/services/websocket"
)

var logFiles = map[string]string{
	"info":    "info.log",
	"warning": "warning.log",
	"error":   "error.log",
}

// SetupRoutes registers the status endpoints and wraps the mux with the
// token middleware.
func SetupRoutes(session handlers.StatusProvider, hub *websocket.HubService, m *metrics.Metrics, cfg *config.Config, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()
	started := time.Now()

	mux.HandleFunc("/health", handlers.HealthHandler(started))
	mux.HandleFunc("/api/status", handlers.StatusHandler(session))
	mux.HandleFunc("/api/events", handlers.EventsWebsocketHandler(hub, log))
	mux.Handle("/metrics", m.Handler())

	// Log endpoints
	for level, file := range logFiles {
		mux.HandleFunc("/logs/"+level, handlers.ShowLogsHandler(cfg.LogDirectory, file))
		mux.HandleFunc("/logs/"+level+"/clear", handlers.ClearLogsHandler(log, file))
	}

	return middleware.AuthMiddleware(cfg.StatusToken, mux)
}
