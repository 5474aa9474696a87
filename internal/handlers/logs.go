package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/samriddhi-1111/GangaGuards/internal/logger"
)

// ShowLogsHandler serves one level file from logDir as text/plain.
func ShowLogsHandler(logDir, filename string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		serveLogFile(w, r, logDir, filename)
	}
}

// serveLogFile sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates one level file.
func ClearLogsHandler(log *logger.Logger, filename string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := log.CleanLogs(filename); err != nil {
			log.Error("Failed to clear %s: %v", filename, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"cleared": filename})
	}
}
