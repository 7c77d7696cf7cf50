package handler

import (
	"encoding/json"
	"net/http"

	"github.com/BlackMission/collectivelink/internal/page"
)

// Success handles GET /success.
func Success() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page.Success(w, page.DefaultSuccessTitle)
	}
}

// Error handles GET /error.
func Error() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page.Error(w, "Linking failed. Please start again from Discord.")
	}
}

// NotFound handles every unrouted path.
func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Not Found."))
	}
}

// Health handles GET /health.
func Health(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": version})
	}
}
