package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
)

/* =========================
   SHARED RESPONSE TYPES
========================= */

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ArenaReader is the contract call the API exposes.
type ArenaReader interface {
	LastGame(ctx context.Context) (uint64, error)
}

var (
	arenaReader      ArenaReader
	arenaReaderMutex sync.RWMutex
)

// SetArenaReader sets the contract client used by /api/arena/last
func SetArenaReader(reader ArenaReader) {
	arenaReaderMutex.Lock()
	defer arenaReaderMutex.Unlock()
	arenaReader = reader
}

func getArenaReader() ArenaReader {
	arenaReaderMutex.RLock()
	defer arenaReaderMutex.RUnlock()
	return arenaReader
}

// Routes registers every API endpoint on mux.
func Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", corsMiddleware(HandleHealthCheck))

	mux.HandleFunc("GET /api/token/decode", corsMiddleware(HandleDecodeToken))
	mux.HandleFunc("GET /api/token/{instance}", corsMiddleware(HandleGameToken))

	mux.HandleFunc("GET /api/names", corsMiddleware(HandleListNames))
	mux.HandleFunc("GET /api/names/{name}", corsMiddleware(HandleCodeOf))
	mux.HandleFunc("GET /api/codes/{code}", corsMiddleware(HandleNameOf))

	mux.HandleFunc("GET /api/transcript/{gid}", corsMiddleware(HandleGetTranscript))
	mux.HandleFunc("GET /api/arena/last", corsMiddleware(HandleLastGame))
}

// corsMiddleware adds CORS headers to allow frontend requests
func corsMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		handler(w, r)
	}
}

func sendJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Error:   message,
	})
}
