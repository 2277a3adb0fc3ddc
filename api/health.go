package api

import (
	"net/http"

	"github.com/polysensus/chaintrap-arenastate/db"
)

/* =========================
   HEALTH CHECK ENDPOINT
========================= */

// HandleHealthCheck handles health check requests
// GET /api/health
func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	redisHealth := "ok"
	if err := db.HealthCheck(ctx); err != nil {
		redisHealth = "error: " + err.Error()
	}

	postgresHealth := "ok"
	if err := db.HealthCheckPostgres(ctx); err != nil {
		postgresHealth = "error: " + err.Error()
	}

	arenaHealth := "ok"
	if getArenaReader() == nil {
		arenaHealth = "error: contract client not configured"
	}

	sendJSON(w, map[string]interface{}{
		"success":  true,
		"redis":    redisHealth,
		"postgres": postgresHealth,
		"arena":    arenaHealth,
		"message":  "Health check completed",
	})
}
