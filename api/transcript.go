package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/polysensus/chaintrap-arenastate/config"
	"github.com/polysensus/chaintrap-arenastate/db"
	"github.com/polysensus/chaintrap-arenastate/tokenid"
	"github.com/polysensus/chaintrap-arenastate/transcript"
)

// TranscriptResponse is a game's indexed transcript
type TranscriptResponse struct {
	Success bool                `json:"success"`
	GameID  uint64              `json:"gid"`
	TokenID tokenid.TokenID     `json:"tokenId"`
	Entries []*transcript.Entry `json:"entries"`
	Counts  map[string]int64    `json:"counts,omitempty"`
}

// HandleGetTranscript handles GET /api/transcript/{gid}
// Query params: limit (optional, capped)
func HandleGetTranscript(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	gid, err := strconv.ParseUint(r.PathValue("gid"), 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Game id must be a non-negative integer")
		return
	}

	limit := config.MaxTranscriptPage
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			sendError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	entries, err := db.GetTranscript(ctx, gid, limit)
	if errors.Is(err, db.ErrPostgresDisabled) {
		sendError(w, http.StatusServiceUnavailable, "Transcript storage is not available")
		return
	}
	if err != nil {
		log.Printf("❌ Failed to get transcript for game %d: %v", gid, err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve transcript")
		return
	}

	// counts are a convenience, the transcript is still served without them
	counts, err := db.GetEventCounts(ctx, gid)
	if err != nil && !errors.Is(err, db.ErrRedisDisabled) {
		log.Printf("⚠️  Failed to get event counts for game %d: %v", gid, err)
	}

	sendJSON(w, TranscriptResponse{
		Success: true,
		GameID:  gid,
		TokenID: tokenid.GameToken(gid),
		Entries: entries,
		Counts:  counts,
	})

	log.Printf("📋 Retrieved transcript for game %d with %d entries", gid, len(entries))
}

// HandleLastGame handles GET /api/arena/last
func HandleLastGame(w http.ResponseWriter, r *http.Request) {
	reader := getArenaReader()
	if reader == nil {
		sendError(w, http.StatusServiceUnavailable, "Contract client not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	instance, err := reader.LastGame(ctx)
	if err != nil {
		log.Printf("❌ Failed to read lastGame: %v", err)
		sendError(w, http.StatusBadGateway, "Failed to read game counter")
		return
	}

	token := tokenid.GameToken(instance)
	sendJSON(w, TokenResponse{
		Success:  true,
		Instance: instance,
		TokenID:  token,
		Decimal:  token.String(),
	})
}
