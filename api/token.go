package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/polysensus/chaintrap-arenastate/tokenid"
)

// TokenResponse pairs a game instance with its token id
type TokenResponse struct {
	Success  bool            `json:"success"`
	Instance uint64          `json:"instance"`
	TokenID  tokenid.TokenID `json:"tokenId"`
	Decimal  string          `json:"decimal"`
}

// HandleGameToken handles GET /api/token/{instance}
func HandleGameToken(w http.ResponseWriter, r *http.Request) {
	instance, err := strconv.ParseUint(r.PathValue("instance"), 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Instance must be a non-negative integer")
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

// HandleDecodeToken handles GET /api/token/decode?id=
// id may be 0x hex or decimal.
func HandleDecodeToken(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		sendError(w, http.StatusBadRequest, "id is required")
		return
	}

	token, err := tokenid.ParseTokenID(raw)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid token id")
		return
	}

	instance, err := tokenid.GameInstance(token)
	switch {
	case errors.Is(err, tokenid.ErrWrongTypeTag):
		sendError(w, http.StatusBadRequest, "Token id is not a game token")
		return
	case errors.Is(err, tokenid.ErrInstanceOverflow):
		sendError(w, http.StatusBadRequest, "Instance number out of range")
		return
	case err != nil:
		log.Printf("❌ Failed to decode token %s: %v", raw, err)
		sendError(w, http.StatusInternalServerError, "Failed to decode token")
		return
	}

	sendJSON(w, TokenResponse{
		Success:  true,
		Instance: instance,
		TokenID:  token,
		Decimal:  token.String(),
	})
}
