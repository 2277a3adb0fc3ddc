package api

import (
	"net/http"
	"strconv"

	"github.com/polysensus/chaintrap-arenastate/names"
)

// NameCodeResponse is one registry mapping
type NameCodeResponse struct {
	Success bool       `json:"success"`
	Name    string     `json:"name"`
	Code    names.Code `json:"code"`
}

// HandleListNames handles GET /api/names
// The list index is the code.
func HandleListNames(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, map[string]interface{}{
		"success": true,
		"names":   names.Default.Names(),
	})
}

// HandleCodeOf handles GET /api/names/{name}
func HandleCodeOf(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	code, err := names.CodeOf(name)
	if err != nil {
		sendError(w, http.StatusNotFound, "Unknown event name: "+name)
		return
	}
	sendJSON(w, NameCodeResponse{Success: true, Name: name, Code: code})
}

// HandleNameOf handles GET /api/codes/{code}
func HandleNameOf(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("code")
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "Code must be a non-negative integer")
		return
	}

	name, err := names.Default.NameOfInt(n)
	if err != nil {
		sendError(w, http.StatusNotFound, "Unknown event code: "+raw)
		return
	}
	sendJSON(w, NameCodeResponse{Success: true, Name: name, Code: names.Code(n)})
}
