package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArena struct {
	last uint64
	err  error
}

func (f fakeArena) LastGame(ctx context.Context) (uint64, error) {
	return f.last, f.err
}

func get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	mux := http.NewServeMux()
	Routes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestGameTokenEndpoint(t *testing.T) {
	rec, body := get(t, "/api/token/18")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0x0400000000000000000000000000000012", body["tokenId"])
	assert.Equal(t, float64(18), body["instance"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, body = get(t, "/api/token/-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestDecodeTokenEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"hex", "0x0400000000000000000000000000000012", http.StatusOK},
		{"wrong tag", "0x0300000000000000000000000000000012", http.StatusBadRequest},
		{"overflow", "0x0400000000000000010000000000000000", http.StatusBadRequest},
		{"garbage", "zzz", http.StatusBadRequest},
		{"missing", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, "/api/token/decode?id="+tt.id)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, float64(18), body["instance"])
			}
		})
	}
}

func TestNamesEndpoints(t *testing.T) {
	rec, body := get(t, "/api/names")
	assert.Equal(t, http.StatusOK, rec.Code)
	list := body["names"].([]interface{})
	assert.Len(t, list, 18)
	assert.Equal(t, "Invalid", list[0])
	assert.Equal(t, "GameCreated", list[1])

	rec, body = get(t, "/api/names/GameCreated")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["code"])

	rec, _ = get(t, "/api/names/NotARealEvent")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = get(t, "/api/codes/1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GameCreated", body["name"])

	rec, _ = get(t, "/api/codes/99")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = get(t, "/api/codes/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranscriptWithoutStorage(t *testing.T) {
	rec, _ := get(t, "/api/transcript/18")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = get(t, "/api/transcript/x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLastGameEndpoint(t *testing.T) {
	SetArenaReader(nil)
	rec, _ := get(t, "/api/arena/last")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	SetArenaReader(fakeArena{last: 18})
	defer SetArenaReader(nil)
	rec, body := get(t, "/api/arena/last")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0x0400000000000000000000000000000012", body["tokenId"])

	SetArenaReader(fakeArena{err: errors.New("node down")})
	rec, _ = get(t, "/api/arena/last")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	rec, body := get(t, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body, "redis")
	assert.Contains(t, body, "postgres")
}
