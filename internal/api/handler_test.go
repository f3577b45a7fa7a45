package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyisaiah47/deep-cut-sub000/internal/api"
	"github.com/kyisaiah47/deep-cut-sub000/internal/cards"
	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
	"github.com/kyisaiah47/deep-cut-sub000/internal/runtime"
	"github.com/kyisaiah47/deep-cut-sub000/internal/runtime/runtimetest"
)

func newTestRouter(t *testing.T) (*gin.Engine, *runtime.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gen, err := cards.NewFallbackGenerator()
	require.NoError(t, err)

	clock := gameclock.NewFake()
	registry := runtime.NewRegistry(runtimetest.NewMemStore(), gen, clock,
		runtime.Config{TickInterval: 100 * time.Millisecond, ResultsDelay: 5 * time.Second})
	t.Cleanup(registry.Shutdown)

	h := api.NewHandler(registry, nil, clock)
	return api.NewRouter(h), registry
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateAndJoinSession(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/sessions", map[string]any{
		"settings": map[string]any{"target_score": 3, "min_participants": 3},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	roomCode, _ := created["room_code"].(string)
	require.Len(t, roomCode, 6)

	w = doJSON(t, r, http.MethodPost, "/api/sessions/join", map[string]any{
		"room_code": roomCode,
		"name":      "ana",
	})
	require.Equal(t, http.StatusOK, w.Code)
	joined := decode(t, w)
	assert.Equal(t, created["session_id"], joined["session_id"])
	assert.NotEmpty(t, joined["participant_id"])
}

func TestJoinUnknownRoomCode(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/sessions/join", map[string]any{
		"room_code": "ZZZZZZ",
		"name":      "ana",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartByNonHostIsForbidden(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	sessionID := created["session_id"].(string)
	roomCode := created["room_code"].(string)

	var pids []string
	for _, name := range []string{"ana", "bo", "cy"} {
		w = doJSON(t, r, http.MethodPost, "/api/sessions/join", map[string]any{
			"room_code": roomCode, "name": name,
		})
		require.Equal(t, http.StatusOK, w.Code)
		pids = append(pids, decode(t, w)["participant_id"].(string))
	}

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sessions/%s/start", sessionID),
		map[string]any{"participant_id": pids[1]})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sessions/%s/start", sessionID),
		map[string]any{"participant_id": pids[0]})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestStateIncludesTimerAnchors(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/sessions", nil)
	created := decode(t, w)
	sessionID := created["session_id"].(string)
	roomCode := created["room_code"].(string)

	var pids []string
	for _, name := range []string{"ana", "bo", "cy"} {
		w = doJSON(t, r, http.MethodPost, "/api/sessions/join", map[string]any{
			"room_code": roomCode, "name": name,
		})
		pids = append(pids, decode(t, w)["participant_id"].(string))
	}
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sessions/%s/start", sessionID),
		map[string]any{"participant_id": pids[0]})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet,
		fmt.Sprintf("/api/sessions/%s/state?participant_id=%s", sessionID, pids[0]), nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decode(t, w)
	assert.Equal(t, "SUBMISSION", state["phase"])
	require.NotNil(t, state["timer"], "timed phase must carry timer anchors")
	timer := state["timer"].(map[string]any)
	assert.NotEmpty(t, timer["server_now"])
	assert.NotEmpty(t, timer["started_at"])
	assert.NotEmpty(t, state["hand"])
}

func TestResyncReportsStalePhase(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/sessions", nil)
	created := decode(t, w)
	sessionID := created["session_id"].(string)
	roomCode := created["room_code"].(string)

	var pids []string
	for _, name := range []string{"ana", "bo", "cy"} {
		w = doJSON(t, r, http.MethodPost, "/api/sessions/join", map[string]any{
			"room_code": roomCode, "name": name,
		})
		pids = append(pids, decode(t, w)["participant_id"].(string))
	}
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sessions/%s/start", sessionID),
		map[string]any{"participant_id": pids[0]})
	require.Equal(t, http.StatusNoContent, w.Code)

	// client still believes it is in the lobby
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sessions/%s/resync", sessionID),
		map[string]any{"participant_id": pids[1], "expected_phase": "LOBBY"})
	require.Equal(t, http.StatusOK, w.Code)
	recovered := decode(t, w)
	assert.Equal(t, false, recovered["synchronized"])
	session := recovered["session"].(map[string]any)
	assert.Equal(t, "SUBMISSION", session["phase"])
	participant := recovered["participant"].(map[string]any)
	assert.Equal(t, true, participant["connected"])

	// matching phase reports synchronized
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sessions/%s/resync", sessionID),
		map[string]any{"participant_id": pids[1], "expected_phase": "SUBMISSION"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["synchronized"])
}

func TestStateForUnknownSession(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet,
		fmt.Sprintf("/api/sessions/%s/state", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerTime(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/time", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["server_now"])
}
