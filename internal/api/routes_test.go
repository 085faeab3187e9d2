package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiltmaze/backend/internal/config"
	"github.com/tiltmaze/backend/internal/game"
	"github.com/tiltmaze/backend/internal/ws"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		Environment:   "development",
		AuthorityMode: "server",
		TiltMode:      "shared",
		WallResponse:  "stop",
		WinPolicy:     "contained",
		TickHz:        60,
		BroadcastHz:   30,
		MazeSeed:      5,
	}
	rec := game.NewRecorder(nil, nil, cfg)
	hub := ws.NewHub(ctx, cfg, rec)

	router := gin.New()
	SetupRoutes(router, nil, nil, cfg, hub, rec)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	code, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/health", "")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "disabled", body["database"])
	assert.Equal(t, "disabled", body["redis"])
}

func TestRoomEndpoints(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/rooms"

	code, body := doJSON(t, http.MethodPost, base, `{"code":"alpha"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "ALPHA", body["code"])
	assert.Equal(t, "/api/v1/rooms/ALPHA/ws", body["ws_url"])

	code, _ = doJSON(t, http.MethodPost, base, `{"code":"ALPHA"}`)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = doJSON(t, http.MethodPost, base, `{"code":"no spaces"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = doJSON(t, http.MethodPost, base, "")
	require.Equal(t, http.StatusCreated, code)
	assert.Len(t, body["code"], 6)

	code, body = doJSON(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["count"])

	code, body = doJSON(t, http.MethodGet, base+"/alpha", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "server", body["mode"])
	grid, ok := body["grid"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(15), grid["cols"])

	code, _ = doJSON(t, http.MethodGet, base+"/NOPE", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = doJSON(t, http.MethodPost, base+"/ALPHA/reset", "")
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, false, body["relayed"])

	code, _ = doJSON(t, http.MethodPost, base+"/NOPE/reset", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHistoryWithoutDatabase(t *testing.T) {
	srv := newTestServer(t)

	code, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/leaderboard?limit=5", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{}, body["leaderboard"])

	code, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/results", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{}, body["results"])
}

func wsURL(srv *httptest.Server, code string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/rooms/" + code + "/ws"
}

func readUntil(t *testing.T, conn *websocket.Conn, msgType string) ws.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var m ws.WSMessage
		require.NoError(t, conn.ReadJSON(&m))
		if m.Type == msgType {
			return m
		}
	}
}

func TestWebSocketJoinFlow(t *testing.T) {
	srv := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "play"), nil)
	require.NoError(t, err)
	defer conn.Close()

	welcome := readUntil(t, conn, ws.TypeWelcome)
	var w ws.WelcomeData
	require.NoError(t, json.Unmarshal(welcome.Data, &w))
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, w.ID, w.Host)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "join",
		"data": map[string]interface{}{"name": "Ann", "color": "green"},
	}))
	joined := readUntil(t, conn, ws.TypeJoined)
	var j ws.JoinedData
	require.NoError(t, json.Unmarshal(joined.Data, &j))
	assert.Equal(t, w.ID, j.Ball.ID)
	assert.Equal(t, "green", j.Ball.Color)
	assert.Equal(t, 300.0, j.Ball.X)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"tilt","data":{"beta":1}}`)))
	bad := readUntil(t, conn, ws.TypeError)
	var e ws.ErrorData
	require.NoError(t, json.Unmarshal(bad.Data, &e))
	assert.Equal(t, "malformed message", e.Message)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	srv := newTestServer(t)

	header := http.Header{}
	header.Set("Origin", "https://elsewhere.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "play"), header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
