package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4rankng/paper-trading-sub001/internal/app"
	"github.com/4rankng/paper-trading-sub001/internal/common"
	"github.com/4rankng/paper-trading-sub001/internal/models"
	"github.com/4rankng/paper-trading-sub001/internal/services/chat"
	"github.com/4rankng/paper-trading-sub001/internal/storage/vizlog"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := common.NewSilentLogger()
	store, err := vizlog.NewStore(logger, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := common.NewDefaultConfig()
	cfg.Viz.PersistRecords = true

	a := &app.App{
		Config:      cfg,
		Logger:      logger,
		VizLog:      store,
		ChatService: chat.NewService(store, nil, logger, cfg.Viz),
		StartupTime: time.Now(),
	}

	ts := httptest.NewServer(NewServer(a).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime")
}

func TestHandleVersion(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/version")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.NotEmpty(t, body["version"])
}

func TestHandleConfig_NoSecrets(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/config")
	require.NoError(t, err)

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	assert.Contains(t, body, "gemini_model")
	assert.NotContains(t, body, "api_key")
}

func TestHandleVizExtract(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/viz/extract", map[string]interface{}{
		"text": `pre ![viz:pie]({"type":"pie","data":[{"label":"A","value":1},]}) post`,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.ExtractResult
	decodeBody(t, resp, &result)
	assert.Equal(t, "pre [[viz:pie:0]] post", result.Text)
	require.Len(t, result.Commands, 1)
	assert.NotEmpty(t, result.Commands[0].Warnings)
}

func TestHandleVizExtract_OpenStream(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/viz/extract", map[string]interface{}{
		"text":  `start ![viz:chart]({"type":"chart"`,
		"final": false,
	})
	var result models.ExtractResult
	decodeBody(t, resp, &result)
	assert.Equal(t, 1, result.Pending)
	assert.Empty(t, result.Errors)
}

func TestHandleVizExtract_Validation(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/viz/extract", map[string]string{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	getResp, err := http.Get(ts.URL + "/api/viz/extract")
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}

func TestHandleVizFix(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/viz/fix", map[string]string{
		"raw":       `{"type":"table","columns":["A"],"rows":[["x"],]}`,
		"type_hint": "table",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Fixed    string   `json:"fixed"`
		WasFixed bool     `json:"was_fixed"`
		Warnings []string `json:"warnings"`
	}
	decodeBody(t, resp, &result)
	assert.True(t, result.WasFixed)
	assert.Len(t, result.Warnings, 2)
	assert.True(t, json.Valid([]byte(result.Fixed)))
}

func TestSessionEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/chat/sessions", map[string]string{})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]string
	decodeBody(t, resp, &created)
	sessionID := created["session_id"]
	require.NotEmpty(t, sessionID)

	chunkURL := fmt.Sprintf("%s/api/chat/sessions/%s/chunks", ts.URL, sessionID)
	resp = postJSON(t, ts.URL+"/api/chat/sessions/"+sessionID+"/chunks", map[string]string{
		"text": `![viz:pie]({"type":"pie","data":[{"label":"A","value":1}`,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var mid models.ExtractResult
	decodeBody(t, resp, &mid)
	assert.Equal(t, 1, mid.Pending)

	resp = postJSON(t, chunkURL, map[string]string{"text": `]})`})
	var done models.ExtractResult
	decodeBody(t, resp, &done)
	assert.Zero(t, done.Pending)
	require.Len(t, done.Commands, 1)

	resp = postJSON(t, fmt.Sprintf("%s/api/chat/sessions/%s/close", ts.URL, sessionID), map[string]string{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var final models.ExtractResult
	decodeBody(t, resp, &final)
	require.Len(t, final.Commands, 1)

	// Appending after close conflicts.
	resp = postJSON(t, chunkURL, map[string]string{"text": "more"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Session snapshot reflects the closed state.
	getResp, err := http.Get(ts.URL + "/api/chat/sessions/" + sessionID)
	require.NoError(t, err)
	var snap models.SessionSnapshot
	decodeBody(t, getResp, &snap)
	assert.True(t, snap.Closed)

	// Persisted records are queryable by session.
	recResp, err := http.Get(ts.URL + "/api/viz/records?session=" + sessionID)
	require.NoError(t, err)
	var records []models.VizRecord
	decodeBody(t, recResp, &records)
	require.Len(t, records, 1)
	assert.Equal(t, sessionID, records[0].SessionID)
}

func TestSessionEndpoints_NotFound(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/chat/sessions/missing/chunks", map[string]string{"text": "x"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/chat/sessions/missing/close", map[string]string{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	getResp, err := http.Get(ts.URL + "/api/chat/sessions/missing")
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestHandleAdvise_Unconfigured(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/chat/advise", map[string]string{"prompt": "allocate me"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCORSHeaders(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/health", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
