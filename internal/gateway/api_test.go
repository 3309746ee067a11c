// ABOUTME: Tests for the session CRUD and listing HTTP API
// ABOUTME: Covers create/list/get sessions, item selection, catalog, ping, and CORS

package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provenly/resale-gateway/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	// Keep the host environment out of store and analyst setup.
	t.Setenv("RESALE_DB_PATH", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g, err := New(config.Default(), logger)
	require.NoError(t, err)

	srv := httptest.NewServer(g.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = g.store.Close()
	})
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func createTestSession(t *testing.T, srv *httptest.Server, body map[string]any) SessionResponse {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/sessions", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session SessionResponse
	decodeJSON(t, resp, &session)
	return session
}

func TestPing(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)

	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Equal(t, "pong", body["msg"])
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/sessions", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestCreateSession_Defaults(t *testing.T) {
	srv := newTestServer(t)

	session := createTestSession(t, srv, map[string]any{})

	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, "auto", session.Mode)
	assert.Nil(t, session.SelectedItemID)
	assert.NotNil(t, session.EvaluatorAgents)
	assert.Empty(t, session.EvaluatorAgents)
	assert.Zero(t, session.Turn)
}

func TestCreateSession_CallerFields(t *testing.T) {
	srv := newTestServer(t)

	session := createTestSession(t, srv, map[string]any{
		"session_id":       "demo",
		"mode":             "manual",
		"selected_item_id": "demo-item-1",
		"buyer_agent":      map[string]any{"name": "buyer-bot"},
		"evaluator_agents": []map[string]any{{"name": "analyst"}},
		"turn":             2,
	})

	assert.Equal(t, "demo", session.SessionID)
	assert.Equal(t, "manual", session.Mode)
	require.NotNil(t, session.SelectedItemID)
	assert.Equal(t, "demo-item-1", *session.SelectedItemID)
	assert.JSONEq(t, `{"name":"buyer-bot"}`, string(session.BuyerAgent))
	assert.Equal(t, 2, session.Turn)
}

func TestCreateSession_Duplicate(t *testing.T) {
	srv := newTestServer(t)

	createTestSession(t, srv, map[string]any{"session_id": "demo"})

	resp := postJSON(t, srv.URL+"/api/sessions", map[string]any{"session_id": "demo"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListSessions(t *testing.T) {
	srv := newTestServer(t)

	createTestSession(t, srv, map[string]any{"session_id": "one"})
	createTestSession(t, srv, map[string]any{"session_id": "two"})

	resp, err := http.Get(srv.URL + "/api/sessions")
	require.NoError(t, err)

	var sessions []SessionResponse
	decodeJSON(t, resp, &sessions)
	assert.Len(t, sessions, 2)
}

func TestGetSession(t *testing.T) {
	srv := newTestServer(t)

	createTestSession(t, srv, map[string]any{"session_id": "demo"})

	resp, err := http.Get(srv.URL + "/api/sessions/demo")
	require.NoError(t, err)

	var session SessionResponse
	decodeJSON(t, resp, &session)
	assert.Equal(t, "demo", session.SessionID)
}

func TestGetSession_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/sessions/ghost")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSelectItem(t *testing.T) {
	srv := newTestServer(t)

	createTestSession(t, srv, map[string]any{"session_id": "demo"})

	resp := postJSON(t, srv.URL+"/api/sessions/demo/select-item", map[string]any{"item_id": "demo-item-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session SessionResponse
	decodeJSON(t, resp, &session)
	require.NotNil(t, session.SelectedItemID)
	assert.Equal(t, "demo-item-1", *session.SelectedItemID)
}

func TestSelectItem_UnknownListing(t *testing.T) {
	srv := newTestServer(t)

	createTestSession(t, srv, map[string]any{"session_id": "demo"})

	resp := postJSON(t, srv.URL+"/api/sessions/demo/select-item", map[string]any{"item_id": "no-such-item"})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSelectItem_UnknownSession(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/sessions/ghost/select-item", map[string]any{"item_id": "demo-item-1"})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListListings(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/listings")
	require.NoError(t, err)

	var listings []ListingResponse
	decodeJSON(t, resp, &listings)
	require.NotEmpty(t, listings)
	assert.Equal(t, "demo-item-1", listings[0].ID)
	assert.Contains(t, listings[0].OfficialDescription, "hologram tag")
	assert.NotEmpty(t, listings[0].Seller.Description)
}

func TestGetListing(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/listings/demo-item-1")
	require.NoError(t, err)

	var listing ListingResponse
	decodeJSON(t, resp, &listing)
	assert.Equal(t, "demo-item-1", listing.ID)
}

func TestGetListing_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/listings/no-such-item")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessions_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/sessions", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
