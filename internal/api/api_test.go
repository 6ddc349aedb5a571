package api_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/api"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/api/apierr"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/api/response"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/config"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/factory"
)

// testServer wraps a router built from a test app
type testServer struct {
	handler http.Handler
	app     *factory.App
}

func newRouter(app *factory.App) http.Handler {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return api.NewRouter(api.RouterConfig{
		Logger:            logger,
		SessionController: app.SessionController,
		DevTools:          app.DevTools,
	})
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	return &testServer{handler: newRouter(app.App), app: app.App}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rr.Code, rr.Body.String())
	resp := decode[apierr.ErrorResponse](t, rr)
	assert.Equal(t, code, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Message)
}

// createSession creates a session and returns its id
func (ts *testServer) createSession(t *testing.T) string {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/sessions", nil, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	return decode[response.CreatedSession](t, rr).ID
}

// fillAndDeal adds five dev players, starts the session and assigns round one
func (ts *testServer) fillAndDeal(t *testing.T, id string) map[string]string {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/dev/sessions/"+id+"/players", map[string]int{"count": 5}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	added := decode[response.AddedPlayers](t, rr)

	tokens := make(map[string]string, len(added.Added))
	for _, p := range added.Added {
		tokens[p.Name] = p.Token
	}

	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/start", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/assign", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return tokens
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[response.Status](t, rr).Status)
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assert.Equal(t, "req-123", rr.Header().Get("X-Request-Id"))

	rr = ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestCreateAndGetSession(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)
	assert.Len(t, id, 5)

	rr := ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/join", map[string]string{"name": "  Alice  "}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	joined := decode[response.Joined](t, rr)
	assert.Equal(t, "Alice", joined.Name)
	assert.NotEmpty(t, joined.Token)

	// Ids are accepted in any case
	rr = ts.request(http.MethodGet, "/api/v1/sessions/"+string(bytes.ToUpper([]byte(id))), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[response.Session](t, rr)
	assert.Equal(t, id, view.ID)
	assert.Equal(t, "add_players", view.State)
	assert.Equal(t, 0, view.Round)
	assert.Equal(t, []string{"Alice"}, view.Players)
	assert.Equal(t, 1, view.PlayerCount)
	assert.Empty(t, view.Events)

	// The public view never leaks tokens or roles
	assert.NotContains(t, rr.Body.String(), joined.Token)
	assert.NotContains(t, rr.Body.String(), "role")
}

func TestSessionErrors(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	rr := ts.request(http.MethodGet, "/api/v1/sessions/ab1", nil, "")
	assertError(t, rr, http.StatusBadRequest, apierr.CodeInvalidSessionID)

	rr = ts.request(http.MethodGet, "/api/v1/sessions/zzzzz", nil, "")
	assertError(t, rr, http.StatusNotFound, apierr.CodeSessionNotFound)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/join", map[string]string{"name": "   "}, "")
	assertError(t, rr, http.StatusBadRequest, apierr.CodeInvalidName)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/join", map[string]string{"name": "Alice"}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/join", map[string]string{"name": "ALICE"}, "")
	assertError(t, rr, http.StatusConflict, apierr.CodeNameTaken)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/start", nil, "")
	assertError(t, rr, http.StatusBadRequest, apierr.CodePlayerCountOutOfRange)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/assign", nil, "")
	assertError(t, rr, http.StatusBadRequest, apierr.CodeNotStarted)
}

func TestMalformedJSON(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/join", bytes.NewBufferString("{"))
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assertError(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)
}

func TestFullSessionFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)
	tokens := ts.fillAndDeal(t, id)
	require.Len(t, tokens, 5)

	// Joining after start is refused
	rr := ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/join", map[string]string{"name": "Zed"}, "")
	assertError(t, rr, http.StatusBadRequest, apierr.CodeAlreadyStarted)

	// Token in the header
	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/reveal", nil, tokens["Charlie"])
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Your role is fascist. Fascists are: (Diana is hitler)", decode[response.Revealed](t, rr).Message)

	// Token in the body
	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/reveal", map[string]string{"token": tokens["Alice"]}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Your role is liberal.", decode[response.Revealed](t, rr).Message)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/view-party",
		map[string]string{"token": tokens["Alice"], "target_name": "diana"}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	party := decode[response.Party](t, rr)
	assert.Equal(t, "Diana", party.Name)
	assert.Equal(t, "fascist", party.Party)

	rr = ts.request(http.MethodGet, "/api/v1/sessions/"+id, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[response.Session](t, rr)
	assert.Equal(t, "active", view.State)
	assert.Equal(t, 1, view.Round)
	require.Len(t, view.Events, 2)
	assert.Equal(t, "Round 1: roles assigned.", view.Events[0].Message)
	assert.Equal(t, "Diana's party membership was viewed.", view.Events[1].Message)
	for _, e := range view.Events {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
	}
	assert.NotEqual(t, view.Events[0].ID, view.Events[1].ID)
	assert.False(t, view.Events[1].CreatedAt.Before(view.Events[0].CreatedAt))

	// Events are objects on the wire
	var raw struct {
		Events []map[string]any `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	require.Len(t, raw.Events, 2)
	assert.Contains(t, raw.Events[0], "id")
	assert.Contains(t, raw.Events[0], "message")
	assert.Contains(t, raw.Events[0], "created_at")

	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/end", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[response.Ended](t, rr).Deleted)

	rr = ts.request(http.MethodGet, "/api/v1/sessions/"+id, nil, "")
	assertError(t, rr, http.StatusNotFound, apierr.CodeSessionNotFound)
}

func TestPlayerTokenErrors(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)
	tokens := ts.fillAndDeal(t, id)

	rr := ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/reveal", nil, "")
	assertError(t, rr, http.StatusBadRequest, apierr.CodeMissingToken)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/reveal", nil, "not-a-token")
	assertError(t, rr, http.StatusNotFound, apierr.CodePlayerNotFound)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/view-party", map[string]string{"target_name": " "}, tokens["Bob"])
	assertError(t, rr, http.StatusBadRequest, apierr.CodeMissingTarget)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/"+id+"/view-party", map[string]string{"target_name": "Nobody"}, tokens["Bob"])
	assertError(t, rr, http.StatusNotFound, apierr.CodePlayerNotFound)
}

func TestDeleteEndsSession(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	rr := ts.request(http.MethodDelete, "/api/v1/sessions/"+id, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodDelete, "/api/v1/sessions/"+id, nil, "")
	assertError(t, rr, http.StatusNotFound, apierr.CodeSessionNotFound)
}

func TestDevRoster(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	rr := ts.request(http.MethodGet, "/api/v1/dev/status", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[response.DevStatus](t, rr).DevMode)

	rr = ts.request(http.MethodPost, "/api/v1/dev/sessions/"+id+"/players", nil, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Len(t, decode[response.AddedPlayers](t, rr).Added, 1)

	rr = ts.request(http.MethodGet, "/api/v1/dev/sessions/"+id+"/roles", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	roster := decode[response.Roster](t, rr)
	assert.Equal(t, "add_players", roster.State)
	require.Len(t, roster.Players, 1)
	assert.Equal(t, response.PlayerRole{Name: "Alice", Role: "(not assigned)"}, roster.Players[0])

	rr = ts.request(http.MethodPost, "/api/v1/dev/sessions/"+id+"/players", map[string]int{"count": 50}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Len(t, decode[response.AddedPlayers](t, rr).Added, 9)

	rr = ts.request(http.MethodPost, "/api/v1/dev/sessions/"+id+"/players", map[string]int{"count": 1}, "")
	assertError(t, rr, http.StatusBadRequest, apierr.CodeSessionFull)
}

func TestDevToolsDisabled(t *testing.T) {
	app, err := factory.New(config.Default(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	ts := &testServer{handler: newRouter(app), app: app}

	rr := ts.request(http.MethodGet, "/api/v1/dev/status", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[response.DevStatus](t, rr).DevMode)

	id := ts.createSession(t)
	rr = ts.request(http.MethodPost, "/api/v1/dev/sessions/"+id+"/players", map[string]int{"count": 5}, "")
	assertError(t, rr, http.StatusForbidden, apierr.CodeDevModeDisabled)

	rr = ts.request(http.MethodGet, "/api/v1/dev/sessions/"+id+"/roles", nil, "")
	assertError(t, rr, http.StatusForbidden, apierr.CodeDevModeDisabled)
}
