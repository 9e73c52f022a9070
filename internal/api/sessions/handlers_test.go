package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codr1/courtside/internal/api/authz"
	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/ratelimit"
	appsessions "github.com/codr1/courtside/internal/sessions"
	"github.com/codr1/courtside/internal/standings"
	"github.com/codr1/courtside/internal/testutil"
)

const formContentType = "application/x-www-form-urlencoded"

var fixtureNow = time.Date(2024, 6, 1, 19, 30, 0, 0, time.UTC)

func seedSession(t *testing.T, database *db.DB) {
	t.Helper()

	testutil.MustExec(t, database,
		`INSERT INTO game_sessions (id, created_by, player_count, created_at) VALUES (?, ?, ?, ?)`,
		"s1", "p1", 6, "2024-06-01 18:00:00")
	for _, n := range [][3]string{{"p1", "Ann", "Lee"}, {"p2", "Bob", "Ng"}, {"p3", "Cat", "Ho"}, {"p4", "Dan", "Ito"}} {
		testutil.MustExec(t, database,
			`INSERT INTO players (id, first_name, last_name) VALUES (?, ?, ?)`, n[0], n[1], n[2])
	}
	testutil.MustExec(t, database,
		`INSERT INTO matches (id, session_id, court_number, scheduled_order) VALUES (?, ?, ?, ?)`,
		"m1", "s1", 1, 1)
	for i, p := range []struct{ id, tag string }{
		{"p1", standings.TeamTag1}, {"p2", standings.TeamTag1},
		{"p3", standings.TeamTag2}, {"p4", standings.TeamTag2},
	} {
		testutil.MustExec(t, database,
			`INSERT INTO match_participants (match_id, player_id, team, position) VALUES (?, ?, ?, ?)`,
			"m1", p.id, p.tag, i)
	}
}

type failingStore struct {
	appsessions.Store
}

func (failingStore) ApplyResultChange(ctx context.Context, matchID string, change standings.ResultChange) error {
	return errors.New("disk full")
}

type harness struct {
	mux *http.ServeMux
}

func newHarness(t *testing.T, maxPerMinute int, wrap func(appsessions.Store) appsessions.Store) harness {
	t.Helper()

	database := testutil.NewTestDB(t)
	seedSession(t, database)

	sqlStore, err := appsessions.NewSQLStore(database)
	require.NoError(t, err)
	var store appsessions.Store = sqlStore
	if wrap != nil {
		store = wrap(store)
	}

	clock := clockwork.NewFakeClockAt(fixtureNow)
	svc, err := appsessions.NewService(store, appsessions.Options{Clock: clock})
	require.NoError(t, err)

	rl := ratelimit.New(ratelimit.Config{MaxPerMinute: maxPerMinute, Clock: clock})
	t.Cleanup(rl.Close)
	InitHandlers(svc, rl)
	t.Cleanup(func() { InitHandlers(nil, nil) })

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions/{id}", HandleSessionPage)
	mux.HandleFunc("GET /api/v1/sessions/{id}", HandleSessionView)
	mux.HandleFunc("POST /api/v1/sessions/{id}/matches/{matchID}/winner", HandleToggleWinner)
	mux.HandleFunc("GET /api/v1/sessions/{id}/matches/{matchID}/mutation", HandleMutationState)
	return harness{mux: mux}
}

func (h harness) do(req *http.Request, userID string) *httptest.ResponseRecorder {
	if userID != "" {
		req = req.WithContext(authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: userID}))
	}
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func toggleRequestFor(sessionID, matchID, contentType, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/matches/"+matchID+"/winner", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return req
}

func toggleJSON(team int) *http.Request {
	return toggleRequestFor("s1", "m1", "application/json", `{"team":`+strconv.Itoa(team)+`}`)
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) standings.View {
	t.Helper()
	var view standings.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func TestHandleSessionView(t *testing.T) {
	h := newHarness(t, 0, nil)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	matches := body["matches"].([]any)
	require.Len(t, matches, 1)
	assert.Equal(t, "", matches[0].(map[string]any)["winner"])

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/missing", nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSessionViewFragment(t *testing.T) {
	h := newHarness(t, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1", nil)
	req.Header.Set("HX-Request", "true")

	anonymous := h.do(req, "")
	require.Equal(t, http.StatusOK, anonymous.Code)
	assert.Contains(t, anonymous.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, anonymous.Body.String(), `id="session-view"`)
	assert.NotContains(t, anonymous.Body.String(), "hx-post")

	creator := h.do(req, "p1")
	assert.Contains(t, creator.Body.String(), `hx-post="/api/v1/sessions/s1/matches/m1/winner"`)
}

func TestHandleSessionPage(t *testing.T) {
	h := newHarness(t, 0, nil)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/sessions/s1", nil), "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<!DOCTYPE html>"))
	assert.Contains(t, rec.Body.String(), "<title>Game session</title>")
}

func TestHandleToggleWinner(t *testing.T) {
	h := newHarness(t, 0, nil)

	rec := h.do(toggleJSON(2), "p1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	assert.Equal(t, standings.Team2, view.Matches[0].Winner)
	assert.Equal(t, 1, view.Standings.Team2.Wins)

	// toggling the same side again clears the result
	rec = h.do(toggleJSON(2), "p1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, standings.TeamNone, decodeView(t, rec).Matches[0].Winner)

	state := h.do(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1/matches/m1/mutation", nil), "")
	require.Equal(t, http.StatusOK, state.Code)
	var mutation appsessions.MutationState
	require.NoError(t, json.Unmarshal(state.Body.Bytes(), &mutation))
	assert.Equal(t, appsessions.MutationSucceeded, mutation.Phase)
}

func TestHandleToggleWinnerForm(t *testing.T) {
	h := newHarness(t, 0, nil)

	form := url.Values{"team": {"1"}}
	req := toggleRequestFor("s1", "m1", formContentType, form.Encode())
	req.Header.Set("HX-Request", "true")

	rec := h.do(req, "p1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-winner="team1"`)
}

func TestHandleToggleWinnerRejections(t *testing.T) {
	h := newHarness(t, 0, nil)

	tests := []struct {
		name   string
		req    *http.Request
		userID string
		want   int
	}{
		{name: "anonymous", req: toggleJSON(1), want: http.StatusUnauthorized},
		{name: "not the creator", req: toggleJSON(1), userID: "p2", want: http.StatusForbidden},
		{name: "invalid team", req: toggleJSON(3), userID: "p1", want: http.StatusBadRequest},
		{name: "unknown field", req: toggleRequestFor("s1", "m1", "application/json", `{"side":1}`), userID: "p1", want: http.StatusBadRequest},
		{name: "missing form team", req: toggleRequestFor("s1", "m1", formContentType, ""), userID: "p1", want: http.StatusBadRequest},
		{name: "unknown match", req: toggleRequestFor("s1", "m9", formContentType, "team=1"), userID: "p1", want: http.StatusNotFound},
		{name: "unknown session", req: toggleRequestFor("s9", "m1", formContentType, "team=1"), userID: "p1", want: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(tc.req, tc.userID)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHandleToggleWinnerWriteFailure(t *testing.T) {
	h := newHarness(t, 0, func(s appsessions.Store) appsessions.Store { return failingStore{Store: s} })

	rec := h.do(toggleJSON(1), "p1")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body struct {
		Error string         `json:"error"`
		View  standings.View `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "The result could not be saved. Please try again.", body.Error)
	assert.Equal(t, standings.TeamNone, body.View.Matches[0].Winner)

	req := toggleJSON(1)
	req.Header.Set("HX-Request", "true")
	rec = h.do(req, "p1")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="alert">The result could not be saved. Please try again.`)
	assert.Contains(t, rec.Body.String(), `data-winner=""`)
}

func TestHandleToggleWinnerRateLimited(t *testing.T) {
	h := newHarness(t, 1, nil)

	first := h.do(toggleJSON(1), "p1")
	require.Equal(t, http.StatusOK, first.Code)

	second := h.do(toggleJSON(1), "p1")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// the rejected request never reached the store
	view := h.do(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1", nil), "")
	assert.Equal(t, standings.Team1, decodeView(t, view).Matches[0].Winner)
}
