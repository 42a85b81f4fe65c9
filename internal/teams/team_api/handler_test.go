package team_api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/db/dbtest"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/qr"
	"ms-festbuzz/internal/teams"
	"ms-festbuzz/internal/teams/team_api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "team-handler-secret"

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type harness struct {
	router http.Handler
	store  *db.DB
	fest   *models.Festival
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	d := dbtest.New(t)
	gen, err := qr.NewGenerator("", 64)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(auth.Middleware(auth.NewHMACVerifier(secret), nil))
	team_api.NewHandler(teams.NewService(d, gen, nil, nil, nil, teams.DefaultOptions()), nil).RegisterRoutes(r)

	return &harness{router: r, store: d, fest: dbtest.Festival(t, d, time.Now().UTC().Add(7*24*time.Hour))}
}

// member returns a token for a new user registered for the festival.
func (h *harness) member(t *testing.T) (string, string) {
	t.Helper()
	u := dbtest.User(t, h.store, models.RoleParticipant)
	require.NoError(t, h.store.CreateFestRegistration(context.Background(), models.NewFestRegistration(u.ID, h.fest.ID, time.Now().UTC())))
	tok, err := auth.IssueToken(secret, auth.Principal{UserID: u.ID, Role: u.Role}, time.Hour)
	require.NoError(t, err)
	return u.ID, tok
}

func (h *harness) post(t *testing.T, path, token string, body any) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	return h.send(t, httptest.NewRequest(http.MethodPost, path, &buf), token)
}

func (h *harness) send(t *testing.T, req *http.Request, token string) (int, response) {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestTeamLifecycle_HTTP(t *testing.T) {
	h := newHarness(t)
	event := dbtest.Event(t, h.store, h.fest, dbtest.TeamEvent(2))
	leaderID, leaderTok := h.member(t)
	memberID, memberTok := h.member(t)
	_, lateTok := h.member(t)

	code, resp := h.post(t, "/teams/create", leaderTok, map[string]string{"event_id": event.ID, "team_name": "Alpha"})
	require.Equal(t, http.StatusCreated, code)
	var team models.Team
	require.NoError(t, json.Unmarshal(resp.Data, &team))
	assert.Equal(t, leaderID, team.LeaderID)

	code, _ = h.post(t, "/teams/join", memberTok, map[string]string{"team_code": team.Code})
	require.Equal(t, http.StatusOK, code)

	code, resp = h.post(t, "/teams/join", lateTok, map[string]string{"team_code": team.Code})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", resp.Error)

	code, resp = h.send(t, httptest.NewRequest(http.MethodGet, "/teams/"+team.ID, nil), leaderTok)
	require.Equal(t, http.StatusOK, code)
	var view teams.TeamView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.True(t, view.IsLeader)
	assert.Equal(t, 0, view.SlotsLeft)

	code, _ = h.post(t, "/teams/"+team.ID+"/leave", leaderTok, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.post(t, "/teams/"+team.ID+"/transfer-leadership", memberTok, map[string]string{"new_leader_id": leaderID})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = h.post(t, "/teams/"+team.ID+"/transfer-leadership", leaderTok, map[string]string{"new_leader_id": memberID})
	require.Equal(t, http.StatusOK, code)

	code, resp = h.post(t, "/teams/"+team.ID+"/disband", memberTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"cancelledRegistrations":2}`, string(resp.Data))
}
