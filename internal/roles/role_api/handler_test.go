package role_api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/db/dbtest"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/roles"
	"ms-festbuzz/internal/roles/role_api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "role-handler-secret"

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type server struct {
	router http.Handler
	store  *db.DB
	fest   *models.Festival
}

func newServer(t *testing.T) *server {
	t.Helper()
	d := dbtest.New(t)

	r := chi.NewRouter()
	r.Use(auth.Middleware(auth.NewHMACVerifier(secret), nil))
	role_api.NewHandler(roles.NewService(d, nil, nil), nil).RegisterRoutes(r)
	return &server{router: r, store: d, fest: dbtest.Festival(t, d, time.Now().UTC().Add(7*24*time.Hour))}
}

func (s *server) token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := auth.IssueToken(secret, auth.Principal{UserID: u.ID, Role: u.Role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, path, token string, body any) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func TestRoleRoutes_AssignListRemove(t *testing.T) {
	s := newServer(t)
	admin := s.token(t, dbtest.User(t, s.store, models.RoleAdmin))
	staff := dbtest.User(t, s.store, models.RoleParticipant)
	base := "/festivals/" + s.fest.ID

	code, resp := s.do(t, http.MethodPost, base+"/roles", admin, map[string]any{
		"user_id": staff.ID,
		"role":    models.FestivalRoleEventManager,
	})
	require.Equal(t, http.StatusOK, code, resp.Error)
	var assignment models.FestivalUserRole
	require.NoError(t, json.Unmarshal(resp.Data, &assignment))
	assert.Equal(t, models.FestivalRoleEventManager, assignment.Role)
	assert.True(t, assignment.IsActive)

	code, resp = s.do(t, http.MethodGet, base+"/users", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var users []roles.FestivalUser
	require.NoError(t, json.Unmarshal(resp.Data, &users))
	require.Len(t, users, 1)
	assert.Equal(t, staff.ID, users[0].UserID)
	assert.Equal(t, staff.Email, users[0].Email)
	assert.True(t, users[0].Effective)

	staffTok := s.token(t, staff)
	code, resp = s.do(t, http.MethodGet, base+"/my-role", staffTok, nil)
	require.Equal(t, http.StatusOK, code)
	var mine roles.MyRole
	require.NoError(t, json.Unmarshal(resp.Data, &mine))
	assert.Equal(t, models.FestivalRoleEventManager, mine.FestivalRole)
	assert.Contains(t, mine.Permissions, auth.CanAssignEventRoles)

	// event managers may list the festival staff but not change it
	code, _ = s.do(t, http.MethodGet, base+"/users", staffTok, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodDelete, base+"/roles/"+staff.ID, staffTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodDelete, base+"/roles/"+staff.ID, admin, nil)
	require.Equal(t, http.StatusOK, code)
	code, resp = s.do(t, http.MethodDelete, base+"/roles/"+staff.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", resp.Error)

	code, resp = s.do(t, http.MethodGet, base+"/my-role", staffTok, nil)
	require.Equal(t, http.StatusOK, code)
	mine = roles.MyRole{}
	require.NoError(t, json.Unmarshal(resp.Data, &mine))
	assert.Empty(t, mine.FestivalRole)
	assert.Equal(t, models.RoleParticipant, mine.GlobalRole)
}

func TestRoleRoutes_Rejections(t *testing.T) {
	s := newServer(t)
	admin := s.token(t, dbtest.User(t, s.store, models.RoleAdmin))
	participant := dbtest.User(t, s.store, models.RoleParticipant)
	base := "/festivals/" + s.fest.ID

	code, _ := s.do(t, http.MethodPost, base+"/roles", s.token(t, participant), map[string]any{
		"user_id": participant.ID,
		"role":    models.FestivalRoleAdmin,
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, base+"/users", s.token(t, participant), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPost, base+"/roles", admin, map[string]any{"user_id": participant.ID, "role": "overlord"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, base+"/roles", admin, map[string]any{
		"user_id":    participant.ID,
		"role":       models.FestivalRoleEventVolunteer,
		"expires_at": time.Now().UTC().Add(-time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, base+"/roles", admin, map[string]any{"user_id": "nobody", "role": models.FestivalRoleEventVolunteer})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/festivals/missing/my-role", admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
