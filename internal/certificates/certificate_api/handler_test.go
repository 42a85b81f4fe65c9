package certificate_api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/certificates"
	"ms-festbuzz/internal/certificates/certificate_api"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/db/dbtest"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/roles"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "certificate-test-secret"

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type server struct {
	router http.Handler
	store  *db.DB
}

func newServer(t *testing.T) *server {
	t.Helper()
	d := dbtest.New(t)
	svc := certificates.NewService(d, roles.NewService(d, nil, nil), nil, nil)

	r := chi.NewRouter()
	r.Use(auth.Middleware(auth.NewHMACVerifier(secret), nil))
	certificate_api.NewHandler(svc, nil).RegisterRoutes(r)
	return &server{router: r, store: d}
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
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestCertificateRoutes(t *testing.T) {
	s := newServer(t)
	fest := dbtest.Festival(t, s.store, time.Now().UTC().Add(-24*time.Hour))
	event := dbtest.Event(t, s.store, fest)
	admin := s.token(t, dbtest.User(t, s.store, models.RoleAdmin))
	user := dbtest.User(t, s.store, models.RoleParticipant)
	dbtest.SoloRegistration(t, s.store, event, user.ID)
	userTok := s.token(t, user)

	base := "/certificates/events/" + event.ID
	code, resp := s.do(t, http.MethodPost, base+"/issue", admin, map[string]any{"participants": []string{user.ID}})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", resp.Error)

	code, _ = s.do(t, http.MethodPut, base+"/template", userTok, map[string]any{"template": "classic"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPut, base+"/template", admin, map[string]any{"template": "classic", "name1": "Dean"})
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, base+"/issue", admin, map[string]any{
		"winners": []map[string]string{{"user_id": user.ID, "position": "1st"}},
	})
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(t, http.MethodGet, "/certificates/user/"+event.ID, userTok, nil)
	require.Equal(t, http.StatusOK, code)
	var mine models.UserCertificate
	require.NoError(t, json.Unmarshal(resp.Data, &mine))
	assert.True(t, mine.IsWinner)
	assert.Equal(t, "Dean", mine.Certificate.Name1)

	code, resp = s.do(t, http.MethodGet, "/certificates/my", userTok, nil)
	require.Equal(t, http.StatusOK, code)
	var list []models.UserCertificate
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)

	code, _ = s.do(t, http.MethodGet, "/certificates/user/"+event.ID, admin, nil)
	assert.Equal(t, http.StatusForbidden, code)
}
