package personal_api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db/dbtest"
	"ms-festbuzz/internal/models"
	"ms-festbuzz/internal/personal"
	"ms-festbuzz/internal/personal/personal_api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func call(t *testing.T, h http.Handler, method, path string) (int, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestWishlistRoutes(t *testing.T) {
	d := dbtest.New(t)
	user := dbtest.User(t, d, models.RoleParticipant)
	fest := dbtest.Festival(t, d, time.Now().UTC().Add(48*time.Hour))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			p := auth.Principal{UserID: user.ID, Role: user.Role}
			next.ServeHTTP(w, req.WithContext(auth.WithPrincipal(req.Context(), p)))
		})
	})
	personal_api.NewHandler(personal.NewService(d), nil).RegisterRoutes(r)

	code, _ := call(t, r, http.MethodPost, "/wishlist/"+fest.ID)
	require.Equal(t, http.StatusCreated, code)

	code, resp := call(t, r, http.MethodPost, "/wishlist/"+fest.ID)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", resp.Error)

	code, resp = call(t, r, http.MethodGet, "/wishlist/check/"+fest.ID)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"in_wishlist":true}`, string(resp.Data))

	code, resp = call(t, r, http.MethodGet, "/wishlist/count")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"count":1}`, string(resp.Data))

	code, _ = call(t, r, http.MethodDelete, "/wishlist/"+fest.ID)
	assert.Equal(t, http.StatusOK, code)
	code, _ = call(t, r, http.MethodDelete, "/wishlist/"+fest.ID)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRecentlyViewedRoutes(t *testing.T) {
	d := dbtest.New(t)
	user := dbtest.User(t, d, models.RoleParticipant)
	fest := dbtest.Festival(t, d, time.Now().UTC().Add(48*time.Hour))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			p := auth.Principal{UserID: user.ID, Role: user.Role}
			next.ServeHTTP(w, req.WithContext(auth.WithPrincipal(req.Context(), p)))
		})
	})
	personal_api.NewHandler(personal.NewService(d), nil).RegisterRoutes(r)

	for i := 0; i < 2; i++ {
		code, _ := call(t, r, http.MethodPost, "/recently-viewed/"+fest.ID)
		require.Equal(t, http.StatusOK, code)
	}

	code, resp := call(t, r, http.MethodGet, "/recently-viewed/most-viewed?limit=3")
	require.Equal(t, http.StatusOK, code)
	var items []models.RecentlyViewed
	require.NoError(t, json.Unmarshal(resp.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].ViewCount)

	code, _ = call(t, r, http.MethodGet, "/recently-viewed/most-viewed?limit=abc")
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = call(t, r, http.MethodDelete, "/recently-viewed/")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"removed":1}`, string(resp.Data))
}
