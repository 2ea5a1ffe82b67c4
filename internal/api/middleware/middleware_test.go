package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hanru_board/internal/app/service"
	"hanru_board/internal/common/security"
	"hanru_board/internal/domain/model"
	"hanru_board/internal/preference"
)

func init() {
	security.InitJWT([]byte("middleware-test-secret"), time.Hour)
}

// serve runs a request through the verifier, optional auth and viewer
// middleware, capturing the resulting viewer.
func serve(t *testing.T, prefs *service.PreferenceService, req *http.Request) (service.Viewer, *httptest.ResponseRecorder) {
	t.Helper()
	var got service.Viewer
	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(security.TokenAuth))
	r.Use(OptionalAuth)
	r.Use(ViewerContext(prefs))
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		got = GetViewer(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return got, rec
}

func bearer(t *testing.T, req *http.Request, userID, role string) {
	t.Helper()
	token, err := security.GenerateToken(userID, role)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

func newPrefs() *service.PreferenceService {
	return service.NewPreferenceService(preference.NewMemorySlots(), nil)
}

func TestModeFromAcceptLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   preference.Mode
	}{
		{"", preference.ModeKo},
		{"ru-RU,ru;q=0.9,en;q=0.8", preference.ModeRu},
		{"ko-KR,ko;q=0.9", preference.ModeKo},
		{"en-US,ru;q=0.5", preference.ModeRu},
		{"ja-JP", preference.ModeKo},
		{";;;garbage", preference.ModeKo},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, modeFromAcceptLanguage(tt.header))
		})
	}
}

func TestViewerContext_AnonymousGetsViewerCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	v, rec := serve(t, newPrefs(), req)

	assert.True(t, v.Anonymous())
	require.NotEmpty(t, v.ID)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, ViewerIDCookie, cookies[0].Name)
	assert.Equal(t, v.ID, cookies[0].Value)
	assert.Equal(t, preference.ModeKo, v.Mode)
	assert.False(t, v.ModeExplicit)
}

func TestViewerContext_ReusesViewerCookie(t *testing.T) {
	id := "0b7c8d52-8a3a-4a7e-9a38-2f7d3e0c1f11"
	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.AddCookie(&http.Cookie{Name: ViewerIDCookie, Value: id})
	v, rec := serve(t, newPrefs(), req)

	assert.Equal(t, id, v.ID)
	assert.Empty(t, rec.Result().Cookies())
}

func TestViewerContext_SignedInUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	bearer(t, req, "user-1", model.RoleModerator)
	v, rec := serve(t, newPrefs(), req)

	assert.Equal(t, "user-1", v.ID)
	assert.Equal(t, "user-1", v.UserID)
	assert.True(t, v.IsStaff())
	assert.Empty(t, rec.Result().Cookies())
}

func TestViewerContext_InvalidTokenRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	_, rec := serve(t, newPrefs(), req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestViewerContext_ModePrecedence(t *testing.T) {
	prefs := newPrefs()
	_, err := prefs.SetMode(context.Background(), "user-2", "both")
	require.NoError(t, err)

	t.Run("stored beats accept-language", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "ru")
		bearer(t, req, "user-2", model.RoleUser)
		v, _ := serve(t, prefs, req)
		assert.Equal(t, preference.ModeBoth, v.Mode)
		assert.False(t, v.ModeExplicit)
	})

	t.Run("cookie beats stored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: preference.StorageKey, Value: "ru"})
		bearer(t, req, "user-2", model.RoleUser)
		v, _ := serve(t, prefs, req)
		assert.Equal(t, preference.ModeRu, v.Mode)
	})

	t.Run("query beats cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?lang=ko", nil)
		req.AddCookie(&http.Cookie{Name: preference.StorageKey, Value: "ru"})
		v, _ := serve(t, prefs, req)
		assert.Equal(t, preference.ModeKo, v.Mode)
		assert.True(t, v.ModeExplicit)
	})

	t.Run("lang=both is ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?lang=both", nil)
		req.Header.Set("Accept-Language", "ru")
		v, _ := serve(t, prefs, req)
		assert.Equal(t, preference.ModeRu, v.Mode)
		assert.False(t, v.ModeExplicit)
	})

	t.Run("mode=both", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?mode=both&original=true", nil)
		v, _ := serve(t, prefs, req)
		assert.Equal(t, preference.ModeBoth, v.Mode)
		assert.True(t, v.ForceOriginal)
	})

	t.Run("bad cookie falls through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: preference.StorageKey, Value: "fr"})
		req.Header.Set("Accept-Language", "ru-RU")
		v, _ := serve(t, prefs, req)
		assert.Equal(t, preference.ModeRu, v.Mode)
	})
}

func TestGetViewer_WithoutMiddleware(t *testing.T) {
	v := GetViewer(context.Background())
	assert.True(t, v.Anonymous())
	assert.Equal(t, preference.DefaultMode, v.Mode)
}

func TestStaffOnly(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	for role, want := range map[string]int{
		model.RoleUser:      http.StatusForbidden,
		model.RoleModerator: http.StatusOK,
		model.RoleAdmin:     http.StatusOK,
	} {
		t.Run(role, func(t *testing.T) {
			r := chi.NewRouter()
			r.Use(jwtauth.Verifier(security.TokenAuth))
			r.Use(Authenticator)
			r.Use(StaffOnly)
			r.Get("/", ok)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			bearer(t, req, "u", role)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, want, rec.Code)
		})
	}
}

func TestAuthenticator_MissingToken(t *testing.T) {
	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(security.TokenAuth))
	r.Use(Authenticator)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
