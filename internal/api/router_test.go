package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hanru_board/internal/app/service"
	"hanru_board/internal/common/security"
	"hanru_board/internal/domain/model"
	"hanru_board/internal/domain/repository/repotest"
	"hanru_board/internal/platform/queue"
	"hanru_board/internal/platform/translator"
	"hanru_board/internal/preference"
)

const testWebhookSecret = "hook-secret"

type upperTranslator struct{}

func (upperTranslator) Translate(_ context.Context, text string, _, target model.Language) (string, error) {
	return strings.ToUpper(text) + "@" + string(target), nil
}

type testApp struct {
	handler http.Handler
	posts   *repotest.Posts
	jobs    *repotest.Jobs
	prefs   *service.PreferenceService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	security.InitJWT([]byte("router-test-secret"), time.Hour)

	categories := repotest.NewCategories(
		model.Category{ID: "c-notice", Slug: model.NoticeCategorySlug, NameKo: "공지사항", NameRu: "Объявления", IsActive: true,
			SortOrder: 1, ReadPermission: model.PermissionAll, WritePermission: model.PermissionAdmin},
		model.Category{ID: "c-free", Slug: "free", NameKo: "자유게시판", NameRu: "Свободная тема", IsActive: true,
			SortOrder: 2, ReadPermission: model.PermissionAll, WritePermission: model.PermissionUser},
	)
	posts := repotest.NewPosts(categories)
	jobs := repotest.NewJobs()
	tx := repotest.Transactor{}

	translations := service.NewTranslationService(jobs, posts, queue.NewMemoryQueue(16), "q",
		translator.NewCached(upperTranslator{}, nil, time.Hour), tx)
	postService := service.NewPostService(posts, categories, translations, tx)
	categoryService := service.NewCategoryService(categories)
	prefs := service.NewPreferenceService(preference.NewMemorySlots(), []time.Duration{5 * time.Millisecond})

	h := NewRouter(Services{
		Auth:          service.NewAuthService(repotest.NewUsers()),
		Categories:    categoryService,
		Posts:         postService,
		Pages:         service.NewPageService(postService, categoryService, prefs),
		Preferences:   prefs,
		Translations:  translations,
		WebhookSecret: testWebhookSecret,
	})
	return &testApp{handler: h, posts: posts, jobs: jobs, prefs: prefs}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testApp) signup(t *testing.T, username string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/signup", "", service.SignupRequest{
		Username: username, Email: username + "@example.com", Password: "correct-horse", Nickname: username,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[service.AuthResponse](t, rec).Token
}

func (a *testApp) createPost(t *testing.T, token string, req service.CreatePostRequest) model.Post {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/posts", token, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Post](t, rec)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuth_SignupThenLogin(t *testing.T) {
	app := newTestApp(t)
	app.signup(t, "minsu")

	rec := app.do(t, http.MethodPost, "/api/v1/login", "", service.LoginRequest{LoginField: "minsu@example.com", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[service.AuthResponse](t, rec).Token)

	rec = app.do(t, http.MethodPost, "/api/v1/login", "", service.LoginRequest{LoginField: "minsu", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/v1/signup", "", service.SignupRequest{
		Username: "minsu", Email: "other@example.com", Password: "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuth_Me(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := app.signup(t, "sora")
	rec = app.do(t, http.MethodGet, "/api/v1/me?lang=ru", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		User model.User      `json:"user"`
		Mode preference.Mode `json:"mode"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "sora", body.User.Username)
	assert.Equal(t, preference.ModeRu, body.Mode)
}

func TestPosts_CreateRequiresAuth(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodPost, "/api/v1/posts", "", service.CreatePostRequest{Title: "t", Content: "c", SourceLang: "ko", CategorySlug: "free"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPosts_NoticeIsStaffOnly(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "member")
	rec := app.do(t, http.MethodPost, "/api/v1/posts", token, service.CreatePostRequest{
		Title: "공지", Content: "내용", SourceLang: "ko", CategorySlug: model.NoticeCategorySlug,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPosts_Lifecycle(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "olga")

	post := app.createPost(t, token, service.CreatePostRequest{
		Title: "Привет", Content: "<p>Текст</p>", SourceLang: "ru", CategorySlug: "free", AutoTranslate: true,
	})
	assert.Equal(t, model.LangRu, post.SourceLang)
	require.Len(t, app.jobs.All(), 1)

	t.Run("list is public", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/v1/posts?category=free&lang=ru", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		page := decode[service.PostPage](t, rec)
		require.Len(t, page.Items, 1)
		assert.Equal(t, preference.ModeRu, page.Items[0].Mode)
		assert.Equal(t, "Привет", page.Items[0].Variants[0].Title)
	})

	t.Run("anonymous cannot open a non-notice post", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/v1/posts/"+post.ID, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("get resolves for the viewer", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/v1/posts/"+post.ID+"?mode=both", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		view := decode[service.PostView](t, rec)
		assert.Equal(t, preference.ModeBoth, view.Mode)
		assert.Len(t, view.Variants, 2)
	})

	t.Run("page renders tagged variants", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/v1/posts/"+post.ID+"/page?lang=ru", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

		doc, err := goquery.NewDocumentFromReader(rec.Body)
		require.NoError(t, err)
		ru := doc.Find("main#post .russian-variant")
		require.Equal(t, 1, ru.Length())
		_, hidden := ru.Attr("hidden")
		assert.False(t, hidden)
		doc.Find("main#post .korean-variant").Each(func(_ int, s *goquery.Selection) {
			_, hidden := s.Attr("hidden")
			assert.True(t, hidden)
		})
	})

	t.Run("only the author edits", func(t *testing.T) {
		stranger := app.signup(t, "stranger")
		title := "Чужой"
		rec := app.do(t, http.MethodPut, "/api/v1/posts/"+post.ID, stranger, service.UpdatePostRequest{Title: &title})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		title = "Привет всем"
		rec = app.do(t, http.MethodPut, "/api/v1/posts/"+post.ID, token, service.UpdatePostRequest{Title: &title})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, title, decode[model.Post](t, rec).Title)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(t, http.MethodDelete, "/api/v1/posts/"+post.ID, token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = app.do(t, http.MethodGet, "/api/v1/posts/"+post.ID, token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCategories(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/v1/categories?mode=both", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	views := decode[[]service.CategoryView](t, rec)
	require.Len(t, views, 2)
	assert.Len(t, views[0].Labels, 2)

	rec = app.do(t, http.MethodGet, "/api/v1/categories/free", "", nil, func(r *http.Request) {
		r.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")
	})
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[service.CategoryView](t, rec)
	require.Len(t, view.Labels, 1)
	assert.Equal(t, "Свободная тема", view.Labels[0].Name)

	rec = app.do(t, http.MethodGet, "/api/v1/categories/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreferences_SetAndGet(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "viewer")

	rec := app.do(t, http.MethodGet, "/api/v1/preferences/mode", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, preference.ModeKo, decode[map[string]preference.Mode](t, rec)["mode"])

	rec = app.do(t, http.MethodPut, "/api/v1/preferences/mode", token, map[string]string{"mode": "both"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == preference.StorageKey {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, "both", cookie.Value)

	rec = app.do(t, http.MethodGet, "/api/v1/preferences/mode", token, nil)
	assert.Equal(t, preference.ModeBoth, decode[map[string]preference.Mode](t, rec)["mode"])

	rec = app.do(t, http.MethodPut, "/api/v1/preferences/mode", token, map[string]string{"mode": "en"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPut, "/api/v1/preferences/mode", token, nil, func(r *http.Request) {
		r.Body = io.NopCloser(strings.NewReader("{not json"))
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreferences_AnonymousViewerKeepsMode(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPut, "/api/v1/preferences/mode", "", map[string]string{"mode": "ru"})
	require.Equal(t, http.StatusOK, rec.Code)
	var viewerCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "viewer_id" {
			viewerCookie = c
		}
	}
	require.NotNil(t, viewerCookie)

	rec = app.do(t, http.MethodGet, "/api/v1/preferences/mode", "", nil, func(r *http.Request) {
		r.AddCookie(viewerCookie)
	})
	assert.Equal(t, preference.ModeRu, decode[map[string]preference.Mode](t, rec)["mode"])
}

func TestPreferences_CookieModeIsNotOverwritten(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "sasha")
	post := app.createPost(t, token, service.CreatePostRequest{Title: "Привет", Content: "Текст", SourceLang: "ru", CategorySlug: "free"})
	var me struct {
		User model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(app.do(t, http.MethodGet, "/api/v1/me", token, nil).Body.Bytes(), &me))
	userID := me.User.ID
	require.NotEmpty(t, userID)
	withCookie := func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: preference.StorageKey, Value: "ru"})
	}

	rec := app.do(t, http.MethodGet, "/api/v1/preferences/mode", token, nil, withCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, preference.ModeRu, decode[map[string]preference.Mode](t, rec)["mode"])

	rec = app.do(t, http.MethodGet, "/api/v1/posts/"+post.ID+"/page", token, nil, withCookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "ru", doc.Find("body").AttrOr("data-lang", ""))

	_, ok := app.prefs.Stored(context.Background(), userID)
	assert.False(t, ok)

	rec = app.do(t, http.MethodGet, "/api/v1/preferences/mode", token, nil, func(r *http.Request) {
		r.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")
	})
	assert.Equal(t, preference.ModeRu, decode[map[string]preference.Mode](t, rec)["mode"])
	_, ok = app.prefs.Stored(context.Background(), userID)
	assert.False(t, ok)
}

func TestTranslate(t *testing.T) {
	app := newTestApp(t)
	req := service.TranslateRequest{Text: "privet", SourceLang: "ru", TargetLang: "ko"}

	rec := app.do(t, http.MethodPost, "/api/v1/translate", "", req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := app.signup(t, "translator")
	rec = app.do(t, http.MethodPost, "/api/v1/translate", token, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PRIVET@ko", decode[translator.Result](t, rec).TranslatedText)

	rec = app.do(t, http.MethodPost, "/api/v1/translate", token, service.TranslateRequest{Text: "x", TargetLang: "en"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_Translation(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "hana")
	post := app.createPost(t, token, service.CreatePostRequest{
		Title: "안녕", Content: "내용", SourceLang: "ko", CategorySlug: "free", AutoTranslate: true,
	})
	jobs := app.jobs.All()
	require.Len(t, jobs, 1)

	result := translator.ExternalResult{
		JobID:  jobs[0].ID,
		Fields: map[model.PostField]string{
			model.FieldTitle:   "Привет",
			model.FieldContent: `<p>Текст</p><img src=x onerror=alert(1)><script>alert(2)</script>`,
		},
	}
	withSecret := func(secret string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("X-Webhook-Secret", secret) }
	}

	rec := app.do(t, http.MethodPost, "/api/v1/webhook/translation", "", result, withSecret("wrong"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/v1/webhook/translation", "", result, withSecret(testWebhookSecret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())

	stored, ok := app.posts.Get(post.ID)
	require.True(t, ok)
	require.NotNil(t, stored.TranslatedTitleRu)
	assert.Equal(t, "Привет", *stored.TranslatedTitleRu)
	assert.Nil(t, stored.TranslatedTitleKo)
	require.NotNil(t, stored.TranslatedContentRu)
	assert.NotContains(t, *stored.TranslatedContentRu, "<script")
	assert.NotContains(t, *stored.TranslatedContentRu, "onerror")
	assert.Contains(t, *stored.TranslatedContentRu, "<p>Текст</p>")
}
