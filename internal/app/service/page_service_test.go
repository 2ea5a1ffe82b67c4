package service

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hanru_board/internal/common"
	"hanru_board/internal/domain/model"
	"hanru_board/internal/preference"
)

func hidden(s *goquery.Selection) bool {
	_, ok := s.Attr("hidden")
	return ok
}

func renderPage(t *testing.T, s *services, viewer Viewer, id string) *goquery.Document {
	t.Helper()
	out, err := s.page.RenderPost(context.Background(), viewer, id)
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	return doc
}

func TestRenderPost_AppliesStoredMode(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	p := createFree(t, s, CreatePostRequest{Title: "제목", Content: "<p>본문</p>", SourceLang: "ko"})
	_, err := s.posts.ApplyTranslation(ctx, nil, p.ID, model.LangRu, map[model.PostField]string{
		model.FieldTitle: "Заголовок", model.FieldContent: "<p>Текст</p>",
	})
	require.NoError(t, err)

	// mode came from the cookie or Accept-Language; the slot is empty
	doc := renderPage(t, s, withMode(member, preference.ModeRu), p.ID)

	assert.Equal(t, "ru", doc.Find("body").AttrOr("data-lang", ""))
	ko := doc.Find("main#post article.korean-variant")
	ru := doc.Find("main#post article.russian-variant")
	require.Equal(t, 1, ko.Length())
	require.Equal(t, 1, ru.Length())
	assert.True(t, hidden(ko))
	assert.False(t, hidden(ru))
	assert.Equal(t, "Заголовок", ru.Find("h1").Text())
	assert.Equal(t, 1, ru.Find(".translation-badge").Length())

	// sidebar arrives separately and still gets the mode
	sidebarKo := doc.Find("aside#sidebar .korean-variant")
	require.Equal(t, 3, sidebarKo.Length())
	sidebarKo.Each(func(_ int, s *goquery.Selection) { assert.True(t, hidden(s)) })
	sidebarRu := doc.Find("aside#sidebar .russian-variant")
	sidebarRu.Each(func(_ int, s *goquery.Selection) {
		assert.False(t, hidden(s))
		assert.NotEmpty(t, strings.TrimSpace(s.Text()))
	})
	// staff has no Russian name and shows the Korean one
	staff := doc.Find(`aside#sidebar a[href="/categories/staff"]`)
	require.Equal(t, 1, staff.Length())
	assert.Equal(t, "운영진", staff.Find(".russian-variant").Text())

	_, ok := s.prefs.Stored(ctx, member.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, s.posts.Views[p.ID])
}

func TestRenderPost_KeepsSavedSlot(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	p := createFree(t, s, CreatePostRequest{Title: "제목", Content: "본문", SourceLang: "ko"})
	_, err := s.prefs.SetMode(ctx, member.ID, "both")
	require.NoError(t, err)

	doc := renderPage(t, s, withMode(member, preference.ModeKo), p.ID)

	assert.Equal(t, "ko", doc.Find("html").AttrOr("data-lang", ""))
	stored, ok := s.prefs.Stored(ctx, member.ID)
	require.True(t, ok)
	assert.Equal(t, preference.ModeBoth, stored)
}

func TestRenderPost_TranslatedMarkupIsSanitised(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	p := createFree(t, s, CreatePostRequest{Title: "제목", Content: "본문", SourceLang: "ko"})
	_, err := s.posts.ApplyTranslation(ctx, nil, p.ID, model.LangRu, map[model.PostField]string{
		model.FieldTitle:   "<b>Заголовок</b>",
		model.FieldContent: `<p>Текст</p><img src=x onerror=alert(1)><script>alert(2)</script>`,
	})
	require.NoError(t, err)

	out, err := s.page.RenderPost(ctx, withMode(member, preference.ModeRu), p.ID)
	require.NoError(t, err)

	assert.NotContains(t, out, "<script>alert(2)")
	assert.NotContains(t, out, "onerror")
	assert.Contains(t, out, "<p>Текст</p>")
	assert.NotContains(t, out, "&lt;b&gt;")
}

func TestRenderPost_BothShowsEverything(t *testing.T) {
	s := newServices(t)
	p := createFree(t, s, CreatePostRequest{Title: "Привет", Content: "Текст", SourceLang: "ru"})

	viewer := withMode(member, preference.ModeBoth)
	viewer.ModeExplicit = true
	doc := renderPage(t, s, viewer, p.ID)

	assert.Equal(t, "both", doc.Find("html").AttrOr("data-lang", ""))
	doc.Find(".korean-variant, .russian-variant").Each(func(_ int, s *goquery.Selection) {
		assert.False(t, hidden(s))
	})
	// explicit modes are not persisted
	_, ok := s.prefs.Stored(context.Background(), member.ID)
	assert.False(t, ok)
}

func TestRenderPost_ForceOriginalIsUntagged(t *testing.T) {
	s := newServices(t)
	p := createFree(t, s, CreatePostRequest{Title: "제목", Content: "본문", SourceLang: "ko"})

	viewer := withMode(member, preference.ModeRu)
	viewer.ModeExplicit = true
	viewer.ForceOriginal = true
	doc := renderPage(t, s, viewer, p.ID)

	articles := doc.Find("main#post article")
	require.Equal(t, 1, articles.Length())
	assert.False(t, hidden(articles))
	assert.Equal(t, "제목", articles.Find("h1").Text())
	assert.Equal(t, "ko", articles.AttrOr("lang", ""))
}

func TestRenderPost_AnonymousNeedsSignIn(t *testing.T) {
	s := newServices(t)
	p := createFree(t, s, CreatePostRequest{Title: "t", Content: "c"})

	_, err := s.page.RenderPost(context.Background(), anonymous, p.ID)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}
