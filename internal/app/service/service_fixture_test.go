package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"hanru_board/internal/domain/model"
	"hanru_board/internal/domain/repository/repotest"
	"hanru_board/internal/platform/queue"
	"hanru_board/internal/platform/translator"
	"hanru_board/internal/preference"
)

const testQueue = "translations"

type suffixTranslator struct{}

func (suffixTranslator) Translate(_ context.Context, text string, _, target model.Language) (string, error) {
	return text + " [" + strings.ToUpper(string(target)) + "]", nil
}

type services struct {
	categories *repotest.Categories
	posts      *repotest.Posts
	jobs       *repotest.Jobs
	queue      *queue.MemoryQueue
	slots      *preference.MemorySlots

	translation *TranslationService
	post        *PostService
	category    *CategoryService
	prefs       *PreferenceService
	page        *PageService
}

func testCategories() []model.Category {
	return []model.Category{
		{ID: "c-notice", Slug: model.NoticeCategorySlug, NameKo: "공지사항", NameRu: "Объявления", IsActive: true,
			SortOrder: 1, LayoutType: model.LayoutList, ReadPermission: model.PermissionAll, WritePermission: model.PermissionAdmin},
		{ID: "c-free", Slug: "free", NameKo: "자유게시판", NameRu: "Свободная тема", IsActive: true,
			SortOrder: 2, LayoutType: model.LayoutList, ReadPermission: model.PermissionAll, WritePermission: model.PermissionUser},
		{ID: "c-staff", Slug: "staff", NameKo: "운영진", NameRu: "", IsActive: true,
			SortOrder: 3, LayoutType: model.LayoutList, ReadPermission: model.PermissionAdmin, WritePermission: model.PermissionAdmin},
		{ID: "c-group", Slug: "community", NameKo: "커뮤니티", NameRu: "Сообщество", IsActive: true, IsGroup: true, SortOrder: 0},
		{ID: "c-old", Slug: "archive", NameKo: "보관", NameRu: "Архив", IsActive: false, SortOrder: 9},
	}
}

func newServices(t *testing.T) *services {
	t.Helper()
	s := &services{
		categories: repotest.NewCategories(testCategories()...),
		jobs:       repotest.NewJobs(),
		queue:      queue.NewMemoryQueue(16),
		slots:      preference.NewMemorySlots(),
	}
	s.posts = repotest.NewPosts(s.categories)
	cached := translator.NewCached(suffixTranslator{}, nil, time.Hour)
	s.translation = NewTranslationService(s.jobs, s.posts, s.queue, testQueue, cached, repotest.Transactor{})
	s.post = NewPostService(s.posts, s.categories, s.translation, repotest.Transactor{})
	s.category = NewCategoryService(s.categories)
	s.prefs = NewPreferenceService(s.slots, []time.Duration{5 * time.Millisecond})
	s.page = NewPageService(s.post, s.category, s.prefs)
	return s
}

var (
	anonymous = Viewer{ID: "anon-1", Mode: preference.ModeKo}
	member    = Viewer{ID: "u-1", UserID: "u-1", Role: model.RoleUser, Mode: preference.ModeKo}
	other     = Viewer{ID: "u-2", UserID: "u-2", Role: model.RoleUser, Mode: preference.ModeKo}
	moderator = Viewer{ID: "m-1", UserID: "m-1", Role: model.RoleModerator, Mode: preference.ModeKo}
)

func withMode(v Viewer, m preference.Mode) Viewer {
	v.Mode = m
	return v
}
