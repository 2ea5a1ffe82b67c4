// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"hanru_board/internal/common"
	"hanru_board/internal/common/sanitize"
	"hanru_board/internal/domain/model"
	"hanru_board/internal/domain/repository"
)

var (
	_ repository.UserRepository           = (*Users)(nil)
	_ repository.CategoryRepository       = (*Categories)(nil)
	_ repository.PostRepository           = (*Posts)(nil)
	_ repository.TranslationJobRepository = (*Jobs)(nil)
	_ repository.Transactor               = Transactor{}
)

// Transactor runs fn without a transaction.
type Transactor struct{}

func (Transactor) WithinTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type Users struct {
	mu    sync.Mutex
	users map[string]model.User
}

func NewUsers() *Users {
	return &Users{users: make(map[string]model.User)}
}

func (r *Users) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return common.ErrConflict
		}
	}
	user.CreatedAt, user.UpdatedAt = time.Now(), time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *Users) find(match func(model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *Users) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r *Users) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Username == username })
}

func (r *Users) FindByID(_ context.Context, id string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == id })
}

type Categories struct {
	mu         sync.Mutex
	categories []model.Category
	// Err, when set, is returned by every call.
	Err error
}

func NewCategories(categories ...model.Category) *Categories {
	return &Categories{categories: categories}
}

func (r *Categories) ListCategories(_ context.Context, activeOnly bool) ([]model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []model.Category
	for _, c := range r.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *Categories) find(match func(model.Category) bool) (*model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, c := range r.categories {
		if match(c) {
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *Categories) FindCategoryByID(_ context.Context, id string) (*model.Category, error) {
	return r.find(func(c model.Category) bool { return c.ID == id })
}

func (r *Categories) FindCategoryBySlug(_ context.Context, slug string) (*model.Category, error) {
	return r.find(func(c model.Category) bool { return c.Slug == slug })
}

type Posts struct {
	mu         sync.Mutex
	posts      map[string]*model.Post
	categories *Categories
	Views      map[string]int
}

// NewPosts resolves category slugs through categories, which may be nil.
func NewPosts(categories *Categories) *Posts {
	return &Posts{posts: make(map[string]*model.Post), categories: categories, Views: make(map[string]int)}
}

func clonePost(p *model.Post) *model.Post {
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	return &c
}

// Put stores p as is, bypassing validation.
func (r *Posts) Put(p model.Post) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[p.ID] = clonePost(&p)
}

// Get returns the stored copy of id, including deleted posts.
func (r *Posts) Get(id string) (*model.Post, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, false
	}
	return clonePost(p), true
}

func (r *Posts) CreatePost(_ context.Context, _ *sql.Tx, post *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.Slug == post.Slug {
			return common.ErrConflict
		}
	}
	post.CreatedAt, post.UpdatedAt = time.Now(), time.Now()
	r.posts[post.ID] = clonePost(post)
	return nil
}

func (r *Posts) FindPostByID(_ context.Context, id string) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.Status == model.PostDeleted {
		return nil, common.ErrNotFound
	}
	return clonePost(p), nil
}

func (r *Posts) categorySlug(id string) string {
	if r.categories == nil {
		return ""
	}
	c, err := r.categories.FindCategoryByID(context.Background(), id)
	if err != nil {
		return ""
	}
	return c.Slug
}

func (r *Posts) ListPosts(_ context.Context, f repository.PostFilter) ([]model.Post, int, error) {
	r.mu.Lock()
	var matched []model.Post
	for _, p := range r.posts {
		if p.Status == model.PostDeleted {
			continue
		}
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		if f.UserID != "" && p.UserID != f.UserID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		matched = append(matched, *clonePost(p))
	}
	r.mu.Unlock()

	if f.CategorySlug != "" {
		kept := matched[:0]
		for _, p := range matched {
			if r.categorySlug(p.CategoryID) == f.CategorySlug {
				kept = append(kept, p)
			}
		}
		matched = kept
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].IsPinned != matched[j].IsPinned {
			return matched[i].IsPinned
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func (r *Posts) UpdatePost(_ context.Context, _ *sql.Tx, post *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.posts[post.ID]
	if !ok || cur.Status == model.PostDeleted {
		return common.ErrNotFound
	}
	cur.Title, cur.Content, cur.Summary = post.Title, post.Content, post.Summary
	cur.CategoryID, cur.Tags, cur.Status = post.CategoryID, append([]string(nil), post.Tags...), post.Status
	cur.IsPinned, cur.AllowComments = post.IsPinned, post.AllowComments
	cur.UpdatedAt = time.Now()
	post.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *Posts) SoftDeletePost(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.Status == model.PostDeleted {
		return common.ErrNotFound
	}
	p.Status = model.PostDeleted
	return nil
}

func (r *Posts) IncrementViewCount(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[id]; ok {
		p.ViewCount++
		r.Views[id]++
	}
	return nil
}

func slot(p *model.Post, f model.PostField, lang model.Language) **string {
	switch {
	case f == model.FieldTitle && lang == model.LangKo:
		return &p.TranslatedTitleKo
	case f == model.FieldTitle && lang == model.LangRu:
		return &p.TranslatedTitleRu
	case f == model.FieldContent && lang == model.LangKo:
		return &p.TranslatedContentKo
	case f == model.FieldContent && lang == model.LangRu:
		return &p.TranslatedContentRu
	case f == model.FieldSummary && lang == model.LangKo:
		return &p.TranslatedSummaryKo
	case f == model.FieldSummary && lang == model.LangRu:
		return &p.TranslatedSummaryRu
	}
	return nil
}

func (r *Posts) ApplyTranslation(_ context.Context, _ *sql.Tx, postID string, target model.Language, values map[model.PostField]string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok || p.Status == model.PostDeleted || p.SourceLang == target {
		return 0, nil
	}
	written := 0
	for f, v := range sanitize.Fields(values) {
		s := slot(p, f, target)
		if s == nil {
			return written, common.ErrBadRequest
		}
		if *s != nil {
			continue
		}
		val := v
		*s = &val
		p.AutoTranslated = true
		written++
	}
	return written, nil
}

func (r *Posts) ClearTranslations(_ context.Context, _ *sql.Tx, postID string, fields []model.PostField) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[postID]; ok {
		for _, f := range fields {
			p.ClearTranslated(f)
		}
	}
	return nil
}

type Jobs struct {
	mu   sync.Mutex
	jobs map[string]*model.TranslationJob
}

func NewJobs() *Jobs {
	return &Jobs{jobs: make(map[string]*model.TranslationJob)}
}

func (r *Jobs) CreateJob(_ context.Context, _ *sql.Tx, job *model.TranslationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job.CreatedAt, job.UpdatedAt = time.Now(), time.Now()
	c := *job
	r.jobs[job.ID] = &c
	return nil
}

func (r *Jobs) GetJobByID(_ context.Context, id string) (*model.TranslationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *j
	return &c, nil
}

func (r *Jobs) UpdateJobStatus(_ context.Context, _ *sql.Tx, jobID string, status string, lastError *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return common.ErrNotFound
	}
	j.Status, j.LastError, j.UpdatedAt = status, lastError, time.Now()
	return nil
}

func (r *Jobs) IncrementJobAttempts(_ context.Context, _ *sql.Tx, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[jobID]; ok {
		j.Attempts++
	}
	return nil
}

// All returns copies of every job.
func (r *Jobs) All() []model.TranslationJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.TranslationJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, *j)
	}
	return out
}
