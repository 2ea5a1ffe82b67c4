package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"

	"hanru_board/internal/bilingual"
	"hanru_board/internal/common"
	"hanru_board/internal/common/sanitize"
	"hanru_board/internal/domain/model"
	"hanru_board/internal/domain/repository"
	"hanru_board/internal/preference"
)

const (
	maxTitleLength   = 255
	maxSummaryLength = 500
	maxSlugBase      = 50
	defaultPageSize  = 20
	maxPageSize      = 100
)

type PostService struct {
	postRepo     repository.PostRepository
	categoryRepo repository.CategoryRepository
	translations *TranslationService
	tx           repository.Transactor
}

func NewPostService(
	postRepo repository.PostRepository,
	categoryRepo repository.CategoryRepository,
	translations *TranslationService,
	tx repository.Transactor,
) *PostService {
	return &PostService{
		postRepo:     postRepo,
		categoryRepo: categoryRepo,
		translations: translations,
		tx:           tx,
	}
}

type CreatePostRequest struct {
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Summary       *string  `json:"summary,omitempty"`
	SourceLang    string   `json:"source_lang"`
	CategoryID    string   `json:"category_id,omitempty"`
	CategorySlug  string   `json:"category_slug,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	AllowComments *bool    `json:"allow_comments,omitempty"`
	AutoTranslate bool     `json:"auto_translate"`
}

type UpdatePostRequest struct {
	Title         *string           `json:"title,omitempty"`
	Content       *string           `json:"content,omitempty"`
	Summary       *string           `json:"summary,omitempty"`
	CategoryID    *string           `json:"category_id,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	Status        *model.PostStatus `json:"status,omitempty"`
	IsPinned      *bool             `json:"is_pinned,omitempty"`
	AllowComments *bool             `json:"allow_comments,omitempty"`
	AutoTranslate bool              `json:"auto_translate"`
}

type ListPostsQuery struct {
	CategorySlug string
	Page         int
	PageSize     int
}

// PostView is a post as shown to one viewer: metadata plus one resolved
// rendering per language of the viewer's mode.
type PostView struct {
	ID             string               `json:"id"`
	Slug           string               `json:"slug"`
	CategoryID     string               `json:"category_id"`
	CategorySlug   *string              `json:"category_slug,omitempty"`
	UserID         string               `json:"user_id"`
	AuthorNickname *string              `json:"author_nickname,omitempty"`
	SourceLang     model.Language       `json:"source_lang"`
	Tags           []string             `json:"tags"`
	Status         model.PostStatus     `json:"status"`
	IsPinned       bool                 `json:"is_pinned"`
	AllowComments  bool                 `json:"allow_comments"`
	ViewCount      int                  `json:"view_count"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Mode           preference.Mode      `json:"mode"`
	Variants       []bilingual.Resolved `json:"variants"`
}

type PostPage struct {
	Items      []PostView `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

// PostEntity converts a stored post for the resolver. Translated slots in the
// post's own language are never carried over.
func PostEntity(p *model.Post) bilingual.Entity {
	e := bilingual.Entity{
		SourceLanguage: p.SourceLang,
		Original: bilingual.Variant{
			bilingual.Title:   p.Title,
			bilingual.Content: p.Content,
		},
		AutoTranslated: p.AutoTranslated,
	}
	if p.Summary != nil {
		e.Original[bilingual.Summary] = *p.Summary
	}
	for _, lang := range []model.Language{model.LangKo, model.LangRu} {
		if lang == p.SourceLang {
			continue
		}
		v := bilingual.Variant{}
		for _, f := range model.PostFields {
			if s := p.TranslatedSlot(f, lang); s != nil {
				v[bilingual.Field(f)] = *s
			}
		}
		if lang == model.LangKo {
			e.TranslatedKo = v
		} else {
			e.TranslatedRu = v
		}
	}
	return e
}

func newPostView(p *model.Post, viewer Viewer) (PostView, error) {
	variants, err := bilingual.ResolveMode(PostEntity(p), string(viewer.Mode), viewer.ForceOriginal)
	if err != nil {
		return PostView{}, common.Errorf("post %s: %w", p.ID, err)
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return PostView{
		ID:             p.ID,
		Slug:           p.Slug,
		CategoryID:     p.CategoryID,
		CategorySlug:   p.CategorySlug,
		UserID:         p.UserID,
		AuthorNickname: p.AuthorNickname,
		SourceLang:     p.SourceLang,
		Tags:           tags,
		Status:         p.Status,
		IsPinned:       p.IsPinned,
		AllowComments:  p.AllowComments,
		ViewCount:      p.ViewCount,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Mode:           viewer.Mode,
		Variants:       variants,
	}, nil
}

func makePostSlug(title, id string) string {
	base := slug.Make(title)
	if len(base) > maxSlugBase {
		base = strings.Trim(base[:maxSlugBase], "-")
	}
	if base == "" {
		base = "post"
	}
	return base + "-" + strings.ReplaceAll(id, "-", "")[:8]
}

func cleanTitle(s string) (string, error) {
	s = sanitize.Text(s)
	if s == "" {
		return "", common.Errorf("title is required: %w", common.ErrValidation)
	}
	if len([]rune(s)) > maxTitleLength {
		return "", common.Errorf("title longer than %d characters: %w", maxTitleLength, common.ErrValidation)
	}
	return s, nil
}

func cleanContent(s string) (string, error) {
	s = sanitize.HTML(s)
	if s == "" {
		return "", common.Errorf("content is required: %w", common.ErrValidation)
	}
	return s, nil
}

func cleanSummary(s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	out := sanitize.Text(*s)
	if out == "" {
		return nil, nil
	}
	if len([]rune(out)) > maxSummaryLength {
		return nil, common.Errorf("summary longer than %d characters: %w", maxSummaryLength, common.ErrValidation)
	}
	return &out, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = sanitize.Text(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// canWrite reports whether viewer may post into c. Notices are staff only.
func canWrite(c *model.Category, viewer Viewer) bool {
	if c.Slug == model.NoticeCategorySlug && !viewer.IsStaff() {
		return false
	}
	return c.WritePermission.Allows(viewer.Role)
}

// canRead applies the anonymous rule (notices only) and the category read level.
func canRead(c *model.Category, viewer Viewer) error {
	if viewer.Anonymous() && c.Slug != model.NoticeCategorySlug {
		return common.Errorf("sign in to read this post: %w", common.ErrUnauthorized)
	}
	if !c.ReadPermission.Allows(viewer.Role) {
		return common.Errorf("category %s is restricted: %w", c.Slug, common.ErrForbidden)
	}
	return nil
}

func (s *PostService) resolveCategory(ctx context.Context, id, slugValue string) (*model.Category, error) {
	switch {
	case id != "":
		return s.categoryRepo.FindCategoryByID(ctx, id)
	case slugValue != "":
		return s.categoryRepo.FindCategoryBySlug(ctx, slugValue)
	default:
		return nil, common.Errorf("category_id or category_slug is required: %w", common.ErrBadRequest)
	}
}

func (s *PostService) CreatePost(ctx context.Context, viewer Viewer, req CreatePostRequest) (*model.Post, error) {
	if viewer.Anonymous() {
		return nil, common.ErrUnauthorized
	}
	sourceLang, ok := model.ParseLanguage(req.SourceLang)
	if !ok {
		return nil, common.Errorf("source_lang must be ko or ru: %w", common.ErrValidation)
	}
	title, err := cleanTitle(req.Title)
	if err != nil {
		return nil, err
	}
	content, err := cleanContent(req.Content)
	if err != nil {
		return nil, err
	}
	summary, err := cleanSummary(req.Summary)
	if err != nil {
		return nil, err
	}

	category, err := s.resolveCategory(ctx, req.CategoryID, req.CategorySlug)
	if err != nil {
		return nil, common.Errorf("category not found: %w", err)
	}
	if !canWrite(category, viewer) {
		return nil, common.Errorf("writing to %s requires a higher role: %w", category.Slug, common.ErrForbidden)
	}

	now := time.Now().UTC()
	allowComments := true
	if req.AllowComments != nil {
		allowComments = *req.AllowComments
	}
	post := &model.Post{
		ID:            uuid.NewString(),
		UserID:        viewer.UserID,
		CategoryID:    category.ID,
		Title:         title,
		Content:       content,
		Summary:       summary,
		SourceLang:    sourceLang,
		Tags:          cleanTags(req.Tags),
		Status:        model.PostPublished,
		AllowComments: allowComments,
		PublishedAt:   &now,
	}
	post.Slug = makePostSlug(post.Title, post.ID)
	post.CategorySlug = &category.Slug

	var job *model.TranslationJob
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.postRepo.CreatePost(ctx, tx, post); err != nil {
			return common.Errorf("failed to create post: %w", err)
		}
		if req.AutoTranslate {
			j, err := s.translations.CreatePostJob(ctx, tx, post, nil)
			if err != nil {
				return common.Errorf("failed to create translation job: %w", err)
			}
			job = j
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if job != nil {
		s.translations.Publish(ctx, job)
	}

	log.Info().Str("post_id", post.ID).Str("category", category.Slug).Str("source_lang", string(sourceLang)).
		Bool("auto_translate", req.AutoTranslate).Msg("Post created")
	return post, nil
}

func (s *PostService) ListPosts(ctx context.Context, viewer Viewer, q ListPostsQuery) (*PostPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	posts, total, err := s.postRepo.ListPosts(ctx, repository.PostFilter{
		CategorySlug: q.CategorySlug,
		Status:       model.PostPublished,
		Limit:        size,
		Offset:       (page - 1) * size,
	})
	if err != nil {
		return nil, common.Errorf("failed to list posts: %w", err)
	}

	items := make([]PostView, 0, len(posts))
	for i := range posts {
		v, err := newPostView(&posts[i], viewer)
		if err != nil {
			// one broken row should not hide the page
			log.Error().Err(err).Str("post_id", posts[i].ID).Msg("Skipping unresolvable post")
			continue
		}
		items = append(items, v)
	}
	return &PostPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
	}, nil
}

// loadReadable fetches a post and checks viewer may read it.
func (s *PostService) loadReadable(ctx context.Context, viewer Viewer, id string) (*model.Post, error) {
	post, err := s.postRepo.FindPostByID(ctx, id)
	if err != nil {
		return nil, common.Errorf("post %s: %w", id, err)
	}
	category, err := s.categoryRepo.FindCategoryByID(ctx, post.CategoryID)
	if err != nil {
		return nil, common.Errorf("category of post %s: %w", id, err)
	}
	if err := canRead(category, viewer); err != nil {
		return nil, err
	}
	if post.Status != model.PostPublished && post.UserID != viewer.UserID && !viewer.IsStaff() {
		return nil, common.Errorf("post %s: %w", id, common.ErrNotFound)
	}
	if post.CategorySlug == nil {
		post.CategorySlug = &category.Slug
	}
	return post, nil
}

// GetPost resolves a post for viewer and counts the view.
func (s *PostService) GetPost(ctx context.Context, viewer Viewer, id string) (*PostView, error) {
	post, err := s.loadReadable(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.IncrementViewCount(ctx, post.ID); err != nil {
		log.Warn().Err(err).Str("post_id", post.ID).Msg("Failed to increment view count")
	} else {
		post.ViewCount++
	}
	v, err := newPostView(post, viewer)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PostService) authorize(ctx context.Context, viewer Viewer, post *model.Post) error {
	if viewer.Anonymous() {
		return common.ErrUnauthorized
	}
	category, err := s.categoryRepo.FindCategoryByID(ctx, post.CategoryID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return common.Errorf("category of post %s: %w", post.ID, err)
	}
	if category != nil && category.Slug == model.NoticeCategorySlug && !viewer.IsStaff() {
		return common.Errorf("notices are managed by staff: %w", common.ErrForbidden)
	}
	if post.UserID != viewer.UserID && !viewer.IsStaff() {
		return common.Errorf("only the author may change this post: %w", common.ErrForbidden)
	}
	return nil
}

func (s *PostService) UpdatePost(ctx context.Context, viewer Viewer, id string, req UpdatePostRequest) (*model.Post, error) {
	post, err := s.postRepo.FindPostByID(ctx, id)
	if err != nil {
		return nil, common.Errorf("post %s: %w", id, err)
	}
	if err := s.authorize(ctx, viewer, post); err != nil {
		return nil, err
	}

	var edited []model.PostField
	if req.Title != nil {
		title, err := cleanTitle(*req.Title)
		if err != nil {
			return nil, err
		}
		if title != post.Title {
			post.Title = title
			edited = append(edited, model.FieldTitle)
		}
	}
	if req.Content != nil {
		content, err := cleanContent(*req.Content)
		if err != nil {
			return nil, err
		}
		if content != post.Content {
			post.Content = content
			edited = append(edited, model.FieldContent)
		}
	}
	if req.Summary != nil {
		summary, err := cleanSummary(req.Summary)
		if err != nil {
			return nil, err
		}
		if !equalStringPtr(summary, post.Summary) {
			post.Summary = summary
			edited = append(edited, model.FieldSummary)
		}
	}
	if req.CategoryID != nil && *req.CategoryID != post.CategoryID {
		category, err := s.categoryRepo.FindCategoryByID(ctx, *req.CategoryID)
		if err != nil {
			return nil, common.Errorf("category not found: %w", err)
		}
		if !canWrite(category, viewer) {
			return nil, common.Errorf("writing to %s requires a higher role: %w", category.Slug, common.ErrForbidden)
		}
		post.CategoryID = category.ID
		post.CategorySlug = &category.Slug
	}
	if req.Tags != nil {
		post.Tags = cleanTags(req.Tags)
	}
	if req.Status != nil {
		switch *req.Status {
		case model.PostDraft, model.PostPublished, model.PostHidden:
			post.Status = *req.Status
		default:
			return nil, common.Errorf("status %q cannot be set: %w", *req.Status, common.ErrValidation)
		}
	}
	if req.IsPinned != nil {
		if !viewer.IsStaff() {
			return nil, common.Errorf("only staff may pin posts: %w", common.ErrForbidden)
		}
		post.IsPinned = *req.IsPinned
	}
	if req.AllowComments != nil {
		post.AllowComments = *req.AllowComments
	}

	var job *model.TranslationJob
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.postRepo.UpdatePost(ctx, tx, post); err != nil {
			return common.Errorf("failed to update post: %w", err)
		}
		if len(edited) == 0 {
			return nil
		}
		// translations of the old text are stale
		if err := s.postRepo.ClearTranslations(ctx, tx, post.ID, edited); err != nil {
			return common.Errorf("failed to clear stale translations: %w", err)
		}
		for _, f := range edited {
			post.ClearTranslated(f)
		}
		if req.AutoTranslate {
			j, err := s.translations.CreatePostJob(ctx, tx, post, edited)
			if err != nil {
				return common.Errorf("failed to create translation job: %w", err)
			}
			job = j
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if job != nil {
		s.translations.Publish(ctx, job)
	}
	log.Info().Str("post_id", post.ID).Int("edited_fields", len(edited)).Msg("Post updated")
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, viewer Viewer, id string) error {
	post, err := s.postRepo.FindPostByID(ctx, id)
	if err != nil {
		return common.Errorf("post %s: %w", id, err)
	}
	if err := s.authorize(ctx, viewer, post); err != nil {
		return err
	}
	if err := s.postRepo.SoftDeletePost(ctx, post.ID); err != nil {
		return common.Errorf("failed to delete post: %w", err)
	}
	log.Info().Str("post_id", post.ID).Str("by", viewer.UserID).Msg("Post deleted")
	return nil
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
