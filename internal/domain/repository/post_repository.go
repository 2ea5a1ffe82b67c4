package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hanru_board/internal/common"
	"hanru_board/internal/common/sanitize"
	"hanru_board/internal/domain/model"
)

type PostFilter struct {
	CategoryID   string
	CategorySlug string
	UserID       string
	Status       model.PostStatus
	Limit        int
	Offset       int
}

type PostRepository interface {
	CreatePost(ctx context.Context, tx *sql.Tx, post *model.Post) error
	FindPostByID(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]model.Post, int, error)
	UpdatePost(ctx context.Context, tx *sql.Tx, post *model.Post) error
	SoftDeletePost(ctx context.Context, id string) error
	IncrementViewCount(ctx context.Context, id string) error
	// ApplyTranslation fills empty target-language slots only and returns how many were written.
	ApplyTranslation(ctx context.Context, tx *sql.Tx, postID string, target model.Language, values map[model.PostField]string) (int, error)
	ClearTranslations(ctx context.Context, tx *sql.Tx, postID string, fields []model.PostField) error
}

type pgPostRepository struct {
	db *sql.DB
}

func NewPgPostRepository(db *sql.DB) PostRepository {
	return &pgPostRepository{db: db}
}

const postColumns = `p.id, p.user_id, p.category_id, p.title, p.content, p.summary, p.source_lang,
	p.translated_title_ko, p.translated_title_ru, p.translated_content_ko, p.translated_content_ru,
	p.translated_summary_ko, p.translated_summary_ru, p.auto_translated, p.tags, p.status, p.is_pinned,
	p.allow_comments, p.view_count, p.slug, p.created_at, p.updated_at, p.published_at,
	u.nickname, c.slug`

const postFrom = ` FROM posts p
	JOIN users u ON u.id = p.user_id
	JOIN categories c ON c.id = p.category_id`

func scanPost(row rowScanner, p *model.Post) error {
	var tags []byte
	var nickname, categorySlug sql.NullString
	err := row.Scan(&p.ID, &p.UserID, &p.CategoryID, &p.Title, &p.Content, &p.Summary, &p.SourceLang,
		&p.TranslatedTitleKo, &p.TranslatedTitleRu, &p.TranslatedContentKo, &p.TranslatedContentRu,
		&p.TranslatedSummaryKo, &p.TranslatedSummaryRu, &p.AutoTranslated, &tags, &p.Status, &p.IsPinned,
		&p.AllowComments, &p.ViewCount, &p.Slug, &p.CreatedAt, &p.UpdatedAt, &p.PublishedAt,
		&nickname, &categorySlug)
	if err != nil {
		return err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return fmt.Errorf("decode tags: %w", err)
		}
	}
	if nickname.Valid {
		p.AuthorNickname = &nickname.String
	}
	if categorySlug.Valid {
		p.CategorySlug = &categorySlug.String
	}
	return nil
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(tags)
}

func (r *pgPostRepository) CreatePost(ctx context.Context, tx *sql.Tx, post *model.Post) error {
	tags, err := encodeTags(post.Tags)
	if err != nil {
		return fmt.Errorf("pgPostRepository.CreatePost tags: %w", err)
	}
	query := `INSERT INTO posts (id, user_id, category_id, title, content, summary, source_lang, tags, status,
	          is_pinned, allow_comments, slug, published_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          RETURNING created_at, updated_at`
	err = conn(r.db, tx).QueryRowContext(ctx, query,
		post.ID, post.UserID, post.CategoryID, post.Title, post.Content, post.Summary, post.SourceLang, tags, post.Status,
		post.IsPinned, post.AllowComments, post.Slug, post.PublishedAt,
	).Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("post with slug '%s' already exists: %w", post.Slug, common.ErrConflict)
		}
		return fmt.Errorf("pgPostRepository.CreatePost: %w", err)
	}
	return nil
}

func (r *pgPostRepository) FindPostByID(ctx context.Context, id string) (*model.Post, error) {
	query := `SELECT ` + postColumns + postFrom + ` WHERE p.id = $1 AND p.deleted_at IS NULL`
	post := &model.Post{}
	if err := scanPost(r.db.QueryRowContext(ctx, query, id), post); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgPostRepository.FindPostByID: %w", err)
	}
	return post, nil
}

func (r *pgPostRepository) ListPosts(ctx context.Context, filter PostFilter) ([]model.Post, int, error) {
	where := []string{"p.deleted_at IS NULL"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.CategoryID != "" {
		add("p.category_id = $%d", filter.CategoryID)
	}
	if filter.CategorySlug != "" {
		add("c.slug = $%d", filter.CategorySlug)
	}
	if filter.UserID != "" {
		add("p.user_id = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("p.status = $%d", filter.Status)
	}
	whereSQL := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+postFrom+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgPostRepository.ListPosts count: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + postColumns + postFrom + whereSQL +
		fmt.Sprintf(` ORDER BY p.is_pinned DESC, p.created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgPostRepository.ListPosts query: %w", err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		var p model.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, 0, fmt.Errorf("pgPostRepository.ListPosts scan: %w", err)
		}
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgPostRepository.ListPosts rows.Err: %w", err)
	}
	return posts, total, nil
}

func (r *pgPostRepository) UpdatePost(ctx context.Context, tx *sql.Tx, post *model.Post) error {
	tags, err := encodeTags(post.Tags)
	if err != nil {
		return fmt.Errorf("pgPostRepository.UpdatePost tags: %w", err)
	}
	query := `UPDATE posts SET title = $2, content = $3, summary = $4, category_id = $5, tags = $6, status = $7,
	          is_pinned = $8, allow_comments = $9, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 AND deleted_at IS NULL
	          RETURNING updated_at`
	err = conn(r.db, tx).QueryRowContext(ctx, query,
		post.ID, post.Title, post.Content, post.Summary, post.CategoryID, tags, post.Status, post.IsPinned, post.AllowComments,
	).Scan(&post.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("pgPostRepository.UpdatePost: %w", err)
	}
	return nil
}

func (r *pgPostRepository) SoftDeletePost(ctx context.Context, id string) error {
	query := `UPDATE posts SET status = $2, deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, model.PostDeleted)
	if err != nil {
		return fmt.Errorf("pgPostRepository.SoftDeletePost: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgPostRepository) IncrementViewCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE posts SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgPostRepository.IncrementViewCount: %w", err)
	}
	return nil
}

// translatedColumn maps a field and language to its column. Column names are
// never built from caller input.
func translatedColumn(field model.PostField, lang model.Language) (string, bool) {
	if !lang.Valid() {
		return "", false
	}
	switch field {
	case model.FieldTitle, model.FieldContent, model.FieldSummary:
		return "translated_" + string(field) + "_" + string(lang), true
	}
	return "", false
}

func (r *pgPostRepository) ApplyTranslation(ctx context.Context, tx *sql.Tx, postID string, target model.Language, values map[model.PostField]string) (int, error) {
	db := conn(r.db, tx)
	values = sanitize.Fields(values)
	written := 0
	for _, field := range model.PostFields {
		value, ok := values[field]
		if !ok {
			continue
		}
		col, ok := translatedColumn(field, target)
		if !ok {
			return written, fmt.Errorf("unknown translation slot %s/%s: %w", field, target, common.ErrBadRequest)
		}
		query := `UPDATE posts SET ` + col + ` = $2, auto_translated = TRUE, updated_at = CURRENT_TIMESTAMP
		          WHERE id = $1 AND ` + col + ` IS NULL AND source_lang <> $3 AND deleted_at IS NULL`
		res, err := db.ExecContext(ctx, query, postID, value, target)
		if err != nil {
			return written, fmt.Errorf("pgPostRepository.ApplyTranslation %s: %w", col, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return written, fmt.Errorf("pgPostRepository.ApplyTranslation rows affected: %w", err)
		}
		written += int(n)
	}
	return written, nil
}

func (r *pgPostRepository) ClearTranslations(ctx context.Context, tx *sql.Tx, postID string, fields []model.PostField) error {
	var sets []string
	for _, field := range fields {
		for _, lang := range []model.Language{model.LangKo, model.LangRu} {
			if col, ok := translatedColumn(field, lang); ok {
				sets = append(sets, col+" = NULL")
			}
		}
	}
	if len(sets) == 0 {
		return nil
	}
	query := `UPDATE posts SET ` + strings.Join(sets, ", ") + `, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, postID); err != nil {
		return fmt.Errorf("pgPostRepository.ClearTranslations: %w", err)
	}
	return nil
}
