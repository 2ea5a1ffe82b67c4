package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hanru_board/internal/common"
	"hanru_board/internal/domain/model"
)

type CategoryRepository interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]model.Category, error)
	FindCategoryByID(ctx context.Context, id string) (*model.Category, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*model.Category, error)
}

type pgCategoryRepository struct {
	db *sql.DB
}

func NewPgCategoryRepository(db *sql.DB) CategoryRepository {
	return &pgCategoryRepository{db: db}
}

const categoryColumns = `id, parent_id, slug, name_ko, name_ru, description_ko, description_ru, icon,
	sort_order, is_active, layout_type, read_permission, write_permission, is_group, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner, c *model.Category) error {
	return row.Scan(&c.ID, &c.ParentID, &c.Slug, &c.NameKo, &c.NameRu, &c.DescriptionKo, &c.DescriptionRu, &c.Icon,
		&c.SortOrder, &c.IsActive, &c.LayoutType, &c.ReadPermission, &c.WritePermission, &c.IsGroup, &c.CreatedAt, &c.UpdatedAt)
}

func (r *pgCategoryRepository) ListCategories(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY sort_order ASC, slug ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgCategoryRepository.ListCategories query: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, fmt.Errorf("pgCategoryRepository.ListCategories scan: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgCategoryRepository.ListCategories rows.Err: %w", err)
	}
	return categories, nil
}

func (r *pgCategoryRepository) FindCategoryByID(ctx context.Context, id string) (*model.Category, error) {
	return r.findOne(ctx, "FindCategoryByID", `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
}

func (r *pgCategoryRepository) FindCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	return r.findOne(ctx, "FindCategoryBySlug", `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug)
}

func (r *pgCategoryRepository) findOne(ctx context.Context, op, query string, arg any) (*model.Category, error) {
	c := &model.Category{}
	if err := scanCategory(r.db.QueryRowContext(ctx, query, arg), c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCategoryRepository.%s: %w", op, err)
	}
	return c, nil
}
