package service

import (
	"context"

	"hanru_board/internal/bilingual"
	"hanru_board/internal/common"
	"hanru_board/internal/domain/model"
	"hanru_board/internal/domain/repository"
	"hanru_board/internal/render"
)

type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

// LocalizedText is a category label in one language.
type LocalizedText struct {
	Lang        model.Language `json:"lang"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
}

type CategoryView struct {
	ID              string                `json:"id"`
	ParentID        *string               `json:"parent_id,omitempty"`
	Slug            string                `json:"slug"`
	Icon            string                `json:"icon,omitempty"`
	SortOrder       int                   `json:"sort_order"`
	LayoutType      model.LayoutType      `json:"layout_type"`
	ReadPermission  model.PermissionLevel `json:"read_permission"`
	WritePermission model.PermissionLevel `json:"write_permission"`
	IsGroup         bool                  `json:"is_group"`
	Labels          []LocalizedText       `json:"labels"`
}

func categoryLabels(c *model.Category) (name, description bilingual.Label) {
	return bilingual.Label{Ko: c.NameKo, Ru: c.NameRu},
		bilingual.Label{Ko: c.DescriptionKo, Ru: c.DescriptionRu}
}

func newCategoryView(c *model.Category, viewer Viewer) CategoryView {
	name, desc := categoryLabels(c)
	v := CategoryView{
		ID:              c.ID,
		ParentID:        c.ParentID,
		Slug:            c.Slug,
		Icon:            c.Icon,
		SortOrder:       c.SortOrder,
		LayoutType:      c.LayoutType,
		ReadPermission:  c.ReadPermission,
		WritePermission: c.WritePermission,
		IsGroup:         c.IsGroup,
	}
	for _, lang := range viewer.languages() {
		v.Labels = append(v.Labels, LocalizedText{Lang: lang, Name: name.In(lang), Description: desc.In(lang)})
	}
	return v
}

func (s *CategoryService) ListCategories(ctx context.Context, viewer Viewer) ([]CategoryView, error) {
	categories, err := s.categoryRepo.ListCategories(ctx, true)
	if err != nil {
		return nil, common.Errorf("failed to list categories: %w", err)
	}
	views := make([]CategoryView, 0, len(categories))
	for i := range categories {
		views = append(views, newCategoryView(&categories[i], viewer))
	}
	return views, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, viewer Viewer, slug string) (*CategoryView, error) {
	c, err := s.categoryRepo.FindCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, common.Errorf("category %s: %w", slug, err)
	}
	if !c.IsActive {
		return nil, common.Errorf("category %s: %w", slug, common.ErrNotFound)
	}
	v := newCategoryView(c, viewer)
	return &v, nil
}

// SidebarItems lists the navigable categories with both labels for tagged rendering.
func (s *CategoryService) SidebarItems(ctx context.Context) ([]render.SidebarItem, error) {
	categories, err := s.categoryRepo.ListCategories(ctx, true)
	if err != nil {
		return nil, common.Errorf("failed to list categories: %w", err)
	}
	items := make([]render.SidebarItem, 0, len(categories))
	for i := range categories {
		if categories[i].IsGroup {
			continue
		}
		name, _ := categoryLabels(&categories[i])
		items = append(items, render.SidebarItem{Slug: categories[i].Slug, Label: name})
	}
	return items, nil
}
