package model

import "time"

type LayoutType string
type PermissionLevel string

const (
	LayoutList    LayoutType = "list"
	LayoutGallery LayoutType = "gallery"
	LayoutCard    LayoutType = "card"
	LayoutGrid    LayoutType = "grid"
	LayoutForm    LayoutType = "form"

	PermissionAll   PermissionLevel = "all"
	PermissionUser  PermissionLevel = "user"
	PermissionAdmin PermissionLevel = "admin"
)

// NoticeCategorySlug is readable anonymously and writable by staff only.
const NoticeCategorySlug = "notice"

type Category struct {
	ID              string          `json:"id"`
	ParentID        *string         `json:"parent_id,omitempty"`
	Slug            string          `json:"slug"`
	NameKo          string          `json:"name_ko"`
	NameRu          string          `json:"name_ru"`
	DescriptionKo   string          `json:"description_ko"`
	DescriptionRu   string          `json:"description_ru"`
	Icon            string          `json:"icon,omitempty"`
	SortOrder       int             `json:"sort_order"`
	IsActive        bool            `json:"is_active"`
	LayoutType      LayoutType      `json:"layout_type"`
	ReadPermission  PermissionLevel `json:"read_permission"`
	WritePermission PermissionLevel `json:"write_permission"`
	IsGroup         bool            `json:"is_group"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Allows reports whether a viewer with role (empty when anonymous) meets level.
func (l PermissionLevel) Allows(role string) bool {
	switch l {
	case PermissionAll, "":
		return true
	case PermissionUser:
		return role != ""
	case PermissionAdmin:
		return IsStaffRole(role)
	default:
		return false
	}
}
