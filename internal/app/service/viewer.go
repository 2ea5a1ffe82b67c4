package service

import (
	"hanru_board/internal/domain/model"
	"hanru_board/internal/preference"
)

// Viewer is who is looking at content and how they want it shown.
type Viewer struct {
	ID     string // user id when signed in, otherwise the anonymous viewer id
	UserID string
	Role   string

	Mode preference.Mode
	// ModeExplicit marks a mode chosen for this request only (query string).
	// Mode is already resolved either way and is never written back.
	ModeExplicit  bool
	ForceOriginal bool
}

func (v Viewer) Anonymous() bool {
	return v.UserID == ""
}

func (v Viewer) IsStaff() bool {
	return model.IsStaffRole(v.Role)
}

// languages lists the languages v's mode renders, Korean first.
func (v Viewer) languages() []model.Language {
	if l, ok := v.Mode.Language(); ok {
		return []model.Language{l}
	}
	return []model.Language{model.LangKo, model.LangRu}
}
