// Package preference owns the viewer's language display mode: where it is
// stored, how it is published to renderers, and how it is enforced on a
// render surface of tagged nodes.
package preference

import (
	"errors"
	"strings"

	"hanru_board/internal/domain/model"
)

// Mode is the viewer's language display setting.
type Mode string

const (
	ModeKo   Mode = "ko"
	ModeRu   Mode = "ru"
	ModeBoth Mode = "both"

	DefaultMode = ModeKo
)

// ErrInvalidMode is returned for a mode other than ko, ru or both.
var ErrInvalidMode = errors.New("invalid display mode")

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeKo || m == ModeRu || m == ModeBoth
}

// ParseMode normalises s and reports whether it names a known mode.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

// Language is the single language a mode renders in. Both mode reports false.
func (m Mode) Language() (model.Language, bool) {
	switch m {
	case ModeKo:
		return model.LangKo, true
	case ModeRu:
		return model.LangRu, true
	}
	return "", false
}

// Visibility of a tagged node.
type Visibility int

const (
	Visible Visibility = iota
	// Collapsed nodes are hidden and take no layout space.
	Collapsed
)

func (v Visibility) String() string {
	if v == Collapsed {
		return "collapsed"
	}
	return "visible"
}

// VisibilityFor maps a mode to the visibility of a node written in lang.
func VisibilityFor(m Mode, lang model.Language) Visibility {
	switch m {
	case ModeKo:
		if lang == model.LangKo {
			return Visible
		}
		return Collapsed
	case ModeRu:
		if lang == model.LangRu {
			return Visible
		}
		return Collapsed
	default:
		return Visible
	}
}
