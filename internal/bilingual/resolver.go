// Package bilingual decides which language variant of a piece of content is
// shown to a viewer. Everything here is pure: no I/O and no shared state.
package bilingual

import (
	"errors"
	"fmt"

	"hanru_board/internal/domain/model"
)

// ErrMalformedEntity is returned when an entity cannot be resolved without
// inventing content. The caller supplying the entity owns the fix.
var ErrMalformedEntity = errors.New("malformed bilingual entity")

type Field string

const (
	Title   Field = "title"
	Content Field = "content"
	Summary Field = "summary"
)

// Variant maps a field to its text. An empty string counts as absent.
type Variant map[Field]string

func (v Variant) get(f Field) (string, bool) {
	s, ok := v[f]
	return s, ok && s != ""
}

// Entity is one piece of user content with its authored text and the
// machine translations that have arrived so far.
type Entity struct {
	SourceLanguage model.Language
	Original       Variant
	TranslatedKo   Variant
	TranslatedRu   Variant
	AutoTranslated bool
}

func (e Entity) translated(lang model.Language) Variant {
	if lang == model.LangKo {
		return e.TranslatedKo
	}
	return e.TranslatedRu
}

// Viewer is the per-render request: which language to show and whether the
// viewer asked for the untranslated text.
type Viewer struct {
	RequestedLanguage model.Language
	ForceOriginal     bool
}

// Resolved is the display payload for one language.
type Resolved struct {
	Title           string         `json:"title"`
	Content         string         `json:"content"`
	Summary         *string        `json:"summary"`
	DisplayLanguage model.Language `json:"display_language"`
	IsTranslated    bool           `json:"is_translated"`
}

// Validate checks the fields Resolve cannot do without.
func Validate(e Entity) error {
	if !e.SourceLanguage.Valid() {
		return fmt.Errorf("source language %q: %w", e.SourceLanguage, ErrMalformedEntity)
	}
	if _, ok := e.Original.get(Title); !ok {
		return fmt.Errorf("original title missing: %w", ErrMalformedEntity)
	}
	if _, ok := e.Original.get(Content); !ok {
		return fmt.Errorf("original content missing: %w", ErrMalformedEntity)
	}
	return nil
}

// Resolve picks, field by field, the text to show for v.
func Resolve(e Entity, v Viewer) (Resolved, error) {
	if err := Validate(e); err != nil {
		return Resolved{}, err
	}

	if v.ForceOriginal || v.RequestedLanguage == e.SourceLanguage {
		return original(e), nil
	}
	if !v.RequestedLanguage.Valid() {
		return Resolved{}, fmt.Errorf("requested language %q: %w", v.RequestedLanguage, ErrMalformedEntity)
	}

	translated := e.translated(v.RequestedLanguage)
	usedTranslation := false
	pick := func(f Field) (string, bool) {
		if s, ok := translated.get(f); ok {
			usedTranslation = true
			return s, true
		}
		return e.Original.get(f)
	}

	r := Resolved{DisplayLanguage: v.RequestedLanguage}
	r.Title, _ = pick(Title)
	r.Content, _ = pick(Content)
	if s, ok := pick(Summary); ok {
		r.Summary = &s
	}
	r.IsTranslated = e.AutoTranslated && usedTranslation
	return r, nil
}

func original(e Entity) Resolved {
	r := Resolved{
		Title:           e.Original[Title],
		Content:         e.Original[Content],
		DisplayLanguage: e.SourceLanguage,
	}
	if s, ok := e.Original.get(Summary); ok {
		r.Summary = &s
	}
	return r
}

// ResolveMode resolves for a display mode name. "both" yields the Korean and
// the Russian rendering side by side; identical renderings collapse to one.
func ResolveMode(e Entity, mode string, forceOriginal bool) ([]Resolved, error) {
	langs := []model.Language{model.LangKo, model.LangRu}
	if l, ok := model.ParseLanguage(mode); ok {
		langs = []model.Language{l}
	}

	out := make([]Resolved, 0, len(langs))
	for _, l := range langs {
		r, err := Resolve(e, Viewer{RequestedLanguage: l, ForceOriginal: forceOriginal})
		if err != nil {
			return nil, err
		}
		if len(out) > 0 && out[0].DisplayLanguage == r.DisplayLanguage {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
