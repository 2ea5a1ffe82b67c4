package bilingual

import "hanru_board/internal/domain/model"

// Label is text authored in both languages by hand, like a category name.
// There is no source language and nothing is ever marked translated.
type Label struct {
	Ko string `json:"ko"`
	Ru string `json:"ru"`
}

// In returns the label in lang, falling back to the other language when
// that side was left empty.
func (l Label) In(lang model.Language) string {
	ko, ru := l.Ko, l.Ru
	if lang == model.LangRu {
		if ru != "" {
			return ru
		}
		return ko
	}
	if ko != "" {
		return ko
	}
	return ru
}
