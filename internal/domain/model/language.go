package model

import "strings"

// Language is one of the two languages content is authored in.
type Language string

const (
	LangKo Language = "ko"
	LangRu Language = "ru"
)

func (l Language) Valid() bool {
	return l == LangKo || l == LangRu
}

// Other returns the counterpart language. It is only meaningful for valid languages.
func (l Language) Other() Language {
	if l == LangKo {
		return LangRu
	}
	return LangKo
}

func ParseLanguage(s string) (Language, bool) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	return l, l.Valid()
}
