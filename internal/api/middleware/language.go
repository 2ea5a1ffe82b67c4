package middleware

import (
	"net/http"

	"golang.org/x/text/language"

	"hanru_board/internal/preference"
)

var supportedLanguages = []language.Tag{
	language.Korean, // first entry is the matcher's fallback
	language.Russian,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// modeFromAcceptLanguage picks ko or ru from an Accept-Language header.
// An empty, unparsable or unrelated header yields the default mode.
func modeFromAcceptLanguage(header string) preference.Mode {
	if header == "" {
		return preference.DefaultMode
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return preference.DefaultMode
	}
	_, idx, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return preference.DefaultMode
	}
	if supportedLanguages[idx] == language.Russian {
		return preference.ModeRu
	}
	return preference.ModeKo
}

// modeFromQuery reads the per-request override. lang only accepts a single
// language; mode also accepts both.
func modeFromQuery(r *http.Request) (preference.Mode, bool) {
	q := r.URL.Query()
	if raw := q.Get("mode"); raw != "" {
		if m, ok := preference.ParseMode(raw); ok {
			return m, true
		}
	}
	if raw := q.Get("lang"); raw != "" {
		if m, ok := preference.ParseMode(raw); ok && m != preference.ModeBoth {
			return m, true
		}
	}
	return "", false
}
