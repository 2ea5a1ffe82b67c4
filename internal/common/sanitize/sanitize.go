// Package sanitize holds the HTML policies for user and machine written post text.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"hanru_board/internal/domain/model"
)

var (
	// post bodies come from a rich text editor or an HTML-aware translator
	contentPolicy = bluemonday.UGCPolicy()
	plainPolicy   = bluemonday.StrictPolicy()
)

// HTML keeps the markup a post body may carry and drops the rest.
func HTML(s string) string {
	return strings.TrimSpace(contentPolicy.Sanitize(s))
}

// Text strips all markup.
func Text(s string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(s))
}

// Field applies the policy matching f: HTML for content, Text otherwise.
func Field(f model.PostField, s string) string {
	if f == model.FieldContent {
		return HTML(s)
	}
	return Text(s)
}

// Fields sanitises translated values, dropping those left empty.
func Fields(values map[model.PostField]string) map[model.PostField]string {
	out := make(map[model.PostField]string, len(values))
	for f, v := range values {
		if clean := Field(f, v); clean != "" {
			out[f] = clean
		}
	}
	return out
}
