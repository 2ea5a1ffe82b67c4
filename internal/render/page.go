package render

import (
	"bytes"
	"fmt"
	"html/template"

	"hanru_board/internal/bilingual"
	"hanru_board/internal/common/sanitize"
	"hanru_board/internal/domain/model"
	"hanru_board/internal/preference"
)

// Shell is the empty page the post and sidebar are appended into.
const Shell = `<!DOCTYPE html><html><head><meta charset="utf-8"><title></title></head>` +
	`<body><main id="post"></main><aside id="sidebar"></aside></body></html>`

// PostVariant is one language rendering of a post.
type PostVariant struct {
	Resolved   bilingual.Resolved
	SourceLang model.Language
	// Tagged variants are shown or hidden by the display mode; an untagged
	// one (the forced original) is always shown.
	Tagged bool
}

// SidebarItem is one category link; a missing name falls back to the other language.
type SidebarItem struct {
	Slug  string
	Label bilingual.Label
}

var funcs = template.FuncMap{
	"variantClass": variantClass,
	"langName":     langName,
	"safeHTML":     func(s string) template.HTML { return template.HTML(sanitize.HTML(s)) },
	"labelKo":      func(l bilingual.Label) string { return l.In(model.LangKo) },
	"labelRu":      func(l bilingual.Label) string { return l.In(model.LangRu) },
}

func variantClass(lang model.Language) string {
	if lang == model.LangRu {
		return preference.RussianTag
	}
	return preference.KoreanTag
}

func langName(lang model.Language) string {
	if lang == model.LangRu {
		return "Русский"
	}
	return "한국어"
}

var postTmpl = template.Must(template.New("post").Funcs(funcs).Parse(`
{{- range . -}}
<article lang="{{.Resolved.DisplayLanguage}}"{{if .Tagged}} class="{{variantClass .Resolved.DisplayLanguage}}"{{end}}>
<h1>{{.Resolved.Title}}</h1>
{{- if .Resolved.IsTranslated}}
<p class="translation-badge">{{langName .SourceLang}} → {{langName .Resolved.DisplayLanguage}}</p>
{{- end}}
{{- with .Resolved.Summary}}
<p class="summary">{{.}}</p>
{{- end}}
<div class="content">{{safeHTML .Resolved.Content}}</div>
</article>
{{- end -}}`))

var sidebarTmpl = template.Must(template.New("sidebar").Funcs(funcs).Parse(`
<ul class="categories">
{{- range .}}
<li><a href="/categories/{{.Slug}}"><span class="korean-variant" lang="ko">{{labelKo .Label}}</span><span class="russian-variant" lang="ru">{{labelRu .Label}}</span></a></li>
{{- end}}
</ul>`))

func PostFragment(variants []PostVariant) (string, error) {
	var buf bytes.Buffer
	if err := postTmpl.Execute(&buf, variants); err != nil {
		return "", fmt.Errorf("render.PostFragment: %w", err)
	}
	return buf.String(), nil
}

func SidebarFragment(items []SidebarItem) (string, error) {
	var buf bytes.Buffer
	if err := sidebarTmpl.Execute(&buf, items); err != nil {
		return "", fmt.Errorf("render.SidebarFragment: %w", err)
	}
	return buf.String(), nil
}
