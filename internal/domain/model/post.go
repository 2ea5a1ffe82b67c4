package model

import "time"

type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
	PostHidden    PostStatus = "hidden"
	PostDeleted   PostStatus = "deleted"
)

// Post is authored in SourceLang; the Translated* slots of the other language
// are filled later by the translation worker, one field at a time.
type Post struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	CategoryID string  `json:"category_id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Summary    *string `json:"summary,omitempty"`

	SourceLang          Language `json:"source_lang"`
	TranslatedTitleKo   *string  `json:"translated_title_ko,omitempty"`
	TranslatedTitleRu   *string  `json:"translated_title_ru,omitempty"`
	TranslatedContentKo *string  `json:"translated_content_ko,omitempty"`
	TranslatedContentRu *string  `json:"translated_content_ru,omitempty"`
	TranslatedSummaryKo *string  `json:"translated_summary_ko,omitempty"`
	TranslatedSummaryRu *string  `json:"translated_summary_ru,omitempty"`
	AutoTranslated      bool     `json:"auto_translated"`

	Tags          []string   `json:"tags"`
	Status        PostStatus `json:"status"`
	IsPinned      bool       `json:"is_pinned"`
	AllowComments bool       `json:"allow_comments"`
	ViewCount     int        `json:"view_count"`
	Slug          string     `json:"slug"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`

	AuthorNickname *string `json:"author_nickname,omitempty"` // For display
	CategorySlug   *string `json:"category_slug,omitempty"`   // For display
}

// PostField names one translatable column group of a post.
type PostField string

const (
	FieldTitle   PostField = "title"
	FieldContent PostField = "content"
	FieldSummary PostField = "summary"
)

var PostFields = []PostField{FieldTitle, FieldContent, FieldSummary}

// TranslatedSlot returns the translated value of field in lang, if any.
func (p *Post) TranslatedSlot(field PostField, lang Language) *string {
	switch {
	case field == FieldTitle && lang == LangKo:
		return p.TranslatedTitleKo
	case field == FieldTitle && lang == LangRu:
		return p.TranslatedTitleRu
	case field == FieldContent && lang == LangKo:
		return p.TranslatedContentKo
	case field == FieldContent && lang == LangRu:
		return p.TranslatedContentRu
	case field == FieldSummary && lang == LangKo:
		return p.TranslatedSummaryKo
	case field == FieldSummary && lang == LangRu:
		return p.TranslatedSummaryRu
	}
	return nil
}

// OriginalField returns the authored value of field; nil for an absent summary.
func (p *Post) OriginalField(field PostField) *string {
	switch field {
	case FieldTitle:
		return &p.Title
	case FieldContent:
		return &p.Content
	case FieldSummary:
		return p.Summary
	}
	return nil
}

// ClearTranslated drops both translated values of field.
func (p *Post) ClearTranslated(field PostField) {
	switch field {
	case FieldTitle:
		p.TranslatedTitleKo, p.TranslatedTitleRu = nil, nil
	case FieldContent:
		p.TranslatedContentKo, p.TranslatedContentRu = nil, nil
	case FieldSummary:
		p.TranslatedSummaryKo, p.TranslatedSummaryRu = nil, nil
	}
}
