package model

import "time"

const (
	JobStatusQueued           = "Queued"
	JobStatusProcessing       = "Processing"
	JobStatusSentToTranslator = "SentToTranslator" // external provider, waiting for webhook
	JobStatusCompleted        = "Completed"
	JobStatusFailed           = "Failed"
)

// TranslationJob asks for the listed fields of a post to be translated
// from SourceLang into TargetLang.
type TranslationJob struct {
	ID         string      `json:"id"`
	PostID     string      `json:"post_id"`
	SourceLang Language    `json:"source_lang"`
	TargetLang Language    `json:"target_lang"`
	Fields     []PostField `json:"fields"`
	Status     string      `json:"status"`
	Attempts   int         `json:"attempts"`
	LastError  *string     `json:"last_error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (j *TranslationJob) Finished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
