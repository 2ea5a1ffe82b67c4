package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hanru_board/internal/common"
	"hanru_board/internal/domain/model"
	"hanru_board/internal/domain/repository"
	"hanru_board/internal/platform/queue"
	"hanru_board/internal/platform/translator"
)

type TranslationService struct {
	jobRepo    repository.TranslationJobRepository
	postRepo   repository.PostRepository
	jobs       queue.Queue
	queueName  string
	translator *translator.Cached
	tx         repository.Transactor
}

func NewTranslationService(
	jobRepo repository.TranslationJobRepository,
	postRepo repository.PostRepository,
	jobs queue.Queue,
	queueName string,
	tr *translator.Cached,
	tx repository.Transactor,
) *TranslationService {
	return &TranslationService{
		jobRepo:    jobRepo,
		postRepo:   postRepo,
		jobs:       jobs,
		queueName:  queueName,
		translator: tr,
		tx:         tx,
	}
}

// CreatePostJob records a job translating fields of post into its other language.
// The job is not visible to workers until Publish is called after commit.
func (s *TranslationService) CreatePostJob(ctx context.Context, tx *sql.Tx, post *model.Post, fields []model.PostField) (*model.TranslationJob, error) {
	if !post.SourceLang.Valid() {
		return nil, common.Errorf("post %s has invalid source language %q: %w", post.ID, post.SourceLang, common.ErrValidation)
	}
	if len(fields) == 0 {
		fields = model.PostFields
	}
	job := &model.TranslationJob{
		ID:         uuid.NewString(),
		PostID:     post.ID,
		SourceLang: post.SourceLang,
		TargetLang: post.SourceLang.Other(),
		Fields:     fields,
		Status:     model.JobStatusQueued,
	}
	if err := s.jobRepo.CreateJob(ctx, tx, job); err != nil {
		return nil, common.Errorf("failed to create translation job in DB: %w", err)
	}
	return job, nil
}

// Publish pushes a committed job onto the queue. A push failure leaves the job
// Queued in the database.
func (s *TranslationService) Publish(ctx context.Context, job *model.TranslationJob) {
	if err := s.jobs.Push(ctx, s.queueName, job.ID); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Str("post_id", job.PostID).Msg("Failed to push translation job")
		return
	}
	log.Info().Str("job_id", job.ID).Str("post_id", job.PostID).
		Str("source", string(job.SourceLang)).Str("target", string(job.TargetLang)).
		Msg("Translation job enqueued")
}

// HandleExternalResult stores the answer of the external translator for a job.
// Results for finished jobs are ignored.
func (s *TranslationService) HandleExternalResult(ctx context.Context, res translator.ExternalResult) error {
	if res.JobID == "" {
		return common.Errorf("job_id is required: %w", common.ErrBadRequest)
	}
	job, err := s.jobRepo.GetJobByID(ctx, res.JobID)
	if err != nil {
		return common.Errorf("translation job %s: %w", res.JobID, err)
	}
	if job.Finished() {
		log.Warn().Str("job_id", job.ID).Str("status", job.Status).Msg("Translation job already finished, ignoring webhook")
		return nil
	}

	if res.Error != "" {
		msg := res.Error
		if err := s.jobRepo.UpdateJobStatus(ctx, nil, job.ID, model.JobStatusFailed, &msg); err != nil {
			return common.Errorf("failed to mark job %s failed: %w", job.ID, err)
		}
		log.Warn().Str("job_id", job.ID).Str("reason", msg).Msg("External translator reported failure")
		return nil
	}

	values := make(map[model.PostField]string, len(job.Fields))
	for _, f := range job.Fields {
		if v, ok := res.Fields[f]; ok {
			values[f] = v
		}
	}

	var written int
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		written, err = s.postRepo.ApplyTranslation(ctx, tx, job.PostID, job.TargetLang, values)
		if err != nil {
			return common.Errorf("failed to store translation for job %s: %w", job.ID, err)
		}
		if err := s.jobRepo.UpdateJobStatus(ctx, tx, job.ID, model.JobStatusCompleted, nil); err != nil {
			return common.Errorf("failed to mark job %s completed: %w", job.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Str("job_id", job.ID).Str("post_id", job.PostID).Int("written", written).Msg("Translation stored from webhook")
	return nil
}

type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang,omitempty"`
	TargetLang string `json:"target_lang"`
}

// TranslateText translates ad-hoc text through the cached provider.
func (s *TranslationService) TranslateText(ctx context.Context, req TranslateRequest) (*translator.Result, error) {
	target, ok := model.ParseLanguage(req.TargetLang)
	if !ok {
		return nil, common.Errorf("target_lang must be ko or ru: %w", common.ErrBadRequest)
	}
	var source model.Language
	if req.SourceLang != "" {
		if source, ok = model.ParseLanguage(req.SourceLang); !ok {
			return nil, common.Errorf("source_lang must be ko or ru: %w", common.ErrBadRequest)
		}
	}
	if source == target {
		return &translator.Result{TranslatedText: req.Text, SourceLang: source, TargetLang: target}, nil
	}

	res, err := s.translator.TranslateText(ctx, req.Text, source, target)
	if err != nil {
		if errors.Is(err, translator.ErrDisabled) || errors.Is(err, translator.ErrProvider) {
			return nil, fmt.Errorf("%v: %w", err, common.ErrServiceUnavailable)
		}
		return nil, common.Errorf("translation failed: %w", err)
	}
	return &res, nil
}
