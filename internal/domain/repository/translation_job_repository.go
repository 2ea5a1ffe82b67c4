package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"hanru_board/internal/common"
	"hanru_board/internal/domain/model"
)

type TranslationJobRepository interface {
	CreateJob(ctx context.Context, tx *sql.Tx, job *model.TranslationJob) error
	GetJobByID(ctx context.Context, id string) (*model.TranslationJob, error)
	UpdateJobStatus(ctx context.Context, tx *sql.Tx, jobID string, status string, lastError *string) error
	IncrementJobAttempts(ctx context.Context, tx *sql.Tx, jobID string) error
}

type pgTranslationJobRepository struct {
	db *sql.DB
}

func NewPgTranslationJobRepository(db *sql.DB) TranslationJobRepository {
	return &pgTranslationJobRepository{db: db}
}

func (r *pgTranslationJobRepository) CreateJob(ctx context.Context, tx *sql.Tx, job *model.TranslationJob) error {
	fields, err := json.Marshal(job.Fields)
	if err != nil {
		return fmt.Errorf("pgTranslationJobRepository.CreateJob fields: %w", err)
	}
	query := `INSERT INTO translation_jobs (id, post_id, source_lang, target_lang, fields, status)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at, updated_at`
	err = conn(r.db, tx).QueryRowContext(ctx, query,
		job.ID, job.PostID, job.SourceLang, job.TargetLang, fields, job.Status,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgTranslationJobRepository.CreateJob: %w", err)
	}
	return nil
}

func (r *pgTranslationJobRepository) GetJobByID(ctx context.Context, id string) (*model.TranslationJob, error) {
	query := `SELECT id, post_id, source_lang, target_lang, fields, status, attempts, last_error, created_at, updated_at
	          FROM translation_jobs WHERE id = $1`
	job := &model.TranslationJob{}
	var fields []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.PostID, &job.SourceLang, &job.TargetLang, &fields, &job.Status, &job.Attempts, &job.LastError,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTranslationJobRepository.GetJobByID: %w", err)
	}
	if err := json.Unmarshal(fields, &job.Fields); err != nil {
		return nil, fmt.Errorf("pgTranslationJobRepository.GetJobByID fields: %w", err)
	}
	return job, nil
}

func (r *pgTranslationJobRepository) UpdateJobStatus(ctx context.Context, tx *sql.Tx, jobID string, status string, lastError *string) error {
	query := `UPDATE translation_jobs SET status = $2, last_error = $3, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	res, err := conn(r.db, tx).ExecContext(ctx, query, jobID, status, lastError)
	if err != nil {
		return fmt.Errorf("pgTranslationJobRepository.UpdateJobStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgTranslationJobRepository) IncrementJobAttempts(ctx context.Context, tx *sql.Tx, jobID string) error {
	query := `UPDATE translation_jobs SET attempts = attempts + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, jobID); err != nil {
		return fmt.Errorf("pgTranslationJobRepository.IncrementJobAttempts: %w", err)
	}
	return nil
}
