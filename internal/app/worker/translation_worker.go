package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hanru_board/internal/domain/model"
	"hanru_board/internal/domain/repository"
	"hanru_board/internal/platform/config"
	"hanru_board/internal/platform/queue"
	"hanru_board/internal/platform/translator"
)

// Options tunes a TranslationWorker.
type Options struct {
	QueueName   string
	LockPrefix  string
	LockTTL     time.Duration
	PollTimeout time.Duration
	// External hands jobs to the dispatcher instead of translating in process.
	External    bool
	CallbackURL string
}

// OptionsFromConfig maps the translation settings of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		QueueName:   cfg.TranslationQueueName,
		LockPrefix:  cfg.TranslationLockPrefix,
		LockTTL:     time.Duration(cfg.TranslationLockTTLSeconds) * time.Second,
		External:    cfg.TranslationProvider == config.ProviderExternal,
		CallbackURL: cfg.TranslationWebhookURL,
	}
}

type TranslationWorker struct {
	jobs       queue.Queue
	locks      queue.Locker
	jobRepo    repository.TranslationJobRepository
	postRepo   repository.PostRepository
	tx         repository.Transactor
	translator translator.Translator
	dispatcher *translator.Dispatcher
	opts       Options
}

func NewTranslationWorker(
	jobs queue.Queue,
	locks queue.Locker,
	jobRepo repository.TranslationJobRepository,
	postRepo repository.PostRepository,
	tx repository.Transactor,
	tr translator.Translator,
	dispatcher *translator.Dispatcher,
	opts Options,
) *TranslationWorker {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 5 * time.Second
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	return &TranslationWorker{
		jobs:       jobs,
		locks:      locks,
		jobRepo:    jobRepo,
		postRepo:   postRepo,
		tx:         tx,
		translator: tr,
		dispatcher: dispatcher,
		opts:       opts,
	}
}

// Start pops job ids until ctx is cancelled.
func (w *TranslationWorker) Start(ctx context.Context) {
	log.Info().Str("queue", w.opts.QueueName).Bool("external", w.opts.External).Msg("Translation worker started")
	for {
		if ctx.Err() != nil {
			log.Info().Msg("Translation worker stopping")
			return
		}
		jobID, err := w.jobs.Pop(ctx, w.opts.QueueName, w.opts.PollTimeout)
		if err != nil {
			switch {
			case errors.Is(err, queue.ErrEmpty):
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			default:
				log.Error().Err(err).Str("queue", w.opts.QueueName).Msg("Failed to pop translation job")
				sleep(ctx, 5*time.Second)
			}
			continue
		}
		log.Debug().Str("job_id", jobID).Msg("Worker picked up translation job")
		w.ProcessJob(ctx, jobID)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// ProcessJob runs one job under its post's lock. A job whose post is locked
// goes back to the queue.
func (w *TranslationWorker) ProcessJob(ctx context.Context, jobID string) {
	job, err := w.jobRepo.GetJobByID(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to fetch translation job")
		return
	}
	if job.Finished() {
		log.Debug().Str("job_id", job.ID).Str("status", job.Status).Msg("Skipping finished translation job")
		return
	}

	lockKey := w.opts.LockPrefix + job.PostID
	unlock, err := w.locks.TryLock(ctx, lockKey, w.opts.LockTTL)
	if err != nil {
		if errors.Is(err, queue.ErrLockHeld) {
			log.Info().Str("job_id", job.ID).Str("post_id", job.PostID).Msg("Post is being translated elsewhere, re-queueing")
		} else {
			log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to acquire translation lock")
		}
		w.requeue(ctx, job.ID)
		return
	}
	defer func() {
		// release must outlive a cancelled worker context
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := unlock(releaseCtx); err != nil {
			log.Error().Err(err).Str("key", lockKey).Msg("Failed to release translation lock")
		}
	}()

	if err := w.handle(ctx, job); err != nil {
		msg := err.Error()
		log.Error().Err(err).Str("job_id", job.ID).Str("post_id", job.PostID).Msg("Translation job failed")
		if uerr := w.jobRepo.UpdateJobStatus(ctx, nil, job.ID, model.JobStatusFailed, &msg); uerr != nil {
			log.Error().Err(uerr).Str("job_id", job.ID).Msg("Failed to mark translation job failed")
		}
	}
}

func (w *TranslationWorker) requeue(ctx context.Context, jobID string) {
	sleep(ctx, 200*time.Millisecond)
	if err := w.jobs.Push(ctx, w.opts.QueueName, jobID); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to re-queue translation job")
	}
}

func (w *TranslationWorker) handle(ctx context.Context, job *model.TranslationJob) error {
	if job.SourceLang == job.TargetLang || !job.SourceLang.Valid() || !job.TargetLang.Valid() {
		return fmt.Errorf("invalid language pair %s -> %s", job.SourceLang, job.TargetLang)
	}
	if err := w.jobRepo.IncrementJobAttempts(ctx, nil, job.ID); err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to count attempt")
	}
	if err := w.jobRepo.UpdateJobStatus(ctx, nil, job.ID, model.JobStatusProcessing, nil); err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to mark translation job processing")
	}

	post, err := w.postRepo.FindPostByID(ctx, job.PostID)
	if err != nil {
		return fmt.Errorf("load post %s: %w", job.PostID, err)
	}
	if post.SourceLang != job.SourceLang {
		return fmt.Errorf("post %s is now authored in %s", post.ID, post.SourceLang)
	}

	sources := make(map[model.PostField]string, len(job.Fields))
	for _, f := range job.Fields {
		if v := post.OriginalField(f); v != nil && *v != "" && post.TranslatedSlot(f, job.TargetLang) == nil {
			sources[f] = *v
		}
	}
	if len(sources) == 0 {
		log.Info().Str("job_id", job.ID).Msg("Nothing left to translate")
		return w.jobRepo.UpdateJobStatus(ctx, nil, job.ID, model.JobStatusCompleted, nil)
	}

	if w.opts.External {
		err := w.dispatcher.Dispatch(ctx, translator.ExternalRequest{
			JobID:       job.ID,
			PostID:      job.PostID,
			SourceLang:  job.SourceLang,
			TargetLang:  job.TargetLang,
			Fields:      sources,
			CallbackURL: w.opts.CallbackURL,
		})
		if err != nil {
			return fmt.Errorf("dispatch to external translator: %w", err)
		}
		log.Info().Str("job_id", job.ID).Msg("Translation job sent to external translator")
		return w.jobRepo.UpdateJobStatus(ctx, nil, job.ID, model.JobStatusSentToTranslator, nil)
	}

	translated, err := w.translateFields(ctx, job, sources)
	if err != nil {
		return err
	}

	var written int
	err = w.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		written, err = w.postRepo.ApplyTranslation(ctx, tx, job.PostID, job.TargetLang, translated)
		if err != nil {
			return err
		}
		return w.jobRepo.UpdateJobStatus(ctx, tx, job.ID, model.JobStatusCompleted, nil)
	})
	if err != nil {
		return fmt.Errorf("store translation: %w", err)
	}
	log.Info().Str("job_id", job.ID).Str("post_id", job.PostID).Int("written", written).
		Str("target", string(job.TargetLang)).Msg("Translation job completed")
	return nil
}

// translateFields translates every field concurrently; any failure fails all.
func (w *TranslationWorker) translateFields(ctx context.Context, job *model.TranslationJob, sources map[model.PostField]string) (map[model.PostField]string, error) {
	var mu sync.Mutex
	out := make(map[model.PostField]string, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for field, text := range sources {
		field, text := field, text
		g.Go(func() error {
			res, err := w.translator.Translate(gctx, text, job.SourceLang, job.TargetLang)
			if err != nil {
				return fmt.Errorf("translate %s: %w", field, err)
			}
			mu.Lock()
			out[field] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
