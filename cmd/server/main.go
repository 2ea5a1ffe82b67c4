package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"hanru_board/internal/api"
	"hanru_board/internal/app/service"
	"hanru_board/internal/app/worker"
	"hanru_board/internal/common/security"
	"hanru_board/internal/domain/repository"
	"hanru_board/internal/platform/config"
	"hanru_board/internal/platform/database"
	"hanru_board/internal/platform/logger"
	"hanru_board/internal/platform/queue"
	"hanru_board/internal/platform/translator"
	"hanru_board/internal/preference"
)

func main() {
	logger.SetDefault()

	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().Msg("Configuration loaded")

	// 2. Initialize JWT
	security.InitJWT(cfg.JWTKey, cfg.JWTExp)

	// 3. Initialize Database
	database.Connect(cfg.DBConnStr)
	defer database.Close()
	if err := database.Migrate(context.Background(), database.DB); err != nil {
		log.Fatal().Err(err).Msg("Database migration failed")
	}

	// 4. Initialize Redis, falling back to in-process stores
	queue.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer queue.CloseRedis()

	var (
		jobs  queue.Queue
		locks queue.Locker
		slots preference.Slots
	)
	if queue.RDB != nil {
		jobs = queue.NewRedisQueue(queue.RDB)
		locks = queue.NewRedisLocker(queue.RDB)
		slots = preference.NewRedisSlots(queue.RDB, cfg.PreferenceTTL)
	} else {
		log.Warn().Msg("Queue, locks and preferences are process local")
		jobs = queue.NewMemoryQueue(1024)
		locks = queue.NewMemoryLocker()
		slots = preference.NewMemorySlots()
	}

	// 5. Translation provider
	cached := translator.NewCached(translator.FromConfig(cfg), queue.RDB, cfg.TranslationCacheTTL)
	dispatcher := translator.NewDispatcher(cfg.TranslatorEndpointURL, cfg.WebhookSecret)

	// 6. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	categoryRepo := repository.NewPgCategoryRepository(database.DB)
	postRepo := repository.NewPgPostRepository(database.DB)
	jobRepo := repository.NewPgTranslationJobRepository(database.DB)
	tx := repository.NewTransactor(database.DB)

	// 7. Initialize Services
	authService := service.NewAuthService(userRepo)
	translationService := service.NewTranslationService(jobRepo, postRepo, jobs, cfg.TranslationQueueName, cached, tx)
	postService := service.NewPostService(postRepo, categoryRepo, translationService, tx)
	categoryService := service.NewCategoryService(categoryRepo)
	preferenceService := service.NewPreferenceService(slots, cfg.PreferenceFallbackDelays)
	pageService := service.NewPageService(postService, categoryService, preferenceService)

	// 8. Initialize Translation Worker (as a goroutine)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	if cfg.InProcessWorker || queue.RDB == nil {
		if !cfg.InProcessWorker {
			log.Warn().Msg("No Redis to share the queue with cmd/worker, running the translation worker in process")
		}
		translationWorker := worker.NewTranslationWorker(jobs, locks, jobRepo, postRepo, tx, cached, dispatcher, worker.OptionsFromConfig(cfg))
		go func() {
			defer close(workerDone)
			translationWorker.Start(workerCtx)
		}()
	} else {
		close(workerDone)
	}

	// 9. Initialize Router & HTTP Server
	router := api.NewRouter(api.Services{
		Auth:          authService,
		Categories:    categoryService,
		Posts:         postService,
		Pages:         pageService,
		Preferences:   preferenceService,
		Translations:  translationService,
		WebhookSecret: cfg.WebhookSecret,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.APIPort).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Str("port", cfg.APIPort).Msg("Could not listen")
		}
	}()

	<-stop // Wait for interrupt signal

	log.Info().Msg("Shutting down server...")
	workerCancel() // Signal worker to stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Translation worker did not stop in time")
	}

	log.Info().Msg("Server and worker stopped gracefully")
}
