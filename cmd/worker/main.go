// Command worker runs translation jobs outside the API server. It shares the
// Redis queue with cmd/server started with TRANSLATION_WORKER_IN_PROCESS=false.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"hanru_board/internal/app/worker"
	"hanru_board/internal/domain/repository"
	"hanru_board/internal/platform/config"
	"hanru_board/internal/platform/database"
	"hanru_board/internal/platform/logger"
	"hanru_board/internal/platform/queue"
	"hanru_board/internal/platform/translator"
)

func main() {
	logger.SetDefault()
	config.Load()
	cfg := config.AppConfig
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().Msg("Worker service starting...")

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	// Graceful shutdown on SIGINT or SIGTERM
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	database.Connect(cfg.DBConnStr)
	defer database.Close()

	queue.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer queue.CloseRedis()
	if queue.RDB == nil {
		log.Fatal().Str("addr", cfg.RedisAddr).Msg("A standalone worker needs Redis to reach the job queue")
	}

	cached := translator.NewCached(translator.FromConfig(cfg), queue.RDB, cfg.TranslationCacheTTL)
	w := worker.NewTranslationWorker(
		queue.NewRedisQueue(queue.RDB),
		queue.NewRedisLocker(queue.RDB),
		repository.NewPgTranslationJobRepository(database.DB),
		repository.NewPgPostRepository(database.DB),
		repository.NewTransactor(database.DB),
		cached,
		translator.NewDispatcher(cfg.TranslatorEndpointURL, cfg.WebhookSecret),
		worker.OptionsFromConfig(cfg),
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Start(ctx)
	}()

	// Wait for signal
	<-sigs
	log.Info().Msg("Shutdown signal received")
	cancel()

	// Wait for the in-flight job to finish
	wg.Wait()
	log.Info().Msg("Worker exited cleanly")
}
