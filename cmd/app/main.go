package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"roster-roast/internal/audio"
	"roster-roast/internal/config"
	"roster-roast/internal/domain/ports/adapter"
	"roster-roast/internal/domain/ports/repository"
	"roster-roast/internal/infra/api"
	"roster-roast/internal/infra/db/memory"
	pg "roster-roast/internal/infra/db/postgres"
	"roster-roast/internal/infra/generation"
	"roster-roast/internal/infra/logging"
	"roster-roast/internal/infra/metrics"
	"roster-roast/internal/infra/queue"
	"roster-roast/internal/infra/storage"
	"roster-roast/internal/infra/worker"
	"roster-roast/internal/lyrics"
	"roster-roast/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed secrets)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- Job store ----
	var jobs repository.JobRepository
	if cfg.Database.URL != "" {
		pool, perr := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
		if perr != nil {
			logger.Fatal().Err(perr).Msg("postgres")
		}
		defer pool.Close()
		jobs = pg.NewJobRepo(pool)
		logger.Info().Msg("job store: postgres")
	} else {
		jobs = memory.NewJobRepo()
		logger.Info().Msg("job store: in-memory")
	}

	// ---- Queue ----
	var songQueue repository.SongQueue
	if cfg.Redis.URL != "" {
		rq, qerr := queue.NewRedisQueue(ctx, &cfg.Redis)
		if qerr != nil {
			logger.Fatal().Err(qerr).Msg("redis queue")
		}
		songQueue = rq
		logger.Info().Msg("queue: redis")
	} else {
		songQueue = queue.NewMemoryQueue(256)
		logger.Info().Msg("queue: in-memory")
	}
	defer func() { _ = songQueue.Close() }()

	// ---- Storage ----
	signer := storage.NewURLSigner(cfg.Storage.SignSecret, publicBaseURL(cfg))
	blobs := storage.NewMemoryStore(signer)

	// ---- Generation provider ----
	var gen adapter.GenerationAdapter
	if cfg.Generation.StubMode {
		gen = generation.NewStubAdapter(3, cfg.Generation.DurationSec)
		logger.Warn().Msg("generation: offline stub")
	} else {
		gen, err = generation.NewHTTPAdapter(cfg.Generation.APIKey, cfg.Generation.BaseURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("generation adapter")
		}
	}

	// ---- Workers ----
	processor := worker.NewSongJobProcessor(
		jobs,
		songQueue,
		lyrics.NewRenderer(),
		gen,
		blobs,
		audio.NewProcessor(cfg.Worker.FFmpegPath, logger),
		worker.Options{
			PollInterval:    cfg.Worker.PollInterval,
			MaxPollAttempts: cfg.Worker.MaxPollAttempts,
			MaxDeliveries:   cfg.Worker.MaxDeliveries,
			RetryBackoff:    cfg.Worker.RetryBackoff,
			DurationSec:     cfg.Generation.DurationSec,
		},
		logger,
	)
	pool := worker.NewPool(cfg.Worker.Concurrency, logger)
	pool.Start(ctx)
	go processor.Start(ctx, pool)

	// ---- HTTP ----
	uc := usecase.NewSongUseCase(jobs, songQueue, blobs, cfg.Storage.SignedURLTTL, logger)
	server := api.NewServer(uc, blobs, signer, cfg.Server.RateLimit, logger)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	pool.Wait()
	logger.Info().Msg("bye")
}

func publicBaseURL(cfg *config.Config) string {
	if cfg.Storage.PublicBaseURL != "" {
		return cfg.Storage.PublicBaseURL
	}
	return fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
}
