package main

import (
	"context"
	"os"

	"github.com/hibiken/asynq"

	"github.com/harithzainudin/invois-gateway/internal/application/filing"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/myinvois"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/postgres"
	"github.com/harithzainudin/invois-gateway/internal/queue"
	"github.com/harithzainudin/invois-gateway/internal/worker"
	"github.com/harithzainudin/invois-gateway/pkg/config"
	"github.com/harithzainudin/invois-gateway/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().Str("env", cfg.App.Env).Msg("starting worker")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to PostgreSQL")
	}
	defer pool.Close()
	submissionRepo := postgres.NewSubmissionRepository(pool)

	throttle := myinvois.NewThrottle()
	client := myinvois.NewClient(myinvois.ClientConfig{
		BaseURL:      cfg.MyInvois.BaseURL,
		IdentityURL:  cfg.MyInvois.IdentityURL,
		ClientID:     cfg.MyInvois.ClientID,
		ClientSecret: cfg.MyInvois.ClientSecret,
		Timeout:      cfg.MyInvois.Timeout,
	}, throttle, log)

	poller := filing.NewPoller(submissionRepo, client, log)
	processor := worker.NewProcessor(poller, submissionRepo, log)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	// Hourly sweep for the 72h Valid to Completed promotion.
	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register("@every 1h", asynq.NewTask(queue.PromoteStaleTask, nil)); err != nil {
		log.Fatal().Err(err).Msg("registering promotion schedule")
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			log.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
	})

	if err := server.Run(processor.Handler()); err != nil {
		log.Error().Err(err).Msg("worker stopped")
		os.Exit(1)
	}
}
