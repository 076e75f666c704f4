package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"

	"github.com/harithzainudin/invois-gateway/internal/application/filing"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/myinvois"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/myinvois/signer"
	infrapdf "github.com/harithzainudin/invois-gateway/internal/infrastructure/pdf"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/postgres"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/spreadsheet"
	httpRouter "github.com/harithzainudin/invois-gateway/internal/interfaces/http"
	"github.com/harithzainudin/invois-gateway/internal/queue"
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
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("myinvois", cfg.MyInvois.Environment).
		Msg("starting gateway")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to PostgreSQL")
	}
	defer pool.Close()
	submissionRepo := postgres.NewSubmissionRepository(pool)

	// Signing certificate: required for schema 1.1, absent for 1.0.
	var cert *tls.Certificate
	if cfg.MyInvois.CertPath != "" {
		loaded, certErr := signer.LoadCertificate(cfg.MyInvois.CertPath, cfg.MyInvois.CertKeyPath, cfg.MyInvois.CertPassword)
		if certErr != nil {
			log.Fatal().Err(certErr).Msg("loading signing certificate")
		}
		cert = &loaded
	} else if cfg.MyInvois.SchemaVersion == myinvois.SchemaVersionSigned {
		log.Fatal().Msg("schema version 1.1 requires MYINVOIS_CERT_PATH")
	}

	signSvc := signer.New()
	mapper := myinvois.NewMapper()
	preparer := myinvois.NewPreparer(signSvc, cert)

	throttle := myinvois.NewThrottle()
	client := myinvois.NewClient(myinvois.ClientConfig{
		BaseURL:      cfg.MyInvois.BaseURL,
		IdentityURL:  cfg.MyInvois.IdentityURL,
		ClientID:     cfg.MyInvois.ClientID,
		ClientSecret: cfg.MyInvois.ClientSecret,
		Timeout:      cfg.MyInvois.Timeout,
	}, throttle, log)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()
	scheduler := queue.NewScheduler(asynqClient)

	orchestrator := filing.NewOrchestrator(
		mapper, preparer, client, submissionRepo, scheduler, log,
		filing.Options{
			SchemaVersion: cfg.MyInvois.SchemaVersion,
			ValidateTINs:  cfg.MyInvois.ValidateTINs,
			PollDelay:     cfg.MyInvois.PollDelay,
		},
	)

	reader := spreadsheet.NewReader()
	pdfGen := infrapdf.NewConfirmationGenerator(cfg.MyInvois.PortalURL, cfg.MyInvois.SupplierName)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Invois Gateway API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Orchestrator: orchestrator,
		Reader:       reader,
		Repo:         submissionRepo,
		PDFGen:       pdfGen,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}
