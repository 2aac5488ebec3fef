package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/albadr/zatca-integration/internal/application/certificate"
	"github.com/albadr/zatca-integration/internal/application/invoicing"
	appsettings "github.com/albadr/zatca-integration/internal/application/settings"
	"github.com/albadr/zatca-integration/internal/infrastructure/postgres"
	"github.com/albadr/zatca-integration/internal/infrastructure/storage"
	infrazatca "github.com/albadr/zatca-integration/internal/infrastructure/zatca"
	httpRouter "github.com/albadr/zatca-integration/internal/interfaces/http"
	"github.com/albadr/zatca-integration/pkg/config"
	"github.com/albadr/zatca-integration/pkg/logger"
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
		Msg("starting application")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("PostgreSQL connection")
	}
	defer pool.Close()

	files, err := storage.NewFileStore(cfg.Zatca.StorageRoot)
	if err != nil {
		log.Fatal().Err(err).Msg("storage root")
	}

	settingsRepo := postgres.NewSettingsRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	submissionRepo := postgres.NewSubmissionRepository(pool)
	locker := postgres.NewAdvisoryLocker(pool)

	gateway := infrazatca.NewAPIClient(cfg.Zatca.HTTPTimeout, cfg.Zatca.Locale, log)
	signer := infrazatca.NewSigner(infrazatca.NewXMLBuilder())

	settingsSvc := appsettings.New(settingsRepo, cfg.Zatca.SettingsCacheTTL, log)
	certificateSvc := certificate.NewService(settingsSvc, files, gateway, infrazatca.NewCSRBuilder(), signer, log)
	documentBuilder := invoicing.NewDocumentBuilder(invoiceRepo, submissionRepo, files, signer, log)
	submitSvc := invoicing.NewService(invoiceRepo, submissionRepo, settingsSvc, gateway, files, documentBuilder, locker, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 120,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Settings:     settingsSvc,
		Certificates: certificateSvc,
		Invoices:     submitSvc,
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("application stopped")
}
