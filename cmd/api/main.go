package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sangkips/pharmacy-invoice/internal/application/service"
	"github.com/sangkips/pharmacy-invoice/internal/config"
	"github.com/sangkips/pharmacy-invoice/internal/domain/entity"
	"github.com/sangkips/pharmacy-invoice/internal/infrastructure/database"
	"github.com/sangkips/pharmacy-invoice/internal/infrastructure/repository"
	"github.com/sangkips/pharmacy-invoice/internal/infrastructure/storage"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/handler"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/routes"
	"github.com/sangkips/pharmacy-invoice/pkg/logger"
	"github.com/sangkips/pharmacy-invoice/pkg/metrics"
	"github.com/sangkips/pharmacy-invoice/pkg/pdf"
	"github.com/sangkips/pharmacy-invoice/pkg/printer"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Pretty:     cfg.App.Env != "production",
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if cfg.ConfigFileErr != nil {
		log.Debug().Err(cfg.ConfigFileErr).Msg("no .env file loaded, using environment")
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry, "pharmacy")

	// Open the collection store
	ctx := context.Background()
	store, err := storage.NewFromConfig(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close storage")
		}
	}()

	catalogRepo := repository.NewCatalogRepository(store, log, m)

	if cfg.Seed.Demo {
		if err := database.SeedDemoCatalog(ctx, catalogRepo, log); err != nil {
			log.Warn().Err(err).Msg("failed to seed demo catalog")
		}
	}

	// Initialize services
	catalogService := service.NewCatalogService(catalogRepo, m, log)
	invoiceService := service.NewInvoiceService(catalogService, cfg.Session.TTL, cfg.Session.CleanupInterval, m, log)

	fonts := pdf.NewFontLoader(pdf.FontConfig{
		URL:     cfg.Export.FontURL,
		Path:    cfg.Export.FontPath,
		Family:  cfg.Export.FontFamily,
		Timeout: cfg.Export.FetchTimeout,
	}, log)
	renderer := pdf.NewRenderer(fonts, pdf.Header{
		StoreName: cfg.Export.StoreName,
		Address:   cfg.Export.Address,
		Phone:     cfg.Export.Phone,
	})

	// Initialize thermal printer
	thermalPrinter, err := printer.NewPrinterFromConfig(printer.Config{
		Type:    cfg.Printer.Type,
		USBPath: cfg.Printer.USBPath,
		Address: cfg.Printer.Address,
	})
	printerType := cfg.Printer.Type
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize printer, printing disabled")
		thermalPrinter, printerType = printer.NewNullPrinter(), printer.TypeNone
	}
	defer thermalPrinter.Close()

	exportService := service.NewExportService(invoiceService, catalogService, service.ExportConfig{
		Renderer:    renderer,
		Printer:     thermalPrinter,
		PrinterType: printerType,
		CharWidth:   cfg.Printer.CharWidth,
		Header: entity.ReceiptHeader{
			StoreName: cfg.Export.StoreName,
			Address:   cfg.Export.Address,
			Phone:     cfg.Export.Phone,
		},
	}, m, log)

	backupService := service.NewBackupService(store, cfg.Backup.Dir, log)
	if err := backupService.Start(cfg.Backup.Schedule); err != nil {
		log.Fatal().Err(err).Msg("failed to start backup scheduler")
	}
	defer backupService.Stop()

	// Initialize handlers
	handlers := &routes.Handlers{
		Patient: handler.NewPatientHandler(catalogService),
		Product: handler.NewProductHandler(catalogService),
		Invoice: handler.NewInvoiceHandler(invoiceService),
		Export:  handler.NewExportHandler(exportService),
		Backup:  handler.NewBackupHandler(backupService),
	}

	rateLimiter := routes.NewRateLimiter(&cfg.RateLimit)
	defer rateLimiter.Stop()

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		Cfg:          cfg,
		Logger:       log,
		Gatherer:     registry,
		RateLimiter:  rateLimiter,
		OpenSessions: invoiceService.OpenCount,
	})

	// Get port from environment or use default
	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", port).Str("env", cfg.App.Env).Str("storage", cfg.Storage.Driver).
			Msgf("starting %s server", cfg.App.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
}
