package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medication-tracker/internal/config"
	"medication-tracker/internal/database"
	"medication-tracker/internal/handlers"
	"medication-tracker/internal/middleware"
	"medication-tracker/internal/notify"
	"medication-tracker/internal/repository"
	"medication-tracker/internal/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Server.Environment == "production" {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Open database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Wire services
	var notifier notify.Notifier = notify.NewDesktopNotifier()
	if !cfg.Notifications.DesktopEnabled {
		notifier = notify.NopNotifier{}
	}

	doseService := services.NewDoseService(db, logger)
	refillService := services.NewRefillService(db, notifier, logger)
	reportService := services.NewReportService(db, logger)
	scheduler := services.NewReminderScheduler(notifier, logger)

	// Re-arm reminders for medications already on file
	medicationRepo := repository.NewMedicationRepository(db)
	if medications, err := medicationRepo.List(); err != nil {
		logger.Error().Err(err).Msg("failed to load medications for reminder scheduling")
	} else {
		for _, med := range medications {
			scheduler.Schedule(med)
		}
	}
	defer scheduler.Stop()

	// Periodic refill check: once at startup, then on the configured interval
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refillService.Start(ctx, cfg.Notifications.RefillCheckInterval)
	defer refillService.Stop()

	rateLimiter := middleware.NewRateLimiter(cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow)

	// Initialize router
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(middleware.SecurityHeaders(cfg.Security.CSPEnabled, cfg.Security.HSTSEnabled))
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Medication routes
		r.Route("/medications", func(r chi.Router) {
			r.Get("/", handlers.HandleGetMedications(db, logger))
			r.Post("/", handlers.HandleCreateMedication(db, scheduler, logger))
			r.Get("/{id}", handlers.HandleGetMedication(db, logger))
			r.Put("/{id}", handlers.HandleUpdateMedication(db, scheduler, logger))
			r.Delete("/{id}", handlers.HandleDeleteMedication(db, scheduler, logger))
			r.Post("/{id}/doses", handlers.HandleRecordDose(doseService, logger))
			r.Post("/{id}/refill", handlers.HandleRefill(refillService, logger))
			r.Put("/{id}/supply", handlers.HandleSetSupply(refillService, logger))
			r.Post("/{id}/clear-refill-notice", handlers.HandleClearRefillNotice(refillService, logger))
		})

		// Dose history routes
		r.Route("/doses", func(r chi.Router) {
			r.Get("/", handlers.HandleGetDoseHistory(doseService, logger))
			r.Get("/today", handlers.HandleGetTodaysDoses(doseService, logger))
			r.Get("/date/{date}", handlers.HandleGetDosesForDate(doseService, logger))
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/progress", handlers.HandleGetProgress(reportService, logger))
			r.Get("/history", handlers.HandleGetGroupedHistory(doseService, reportService, logger))
			r.Get("/active", handlers.HandleGetActiveMedications(reportService, logger))
			r.Get("/refills", handlers.HandleGetRefills(refillService, logger))
		})

		// Export routes
		r.Get("/export/history.pdf", handlers.HandleExportHistoryPDF(db, logger))

		// Bulk wipe
		r.Delete("/data", handlers.HandleClearAllData(doseService, scheduler))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Str("environment", cfg.Server.Environment).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
