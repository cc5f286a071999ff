package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medicheck/mcu/internal/config"
	"github.com/medicheck/mcu/internal/domain/cases"
	"github.com/medicheck/mcu/internal/domain/mcu"
	"github.com/medicheck/mcu/internal/domain/patients"
	"github.com/medicheck/mcu/internal/platform/auth"
	"github.com/medicheck/mcu/internal/platform/blobstore"
	"github.com/medicheck/mcu/internal/platform/db"
	"github.com/medicheck/mcu/internal/platform/middleware"
	"github.com/medicheck/mcu/internal/platform/report"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mcu-server",
		Short: "Medical check-up intake and reporting server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			return nil
		},
	})

	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import a check-up spreadsheet into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
			gen := &report.Generator{
				DoctorName:    cfg.ReportDoctorName,
				DoctorLicense: cfg.ReportDoctorLicense,
			}
			svc := mcu.NewService(mcu.NewRepoPG(pool), mcu.NewBatchRepoPG(pool), mcu.NewHistoryRepoPG(pool), gen, logger)

			batch, res, err := svc.ImportWorkbook(ctx, filepath.Base(args[0]), "cli", f)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Printf("Imported %d record(s) from %s (batch %s, %d row(s) skipped).\n",
				len(res.Records), batch.Filename, batch.ID, res.SkippedRows)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Generate PDF reports for matching records into a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			search, _ := cmd.Flags().GetString("search")
			batch, _ := cmd.Flags().GetString("batch")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			filter := mcu.ListFilter{Search: search}
			if batch != "" {
				batchID, err := uuid.Parse(batch)
				if err != nil {
					return fmt.Errorf("invalid batch id: %w", err)
				}
				filter.BatchID = &batchID
			}

			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
			gen := &report.Generator{
				DoctorName:    cfg.ReportDoctorName,
				DoctorLicense: cfg.ReportDoctorLicense,
			}
			svc := mcu.NewService(mcu.NewRepoPG(pool), mcu.NewBatchRepoPG(pool), mcu.NewHistoryRepoPG(pool), gen, logger)
			svc.Pacing = cfg.ExportPacing()

			var ids []uuid.UUID
			const page = 200
			for offset := 0; ; offset += page {
				records, total, err := svc.ListRecords(ctx, filter, page, offset)
				if err != nil {
					return err
				}
				for _, rec := range records {
					ids = append(ids, rec.ID)
				}
				if offset+page >= total || len(records) == 0 {
					break
				}
			}
			if len(ids) == 0 {
				fmt.Println("No records matched.")
				return nil
			}

			if err := os.MkdirAll(out, 0755); err != nil {
				return err
			}

			sum, err := svc.ExportReports(ctx, ids, "cli", &mcu.DirDelivery{Dir: out})
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			fmt.Printf("Delivered %d of %d report(s) to %s (%d failed).\n",
				sum.Delivered, sum.Requested, out, sum.Failed)
			for _, item := range sum.Items {
				if item.Error != "" {
					fmt.Printf("  %s: %s\n", item.RecordID, item.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("out", "./reports", "Output directory for generated PDFs")
	cmd.Flags().String("search", "", "Filter records by employee name or NPK")
	cmd.Flags().String("batch", "", "Restrict to records from one upload batch")
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit(1<<20, cfg.MaxUploadBytes))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.AuthSigningKey),
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
		}))
	}

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Blob store for case documents and signed downloads.
	store := blobstore.NewMemoryStore(fmt.Sprintf("http://localhost:%s/files", cfg.Port))
	blobstore.NewHandler(store).RegisterRoutes(e.Group(""))

	// Report generator
	gen := &report.Generator{
		DoctorName:    cfg.ReportDoctorName,
		DoctorLicense: cfg.ReportDoctorLicense,
	}

	// -- Register Domain Handlers --

	// Check-up records, workbook intake, report export
	recordRepo := mcu.NewRepoPG(pool)
	batchRepo := mcu.NewBatchRepoPG(pool)
	historyRepo := mcu.NewHistoryRepoPG(pool)
	mcuSvc := mcu.NewService(recordRepo, batchRepo, historyRepo, gen, logger)
	mcuSvc.Pacing = cfg.ExportPacing()
	mcuHandler := mcu.NewHandler(mcuSvc)
	mcuHandler.RegisterRoutes(apiV1)

	// Patient registry
	patientRepo := patients.NewRepoPG(pool)
	patientSvc := patients.NewService(patientRepo, logger)
	patientHandler := patients.NewHandler(patientSvc)
	patientHandler.RegisterRoutes(apiV1)

	// Check-up case workflow
	caseRepo := cases.NewCaseRepoPG(pool)
	assessmentRepo := cases.NewAssessmentRepoPG(pool)
	conclusionRepo := cases.NewConclusionRepoPG(pool)
	documentRepo := cases.NewDocumentRepoPG(pool)
	caseSvc := cases.NewService(caseRepo, assessmentRepo, conclusionRepo, documentRepo, patientSvc, mcuSvc, store, logger)
	caseSvc.SignedURLTTL = cfg.SignedURLTTL()
	caseSvc.BeginTx = func(ctx context.Context) (context.Context, cases.Tx, error) {
		txCtx, tx, err := db.WithTx(ctx, pool)
		if err != nil {
			return ctx, nil, err
		}
		return txCtx, tx, nil
	}
	caseHandler := cases.NewHandler(caseSvc)
	caseHandler.RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
