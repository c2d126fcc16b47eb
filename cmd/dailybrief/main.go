package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loopcredit/dailybrief/internal/aggregate"
	"github.com/loopcredit/dailybrief/internal/amplitude"
	corecfg "github.com/loopcredit/dailybrief/internal/core/config"
	"github.com/loopcredit/dailybrief/internal/email"
	"github.com/loopcredit/dailybrief/internal/migrations"
	"github.com/loopcredit/dailybrief/internal/narrative"
	"github.com/loopcredit/dailybrief/internal/pipeline"
	"github.com/loopcredit/dailybrief/internal/server"
	"github.com/loopcredit/dailybrief/internal/storage"
	"github.com/loopcredit/dailybrief/internal/storage/postgres"
	"github.com/loopcredit/dailybrief/internal/taxonomy"
)

func main() {
	configPath := flag.String("config", "dailybrief.yaml", "Path to configuration file")
	dateFlag := flag.String("date", "", "Report date (YYYY-MM-DD), defaults to yesterday UTC")
	serve := flag.Bool("serve", false, "Run the HTTP server instead of a one-shot report")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(resolveConfigPath(*configPath))
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Load Event Taxonomy
	table, fingerprints, err := taxonomy.LoadDir(cfg.Report.TaxonomyDir)
	if err != nil {
		slog.Error("Failed to load taxonomy", "dir", cfg.Report.TaxonomyDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Taxonomy loaded", "raw_events", table.Len(), "override_files", len(fingerprints))

	// 3. Initialize Report Archive (optional)
	var archive storage.ReportArchive
	if cfg.Database.DSN != "" {
		adapter, err := postgres.NewAdapter(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
		)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer adapter.Close()

		if err := migrations.Run(adapter.DB(), cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		archive = adapter
	} else {
		slog.Info("Report archive disabled: no database DSN configured")
	}

	// 4. Initialize Collaborators
	amp := amplitude.New(cfg.Amplitude.APIKey, cfg.Amplitude.SecretKey, cfg.Amplitude.BaseURL)

	var narrator *narrative.Client
	if cfg.Anthropic.Enabled {
		narrator = narrative.New(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, cfg.Anthropic.BaseURL)
	} else {
		slog.Info("Narrative generation disabled by config")
	}

	var sender *email.Sender
	if cfg.Email.Enabled {
		sender, err = email.NewSender(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.Username,
			cfg.Email.Password,
			cfg.Email.From,
			cfg.Email.To,
		)
		if err != nil {
			slog.Error("Failed to configure email delivery", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("Email delivery disabled by config")
	}

	// 5. Initialize Pipeline
	runner := pipeline.New(amp, table, pipeline.Options{
		Aggregate: aggregate.Options{
			Screens: taxonomy.ScreenProps{
				Primary:  cfg.Report.ScreenProperty,
				Fallback: cfg.Report.ScreenFallbackProperty,
			},
			ScreenCap: cfg.Report.ScreenCap,
		},
		Partitions: cfg.Report.Partitions,
		Narrative:  narrator,
		Sender:     sender,
		Archive:    archive,
	})

	if *serve {
		runServer(cfg, runner, archive)
		return
	}

	// 6. One-shot Run (cron mode)
	day, err := resolveDay(*dateFlag)
	if err != nil {
		slog.Error("Invalid --date", "value", *dateFlag, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := runner.Run(ctx, day); err != nil {
		slog.Error("Report run failed", "date", day.Format("2006-01-02"), "error", err)
		os.Exit(1)
	}
}

func runServer(cfg *corecfg.Config, runner *pipeline.Service, archive storage.ReportArchive) {
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), archive, cfg.Server.Mode)
	server.NewReportsAPI(runner, archive).RegisterRoutes(srv.Engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

// resolveConfigPath keeps the default config file optional: an explicit
// --config that does not exist still fails inside Load.
func resolveConfigPath(path string) string {
	if path == "dailybrief.yaml" {
		if _, err := os.Stat(path); err != nil {
			return ""
		}
	}
	return path
}

func resolveDay(dateFlag string) (time.Time, error) {
	if dateFlag == "" {
		return time.Now().UTC().AddDate(0, 0, -1), nil
	}
	return time.Parse("2006-01-02", dateFlag)
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
