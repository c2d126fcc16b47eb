package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loopcredit/dailybrief/internal/aggregate"
	"github.com/loopcredit/dailybrief/internal/amplitude"
	"github.com/loopcredit/dailybrief/internal/email"
	"github.com/loopcredit/dailybrief/internal/narrative"
	"github.com/loopcredit/dailybrief/internal/storage"
	"github.com/loopcredit/dailybrief/internal/taxonomy"
)

// Options carries the optional collaborators of a run. A nil Narrative
// client means the report ships with a placeholder analysis, a nil
// Sender skips delivery, a nil Archive skips persistence.
type Options struct {
	Aggregate  aggregate.Options
	Partitions int

	Narrative *narrative.Client
	Sender    *email.Sender
	Archive   storage.ReportArchive
}

// Service runs the full daily pass: export, aggregate, narrate,
// archive, deliver.
type Service struct {
	amp   *amplitude.Client
	table *taxonomy.Table
	opts  Options
}

func New(amp *amplitude.Client, table *taxonomy.Table, opts Options) *Service {
	if opts.Partitions <= 0 {
		opts.Partitions = 1
	}
	return &Service{amp: amp, table: table, opts: opts}
}

// Run produces, archives and delivers the report for one calendar day.
// The narrative step is best-effort: an Anthropic failure downgrades to
// a placeholder analysis instead of failing the run. Export, archive
// and delivery failures abort.
func (s *Service) Run(ctx context.Context, day time.Time) (*storage.ArchivedReport, error) {
	runID := uuid.NewString()
	date := day.Format("2006-01-02")
	started := time.Now()

	slog.Info("Starting daily report run", "run_id", runID, "date", date)

	// Segmentation pre-flight: a cheap uniques probe that confirms the
	// project has data for the day before the heavy export download.
	dau := s.amp.DAU(ctx, day)
	slog.Info("Segmentation pre-flight", "run_id", runID, "date", date, "active_uniques", dau)

	events, err := s.amp.ExportDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to export events for %s: %w", date, err)
	}
	slog.Info("Export complete", "run_id", runID, "date", date, "events", len(events))

	var report *aggregate.Report
	if s.opts.Partitions > 1 {
		report, err = aggregate.RunPartitioned(ctx, events, s.opts.Partitions, s.table, s.opts.Aggregate, date)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate events for %s: %w", date, err)
		}
	} else {
		report = aggregate.Run(events, s.table, s.opts.Aggregate, date)
	}
	slog.Info("Aggregation complete",
		"run_id", runID,
		"date", date,
		"active_users", report.TotalActiveUsers,
		"new_signups", report.NewSignupCount,
		"total_events", report.TotalEvents,
	)

	analysis := narrative.Placeholder()
	if s.opts.Narrative != nil {
		generated, nerr := s.opts.Narrative.Analyze(ctx, report, day)
		if nerr != nil {
			slog.Warn("Narrative generation failed, using placeholder", "run_id", runID, "error", nerr)
		} else {
			analysis = generated
		}
	}

	now := time.Now().UTC()
	rec := &storage.ArchivedReport{
		Date:      date,
		RunID:     runID,
		Report:    report,
		Analysis:  analysis,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.opts.Archive != nil {
		if err := s.opts.Archive.SaveReport(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to archive report for %s: %w", date, err)
		}
		slog.Info("Report archived", "run_id", runID, "date", date)
	}

	if s.opts.Sender != nil {
		if err := s.opts.Sender.SendReport(report, analysis, day); err != nil {
			return nil, fmt.Errorf("failed to deliver report for %s: %w", date, err)
		}
		slog.Info("Report delivered", "run_id", runID, "date", date)
	}

	slog.Info("Daily report run complete", "run_id", runID, "date", date, "duration", time.Since(started))
	return rec, nil
}
