package storage

import (
	"context"
	"errors"
	"time"

	"github.com/loopcredit/dailybrief/internal/aggregate"
	"github.com/loopcredit/dailybrief/internal/narrative"
)

// ErrNotFound is returned when no archived report exists for a date.
var ErrNotFound = errors.New("report not found")

// ArchivedReport is one stored run: the structured report plus the
// narrative that was generated for it.
type ArchivedReport struct {
	Date      string              `json:"date"`
	RunID     string              `json:"run_id"`
	Report    *aggregate.Report   `json:"report"`
	Analysis  *narrative.Analysis `json:"analysis"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// ReportArchive stores one report per calendar day. Saving the same date
// twice replaces the row, which keeps backfills idempotent. The engine
// itself never reads the archive — it exists for delivery history and the
// serve mode.
type ReportArchive interface {
	SaveReport(ctx context.Context, rec *ArchivedReport) error
	GetReport(ctx context.Context, date string) (*ArchivedReport, error)
	Ping(ctx context.Context) error
	Close() error
}
