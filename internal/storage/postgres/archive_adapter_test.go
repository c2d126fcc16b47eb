package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/loopcredit/dailybrief/internal/aggregate"
	"github.com/loopcredit/dailybrief/internal/narrative"
	"github.com/loopcredit/dailybrief/internal/storage"
)

// newMockAdapter wires an Adapter onto a sqlmock connection with the
// prepared statements it expects.
func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta(querySaveReport))
	stmtSave, err := db.Prepare(querySaveReport)
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta(queryGetReport))
	stmtGet, err := db.Prepare(queryGetReport)
	require.NoError(t, err)

	return &Adapter{db: db, stmtSave: stmtSave, stmtGet: stmtGet}, mock
}

func sampleArchived(t *testing.T) *storage.ArchivedReport {
	t.Helper()
	return &storage.ArchivedReport{
		Date:  "2025-03-15",
		RunID: "run-1",
		Report: &aggregate.Report{
			Date:             "2025-03-15",
			TotalActiveUsers: 3,
			NewSignupCount:   1,
			NewSignups:       []aggregate.CohortUser{},
			AllUsers:         []aggregate.CohortUser{},
		},
		Analysis: &narrative.Analysis{ExecutiveSummary: "quiet day"},
	}
}

func TestAdapter_SaveReport(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	rec := sampleArchived(t)

	mock.ExpectExec(regexp.QuoteMeta(querySaveReport)).
		WithArgs(rec.Date, rec.RunID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.SaveReport(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_SaveReport_ExecError(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	rec := sampleArchived(t)

	mock.ExpectExec(regexp.QuoteMeta(querySaveReport)).
		WithArgs(rec.Date, rec.RunID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(sql.ErrConnDone)

	err := adapter.SaveReport(context.Background(), rec)
	require.ErrorContains(t, err, "failed to save report")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_GetReport(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	rec := sampleArchived(t)

	reportJSON, err := json.Marshal(rec.Report)
	require.NoError(t, err)
	analysisJSON, err := json.Marshal(rec.Analysis)
	require.NoError(t, err)

	now := time.Date(2025, 3, 16, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(queryGetReport)).
		WithArgs("2025-03-15").
		WillReturnRows(sqlmock.
			NewRows([]string{"report_date", "run_id", "report", "analysis", "created_at", "updated_at"}).
			AddRow("2025-03-15", "run-1", reportJSON, analysisJSON, now, now))

	got, err := adapter.GetReport(context.Background(), "2025-03-15")
	require.NoError(t, err)
	require.Equal(t, "run-1", got.RunID)
	require.Equal(t, 3, got.Report.TotalActiveUsers)
	require.Equal(t, "quiet day", got.Analysis.ExecutiveSummary)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_GetReport_NotFound(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetReport)).
		WithArgs("2025-03-14").
		WillReturnRows(sqlmock.NewRows([]string{"report_date", "run_id", "report", "analysis", "created_at", "updated_at"}))

	_, err := adapter.GetReport(context.Background(), "2025-03-14")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
