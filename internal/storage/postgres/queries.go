package postgres

// SQL queries for the daily report archive

const (
	// querySaveReport upserts the one row per report date. A rerun or
	// backfill for the same date replaces the stored report in place.
	querySaveReport = `
		INSERT INTO daily_reports (
			report_date, run_id, report, analysis, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (report_date) DO UPDATE SET
			run_id     = EXCLUDED.run_id,
			report     = EXCLUDED.report,
			analysis   = EXCLUDED.analysis,
			updated_at = NOW()
	`

	// queryGetReport fetches the archived report for one date.
	queryGetReport = `
		SELECT report_date, run_id, report, analysis, created_at, updated_at
		FROM daily_reports
		WHERE report_date = $1
	`
)
