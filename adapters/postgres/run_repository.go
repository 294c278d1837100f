package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"

	"gouplift/domain/core"
	"gouplift/domain/run"
	apperrors "gouplift/internal/errors"
	"gouplift/internal/migration"
	"gouplift/ports"

	"github.com/jmoiron/sqlx"
)

// DefaultListLimit caps List when no positive limit is given
const DefaultListLimit = 50

// RunRepositoryImpl implements RunRepository over sqlx. Queries are written
// with ? placeholders and rebound for the connected driver.
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// Migrate applies pending schema migrations
func (r *RunRepositoryImpl) Migrate(ctx context.Context) error {
	return migration.NewRunner().Run(ctx, r.db)
}

// Save stores the report JSON plus queryable significance and ROI rows
func (r *RunRepositoryImpl) Save(ctx context.Context, report *run.Report) error {
	if report == nil {
		return apperrors.DataError("cannot save a nil report")
	}
	m := report.Manifest
	if err := m.Validate(); err != nil {
		return apperrors.DataError("save run: invalid report: %v", err)
	}
	body, err := json.Marshal(report)
	if err != nil {
		return apperrors.InternalError("encode report: " + err.Error())
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.DatabaseError("begin save run", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO runs (id, fingerprint, data_source, record_count, outcome, failure_count, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), m.RunID.String(), m.Fingerprint.String(), m.DataSource, m.RecordCount, string(m.Outcome),
		report.FailureCount(), string(body), m.CreatedAt.UTC()); err != nil {
		return apperrors.DatabaseError("insert run "+m.RunID.String(), err)
	}

	sigStmt := r.db.Rebind(`
		INSERT INTO significance_results (run_id, kind, treatment, control, statistic, p_value, effect, indeterminate, error_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, c := range report.Conversion {
		var stat, p, effect sql.NullFloat64
		indeterminate := false
		if c.Result != nil {
			stat, p, effect = nullable(c.Result.Z), nullable(c.Result.PValue), nullable(c.Result.AbsLift)
			indeterminate = c.Result.Indeterminate
		}
		if _, err := tx.ExecContext(ctx, sigStmt, m.RunID.String(), "conversion", string(c.Pair.Treatment), string(c.Pair.Control),
			stat, p, effect, indeterminate, failureCode(c.Failure)); err != nil {
			return apperrors.DatabaseError("insert conversion result", err)
		}
	}
	for _, s := range report.Spend {
		var stat, p, effect sql.NullFloat64
		indeterminate := false
		if s.Result != nil {
			stat, p, effect = nullable(s.Result.T), nullable(s.Result.PValue), nullable(s.Result.MeanDiff)
			indeterminate = s.Result.Indeterminate
		}
		if _, err := tx.ExecContext(ctx, sigStmt, m.RunID.String(), "spend", string(s.Pair.Treatment), string(s.Pair.Control),
			stat, p, effect, indeterminate, failureCode(s.Failure)); err != nil {
			return apperrors.DatabaseError("insert spend result", err)
		}
	}

	roiStmt := r.db.Rebind(`
		INSERT INTO roi_rows (run_id, treatment, control, k, uplift_at_k, n_mailed, incremental_conversions,
			revenue_gain, email_cost, net_profit, realized_uplift_at_k)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, u := range report.Uplift {
		for _, row := range u.ROI {
			if _, err := tx.ExecContext(ctx, roiStmt, m.RunID.String(), string(u.Pair.Treatment), string(u.Pair.Control),
				row.K, row.UpliftAtK, row.NMailed, row.IncrementalConversions, row.RevenueGain,
				row.EmailCost, row.NetProfit, row.RealizedUpliftAtK); err != nil {
				return apperrors.DatabaseError("insert roi row", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.DatabaseError("commit run", err)
	}
	return nil
}

// Get loads a stored report by run ID
func (r *RunRepositoryImpl) Get(ctx context.Context, id core.RunID) (*run.Report, error) {
	var body string
	err := r.db.GetContext(ctx, &body, r.db.Rebind(`SELECT report FROM runs WHERE id = ?`), id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("run " + id.String())
	}
	if err != nil {
		return nil, apperrors.DatabaseError("get run "+id.String(), err)
	}

	var report run.Report
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, apperrors.DatabaseError("decode stored report "+id.String(), err)
	}
	return &report, nil
}

// List returns run summaries, newest first
func (r *RunRepositoryImpl) List(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	summaries := []ports.RunSummary{}
	err := r.db.SelectContext(ctx, &summaries, r.db.Rebind(`
		SELECT id, fingerprint, data_source, record_count, outcome, failure_count, created_at
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, apperrors.DatabaseError("list runs", err)
	}
	return summaries, nil
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func failureCode(f *run.Failure) sql.NullString {
	if f == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: f.Code, Valid: true}
}
