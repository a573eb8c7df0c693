package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zyadwael2009/gym/internal/api"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const recordColumns = `id, customer_id, branch_id, entry_date, entry_time, exit_time, entry_method, biometric_verified, access_granted, denial_reason, processed_by_id, notes, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Insert persists the attempt. A granted insert can still lose the race
// against a concurrent check-in; the partial unique index catches that
// and the attempt is stored as denied instead of dropped.
func (r *repository) Insert(ctx context.Context, rec InsertRecord) (*Record, error) {
	method := rec.EntryMethod
	if method == "" {
		method = MethodManual
	}
	biometricVerified := method == MethodBiometric

	query := `
		INSERT INTO attendance_records (customer_id, branch_id, entry_method, biometric_verified, access_granted, denial_reason, processed_by_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + recordColumns

	var record Record
	err := r.db.GetContext(ctx, &record, query,
		rec.CustomerID, rec.BranchID, method, biometricVerified,
		rec.AccessGranted, rec.DenialReason, rec.ProcessedByID, rec.Notes,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "attendance_open_entry_idx" {
			reason := "customer already checked in today"
			rec.AccessGranted = false
			rec.DenialReason = &reason
			err = r.db.GetContext(ctx, &record, query,
				rec.CustomerID, rec.BranchID, method, biometricVerified,
				rec.AccessGranted, rec.DenialReason, rec.ProcessedByID, rec.Notes,
			)
		}
		if err != nil {
			return nil, err
		}
	}

	return &record, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Record, error) {
	var record Record
	err := r.db.GetContext(ctx, &record, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) HasOpenEntry(ctx context.Context, customerID int, day time.Time) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM attendance_records
			WHERE customer_id = $1
			  AND entry_date = $2
			  AND access_granted = TRUE
			  AND exit_time IS NULL
		)
	`, customerID, day)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// MarkExit closes an open entry. A supplied clock time is anchored to
// the entry's date and stored as written, even when it lands before the
// entry; duration math reads that as an exit past midnight.
func (r *repository) MarkExit(ctx context.Context, id int, exitClock *time.Time) (*Record, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var record Record
	err = tx.GetContext(ctx, &record, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}

	if !record.AccessGranted {
		return nil, api.Reject("entry was denied; nothing to check out")
	}
	if record.ExitTime != nil {
		return nil, api.Reject("already checked out")
	}

	exitAt := time.Now()
	if exitClock != nil {
		e := record.EntryTime
		exitAt = time.Date(e.Year(), e.Month(), e.Day(), exitClock.Hour(), exitClock.Minute(), 0, 0, e.Location())
	}

	var updated Record
	err = tx.QueryRowxContext(ctx, `
		UPDATE attendance_records
		SET exit_time = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+recordColumns, id, exitAt).StructScan(&updated)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Record, int, error) {
	where := []string{}
	args := []interface{}{}

	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.BranchID > 0 {
		args = append(args, filter.BranchID)
		where = append(where, fmt.Sprintf("branch_id = $%d", len(args)))
	}
	if !filter.Date.IsZero() {
		args = append(args, filter.Date)
		where = append(where, fmt.Sprintf("entry_date = $%d", len(args)))
	}
	if filter.OnlyDenied {
		where = append(where, "access_granted = FALSE")
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM attendance_records`+clause, args...); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	args = append(args, perPage, (page-1)*perPage)

	query := `SELECT ` + recordColumns + ` FROM attendance_records` + clause +
		fmt.Sprintf(" ORDER BY entry_time DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	records := []Record{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *repository) DaySummary(ctx context.Context, branchID int, day time.Time) (*DaySummary, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE access_granted AND exit_time IS NULL) AS inside,
			COUNT(*) FILTER (WHERE access_granted AND exit_time IS NOT NULL) AS checked_out,
			COUNT(*) FILTER (WHERE NOT access_granted) AS denied
		FROM attendance_records
		WHERE entry_date = $1
	`
	args := []interface{}{day}
	if branchID > 0 {
		query += ` AND branch_id = $2`
		args = append(args, branchID)
	}

	var summary DaySummary
	err := r.db.QueryRowxContext(ctx, query, args...).Scan(&summary.Inside, &summary.CheckedOut, &summary.Denied)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *repository) CustomerHistory(ctx context.Context, customerID, limit int) ([]Record, *VisitStats, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}

	records := []Record{}
	err := r.db.SelectContext(ctx, &records, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE customer_id = $1
		ORDER BY entry_time DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, nil, err
	}

	var stats VisitStats
	err = r.db.QueryRowxContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE access_granted) AS total_visits,
			COUNT(*) FILTER (WHERE NOT access_granted) AS denied_attempts,
			COALESCE(AVG(EXTRACT(EPOCH FROM (exit_time - entry_time)) / 60) FILTER (WHERE exit_time IS NOT NULL), 0) AS avg_minutes
		FROM attendance_records
		WHERE customer_id = $1
	`, customerID).Scan(&stats.TotalVisits, &stats.DeniedAttempts, &stats.AvgMinutes)
	if err != nil {
		return nil, nil, err
	}

	return records, &stats, nil
}
