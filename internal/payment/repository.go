package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zyadwael2009/gym/internal/api"
	"github.com/zyadwael2009/gym/internal/refcode"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const paymentColumns = `id, payment_number, subscription_id, customer_id, branch_id, amount_cents, payment_method, status, payment_date, payment_time, service_type, description, reference_number, processed_by_id, refund_date, refund_reason, refund_processed_by_id, created_at, updated_at`

const paymentNumberAttempts = 5

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, req CreatePaymentRequest, actorID int) (*Payment, error) {
	var branchID int
	err := r.db.GetContext(ctx, &branchID, `SELECT branch_id FROM customers WHERE id = $1`, req.CustomerID)
	if err != nil {
		return nil, err
	}

	if req.SubscriptionID != nil {
		var owner int
		err := r.db.GetContext(ctx, &owner, `SELECT customer_id FROM subscriptions WHERE id = $1`, *req.SubscriptionID)
		if err != nil {
			return nil, err
		}
		if owner != req.CustomerID {
			return nil, api.Reject("subscription does not belong to this customer")
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO payments (payment_number, subscription_id, customer_id, branch_id, amount_cents, payment_method, service_type, description, processed_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + paymentColumns

	var payment Payment
	for attempt := 0; attempt < paymentNumberAttempts; attempt++ {
		number := refcode.New("PAY", 8)

		err = tx.GetContext(ctx, &payment, query,
			number, req.SubscriptionID, req.CustomerID, branchID,
			req.AmountCents, req.PaymentMethod, req.ServiceType, req.Description, actorID,
		)
		if err == nil {
			break
		}
		if isUniqueViolation(err, "payments_payment_number_key") {
			continue
		}
		return nil, err
	}
	if err != nil {
		return nil, errors.New("could not allocate a unique payment number")
	}

	if err := writeAudit(ctx, tx, payment.ID, "created", nil, StatusPending, actorID, ""); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Payment, error) {
	var payment Payment
	err := r.db.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Payment, error) {
	var payment Payment
	err := r.db.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM payments WHERE payment_number = $1`, strings.ToUpper(number))
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// SetReference stores the gateway order id so the asynchronous
// callback can find the payment again.
func (r *repository) SetReference(ctx context.Context, id int, reference string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET reference_number = $2, updated_at = NOW()
		WHERE id = $1
	`, id, reference)
	return err
}

func (r *repository) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	var payment Payment
	err := r.db.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM payments WHERE reference_number = $1`, reference)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Payment, int, error) {
	where := []string{}
	args := []interface{}{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.SubscriptionID > 0 {
		args = append(args, filter.SubscriptionID)
		where = append(where, fmt.Sprintf("subscription_id = $%d", len(args)))
	}
	if filter.BranchID > 0 {
		args = append(args, filter.BranchID)
		where = append(where, fmt.Sprintf("branch_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("payment_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("payment_date <= $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM payments`+clause, args...); err != nil {
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

	query := `SELECT ` + paymentColumns + ` FROM payments` + clause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	payments := []Payment{}
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// Complete marks a pending payment completed and, when the payment is
// tied to a pending subscription whose completed payments now cover its
// price, activates that subscription in the same transaction.
func (r *repository) Complete(ctx context.Context, id, actorID int, reference string) (*CompleteResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	payment, err := lockPayment(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if payment.Status != StatusPending {
		return nil, api.Reject("payment already processed or failed")
	}

	var refArg *string
	if reference != "" {
		refArg = &reference
	}

	var updated Payment
	err = tx.QueryRowxContext(ctx, `
		UPDATE payments
		SET status = 'completed',
		    payment_time = NOW(),
		    reference_number = COALESCE($2, reference_number),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+paymentColumns, id, refArg).StructScan(&updated)
	if err != nil {
		return nil, err
	}

	old := StatusPending
	if err := writeAudit(ctx, tx, id, "completed", &old, StatusCompleted, actorID, reference); err != nil {
		return nil, err
	}

	activated := false
	if updated.SubscriptionID != nil {
		// Lock the subscription so a concurrent manual activation
		// cannot race the paid-in-full check.
		subID := *updated.SubscriptionID
		var sub struct {
			Status     string `db:"status"`
			PriceCents int64  `db:"actual_price_cents"`
		}
		err = tx.GetContext(ctx, &sub, `
			SELECT status, actual_price_cents
			FROM subscriptions
			WHERE id = $1
			FOR UPDATE
		`, subID)
		if err != nil {
			return nil, err
		}

		if sub.Status == "pending" {
			var totalPaid int64
			err = tx.GetContext(ctx, &totalPaid, `
				SELECT COALESCE(SUM(amount_cents), 0)
				FROM payments
				WHERE subscription_id = $1 AND status = 'completed'
			`, subID)
			if err != nil {
				return nil, err
			}

			if totalPaid >= sub.PriceCents {
				_, err = tx.ExecContext(ctx, `
					UPDATE subscriptions
					SET status = 'active', updated_at = NOW()
					WHERE id = $1
				`, subID)
				if err != nil {
					return nil, err
				}
				activated = true
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &CompleteResult{Payment: &updated, SubscriptionActivated: activated}, nil
}

func (r *repository) MarkFailed(ctx context.Context, id, actorID int, reason string) (*Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	payment, err := lockPayment(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if payment.Status != StatusPending {
		return nil, api.Reject("payment already processed or failed")
	}

	var updated Payment
	err = tx.QueryRowxContext(ctx, `
		UPDATE payments
		SET status = 'failed', updated_at = NOW()
		WHERE id = $1
		RETURNING `+paymentColumns, id).StructScan(&updated)
	if err != nil {
		return nil, err
	}

	old := StatusPending
	if err := writeAudit(ctx, tx, id, "failed", &old, StatusFailed, actorID, reason); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Refund moves a completed payment to refunded. The linked subscription
// is deliberately left alone; revoking access is a separate staff
// decision via cancel.
func (r *repository) Refund(ctx context.Context, id, actorID int, reason string) (*Payment, error) {
	if reason == "" {
		reason = "Customer request"
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	payment, err := lockPayment(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if payment.Status != StatusCompleted {
		return nil, api.Reject("only completed payments can be refunded")
	}

	var updated Payment
	err = tx.QueryRowxContext(ctx, `
		UPDATE payments
		SET status = 'refunded',
		    refund_date = CURRENT_DATE,
		    refund_reason = $2,
		    refund_processed_by_id = $3,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+paymentColumns, id, reason, actorID).StructScan(&updated)
	if err != nil {
		return nil, err
	}

	old := StatusCompleted
	if err := writeAudit(ctx, tx, id, "refunded", &old, StatusRefunded, actorID, reason); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *repository) AuditTrail(ctx context.Context, paymentID int) ([]AuditLog, error) {
	logs := []AuditLog{}
	err := r.db.SelectContext(ctx, &logs, `
		SELECT id, payment_id, action, old_status, new_status, actor_id, notes, created_at
		FROM payment_audit_logs
		WHERE payment_id = $1
		ORDER BY created_at ASC
	`, paymentID)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repository) Summarize(ctx context.Context, branchID int, from, to time.Time) (*Summary, error) {
	where := `WHERE payment_date >= $1 AND payment_date <= $2`
	args := []interface{}{from, to}
	if branchID > 0 {
		where += ` AND branch_id = $3`
		args = append(args, branchID)
	}

	var totals struct {
		TotalCents     int64 `db:"total_cents"`
		CompletedCount int   `db:"completed_count"`
		RefundedCents  int64 `db:"refunded_cents"`
	}
	err := r.db.GetContext(ctx, &totals, `
		SELECT
			COALESCE(SUM(amount_cents) FILTER (WHERE status = 'completed'), 0) AS total_cents,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed_count,
			COALESCE(SUM(amount_cents) FILTER (WHERE status = 'refunded'), 0) AS refunded_cents
		FROM payments `+where, args...)
	if err != nil {
		return nil, err
	}

	rows := []struct {
		Method string `db:"payment_method"`
		Cents  int64  `db:"cents"`
	}{}
	err = r.db.SelectContext(ctx, &rows, `
		SELECT payment_method, COALESCE(SUM(amount_cents), 0) AS cents
		FROM payments `+where+` AND status = 'completed'
		GROUP BY payment_method
	`, args...)
	if err != nil {
		return nil, err
	}

	byMethod := map[string]int64{}
	for _, row := range rows {
		byMethod[row.Method] = row.Cents
	}

	return &Summary{
		TotalCents:     totals.TotalCents,
		CompletedCount: totals.CompletedCount,
		RefundedCents:  totals.RefundedCents,
		ByMethod:       byMethod,
	}, nil
}

func lockPayment(ctx context.Context, tx *sqlx.Tx, id int) (*Payment, error) {
	var payment Payment
	err := tx.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func writeAudit(ctx context.Context, tx *sqlx.Tx, paymentID int, action string, oldStatus *string, newStatus string, actorID int, notes string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payment_audit_logs (payment_id, action, old_status, new_status, actor_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, paymentID, action, oldStatus, newStatus, actorID, notes)
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == constraint
	}
	return false
}
