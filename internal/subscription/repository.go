package subscription

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

const subscriptionColumns = `id, subscription_number, customer_id, plan_id, branch_id, start_date, end_date, actual_price_cents, status, total_freeze_days_used, current_freeze_start, current_freeze_end, freeze_reason, cancelled_date, cancellation_reason, auto_renew, created_by_id, created_at, updated_at`

const subscriptionNumberAttempts = 5

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, req CreateSubscriptionRequest, actorID int) (*Subscription, error) {
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date: %w", err)
	}

	var customer struct {
		BranchID   int    `db:"branch_id"`
		BranchCode string `db:"code"`
		IsActive   bool   `db:"is_active"`
	}
	err = r.db.GetContext(ctx, &customer, `
		SELECT c.branch_id, b.code, c.is_active
		FROM customers c
		JOIN branches b ON b.id = c.branch_id
		WHERE c.id = $1
	`, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !customer.IsActive {
		return nil, api.Reject("customer account is inactive")
	}

	var plan struct {
		DurationDays int   `db:"duration_days"`
		PriceCents   int64 `db:"price_cents"`
	}
	err = r.db.GetContext(ctx, &plan, `
		SELECT duration_days, price_cents
		FROM subscription_plans
		WHERE id = $1 AND is_active = TRUE
	`, req.PlanID)
	if err != nil {
		return nil, err
	}

	// Price is captured at purchase; later plan edits never touch it.
	priceCents := plan.PriceCents
	if req.ActualPriceCents != nil {
		priceCents = *req.ActualPriceCents
	}
	endDate := startDate.AddDate(0, 0, plan.DurationDays)

	return r.insert(ctx, insertParams{
		customerID:  req.CustomerID,
		planID:      req.PlanID,
		branchID:    customer.BranchID,
		branchCode:  customer.BranchCode,
		startDate:   startDate,
		endDate:     endDate,
		priceCents:  priceCents,
		autoRenew:   req.AutoRenew,
		createdByID: actorID,
	})
}

type insertParams struct {
	customerID  int
	planID      int
	branchID    int
	branchCode  string
	startDate   time.Time
	endDate     time.Time
	priceCents  int64
	autoRenew   bool
	createdByID int
}

func (r *repository) insert(ctx context.Context, p insertParams) (*Subscription, error) {
	query := `
		INSERT INTO subscriptions (subscription_number, customer_id, plan_id, branch_id, start_date, end_date, actual_price_cents, auto_renew, created_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + subscriptionColumns

	for attempt := 0; attempt < subscriptionNumberAttempts; attempt++ {
		number := refcode.New("SUB"+p.branchCode, 6)

		var sub Subscription
		err := r.db.GetContext(ctx, &sub, query,
			number, p.customerID, p.planID, p.branchID,
			p.startDate, p.endDate, p.priceCents, p.autoRenew, p.createdByID,
		)
		if err == nil {
			return &sub, nil
		}
		if isUniqueViolation(err, "subscriptions_subscription_number_key") {
			continue
		}
		return nil, err
	}

	return nil, errors.New("could not allocate a unique subscription number")
}

func (r *repository) GetByID(ctx context.Context, id int) (*Subscription, error) {
	var sub Subscription
	err := r.db.GetContext(ctx, &sub, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Subscription, error) {
	var sub Subscription
	err := r.db.GetContext(ctx, &sub, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE subscription_number = $1`, strings.ToUpper(number))
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Subscription, int, error) {
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
	if filter.BranchID > 0 {
		args = append(args, filter.BranchID)
		where = append(where, fmt.Sprintf("branch_id = $%d", len(args)))
	}
	if !filter.StartsFrom.IsZero() {
		args = append(args, filter.StartsFrom)
		where = append(where, fmt.Sprintf("start_date >= $%d", len(args)))
	}
	if !filter.EndsBy.IsZero() {
		args = append(args, filter.EndsBy)
		where = append(where, fmt.Sprintf("end_date <= $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM subscriptions`+clause, args...); err != nil {
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

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions` + clause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	subs := []Subscription{}
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

// Activate moves pending to active once completed payments cover the
// purchase price. The row lock keeps a concurrent payment completion
// from racing the check.
func (r *repository) Activate(ctx context.Context, id int) (*Subscription, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sub, err := lockSubscription(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if sub.Status != StatusPending {
		return nil, api.Reject("only pending subscriptions can be activated")
	}

	var totalPaid int64
	err = tx.GetContext(ctx, &totalPaid, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM payments
		WHERE subscription_id = $1 AND status = 'completed'
	`, id)
	if err != nil {
		return nil, err
	}

	if !sub.PaidInFull(totalPaid) {
		return nil, api.Reject("payment incomplete: %d of %d cents paid", totalPaid, sub.ActualPriceCents)
	}

	var updated Subscription
	err = tx.QueryRowxContext(ctx, `
		UPDATE subscriptions
		SET status = 'active', updated_at = NOW()
		WHERE id = $1
		RETURNING `+subscriptionColumns, id).StructScan(&updated)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

// PaidTotal sums the completed payments recorded against a subscription.
func (r *repository) PaidTotal(ctx context.Context, id int) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM payments
		WHERE subscription_id = $1 AND status = 'completed'
	`, id)
	return total, err
}

// Freeze pauses an active subscription and pushes the end date out by
// the frozen days. The history row is written in the same transaction
// so the ledger can never miss a freeze.
func (r *repository) Freeze(ctx context.Context, id, days int, reason string, actorID int) (*Subscription, error) {
	if reason == "" {
		reason = "Customer request"
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sub, err := lockSubscription(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	var maxFreezeDays int
	err = tx.GetContext(ctx, &maxFreezeDays, `SELECT max_freeze_days FROM subscription_plans WHERE id = $1`, sub.PlanID)
	if err != nil {
		return nil, err
	}

	if err := sub.CanFreeze(maxFreezeDays, days); err != nil {
		return nil, err
	}

	today := dateOnly(time.Now())
	freezeEnd := today.AddDate(0, 0, days)

	var updated Subscription
	err = tx.QueryRowxContext(ctx, `
		UPDATE subscriptions
		SET status = 'frozen',
		    current_freeze_start = $2,
		    current_freeze_end = $3,
		    freeze_reason = $4,
		    total_freeze_days_used = total_freeze_days_used + $5,
		    end_date = end_date + $5,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+subscriptionColumns, id, today, freezeEnd, reason, days).StructScan(&updated)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscription_freezes (subscription_id, freeze_start, freeze_end, days_frozen, reason, created_by_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, today, freezeEnd, days, reason, actorID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Unfreeze resumes early. Used freeze days are not returned and the end
// date keeps its extension.
func (r *repository) Unfreeze(ctx context.Context, id int) (*Subscription, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sub, err := lockSubscription(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if sub.Status != StatusFrozen {
		return nil, api.Reject("subscription is not frozen")
	}

	var updated Subscription
	err = tx.QueryRowxContext(ctx, `
		UPDATE subscriptions
		SET status = 'active',
		    current_freeze_start = NULL,
		    current_freeze_end = NULL,
		    freeze_reason = NULL,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+subscriptionColumns, id).StructScan(&updated)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *repository) Cancel(ctx context.Context, id int, reason string) (*Subscription, error) {
	if reason == "" {
		reason = "Customer request"
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sub, err := lockSubscription(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if sub.Status == StatusCancelled || sub.Status == StatusExpired {
		return nil, api.Reject("subscription already cancelled/expired")
	}

	var updated Subscription
	err = tx.QueryRowxContext(ctx, `
		UPDATE subscriptions
		SET status = 'cancelled',
		    cancelled_date = CURRENT_DATE,
		    cancellation_reason = $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+subscriptionColumns, id, reason).StructScan(&updated)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Renew issues a fresh pending subscription for the same customer; the
// old row is left untouched. By default the new term starts the day
// after the old one ends, or today if it already ended.
func (r *repository) Renew(ctx context.Context, id int, req RenewRequest, actorID int) (*Subscription, error) {
	old, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	planID := old.PlanID
	if req.PlanID != nil {
		planID = *req.PlanID
	}

	var plan struct {
		DurationDays int   `db:"duration_days"`
		PriceCents   int64 `db:"price_cents"`
	}
	err = r.db.GetContext(ctx, &plan, `
		SELECT duration_days, price_cents
		FROM subscription_plans
		WHERE id = $1 AND is_active = TRUE
	`, planID)
	if err != nil {
		return nil, err
	}

	var startDate time.Time
	if req.StartDate != "" {
		startDate, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start_date: %w", err)
		}
	} else {
		startDate = dateOnly(old.EndDate).AddDate(0, 0, 1)
		if today := dateOnly(time.Now()); startDate.Before(today) {
			startDate = today
		}
	}

	priceCents := plan.PriceCents
	if req.ActualPriceCents != nil {
		priceCents = *req.ActualPriceCents
	}
	autoRenew := old.AutoRenew
	if req.AutoRenew != nil {
		autoRenew = *req.AutoRenew
	}

	var branchCode string
	if err := r.db.GetContext(ctx, &branchCode, `SELECT code FROM branches WHERE id = $1`, old.BranchID); err != nil {
		return nil, err
	}

	return r.insert(ctx, insertParams{
		customerID:  old.CustomerID,
		planID:      planID,
		branchID:    old.BranchID,
		branchCode:  branchCode,
		startDate:   startDate,
		endDate:     startDate.AddDate(0, 0, plan.DurationDays),
		priceCents:  priceCents,
		autoRenew:   autoRenew,
		createdByID: actorID,
	})
}

// GetActiveForCustomer returns the active subscription whose term covers
// the given day. If data drift ever leaves a customer with overlapping
// active terms, the most recently created one wins.
func (r *repository) GetActiveForCustomer(ctx context.Context, customerID int, day time.Time) (*Subscription, error) {
	var sub Subscription
	err := r.db.GetContext(ctx, &sub, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE customer_id = $1
		  AND status = 'active'
		  AND start_date <= $2
		  AND end_date >= $2
		ORDER BY created_at DESC
		LIMIT 1
	`, customerID, dateOnly(day))
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) ListExpiring(ctx context.Context, daysAhead, branchID int) ([]Subscription, error) {
	if daysAhead <= 0 {
		daysAhead = 7
	}

	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = 'active'
		  AND end_date >= CURRENT_DATE
		  AND end_date <= CURRENT_DATE + $1
	`
	args := []interface{}{daysAhead}
	if branchID > 0 {
		query += ` AND branch_id = $2`
		args = append(args, branchID)
	}
	query += ` ORDER BY end_date ASC`

	subs := []Subscription{}
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) FreezeHistory(ctx context.Context, id int) ([]Freeze, error) {
	freezes := []Freeze{}
	err := r.db.SelectContext(ctx, &freezes, `
		SELECT id, subscription_id, freeze_start, freeze_end, days_frozen, reason, created_by_id, created_at
		FROM subscription_freezes
		WHERE subscription_id = $1
		ORDER BY created_at DESC
	`, id)
	if err != nil {
		return nil, err
	}
	return freezes, nil
}

// PlanCount pairs a plan name with its active subscription count.
type PlanCount struct {
	PlanName string `db:"plan_name"`
	Count    int    `db:"count"`
}

func (r *repository) ActiveCountsByPlan(ctx context.Context) ([]PlanCount, error) {
	counts := []PlanCount{}
	err := r.db.SelectContext(ctx, &counts, `
		SELECT p.name AS plan_name, COUNT(*) AS count
		FROM subscriptions s
		JOIN subscription_plans p ON p.id = s.plan_id
		WHERE s.status = 'active'
		GROUP BY p.name
	`)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// ExpireOverdue flips active subscriptions whose end date has passed.
// Run by the sweeper; safe to call concurrently since the predicate and
// the update are one statement.
func (r *repository) ExpireOverdue(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND end_date < CURRENT_DATE
	`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// UnfreezeElapsed resumes frozen subscriptions whose freeze window has
// ended.
func (r *repository) UnfreezeElapsed(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'active',
		    current_freeze_start = NULL,
		    current_freeze_end = NULL,
		    freeze_reason = NULL,
		    updated_at = NOW()
		WHERE status = 'frozen' AND current_freeze_end < CURRENT_DATE
	`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func lockSubscription(ctx context.Context, tx *sqlx.Tx, id int) (*Subscription, error) {
	var sub Subscription
	err := tx.GetContext(ctx, &sub, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == constraint
	}
	return false
}
