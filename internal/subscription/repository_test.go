package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/zyadwael2009/gym/internal/api"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupSubMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func subColumnsList() []string {
	return []string{
		"id", "subscription_number", "customer_id", "plan_id", "branch_id",
		"start_date", "end_date", "actual_price_cents", "status",
		"total_freeze_days_used", "current_freeze_start", "current_freeze_end",
		"freeze_reason", "cancelled_date", "cancellation_reason", "auto_renew",
		"created_by_id", "created_at", "updated_at",
	}
}

func subRow(id int, status string, priceCents int64, freezeDaysUsed int) *sqlmock.Rows {
	now := time.Now()
	start := day("2026-01-01")
	end := day("2026-03-31")
	return sqlmock.NewRows(subColumnsList()).AddRow(
		id, "SUBDT260101ABC123", 5, 2, 1,
		start, end, priceCents, status,
		freezeDaysUsed, nil, nil,
		nil, nil, nil, false,
		3, now, now,
	)
}

func TestActivate_PaymentCovered(t *testing.T) {
	repo, mock, close := setupSubMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM subscriptions WHERE id = \$1 FOR UPDATE`).
		WithArgs(10).
		WillReturnRows(subRow(10, StatusPending, 50000, 0))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount_cents\), 0\)`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(50000))
	mock.ExpectQuery(`UPDATE subscriptions\s+SET status = 'active'`).
		WithArgs(10).
		WillReturnRows(subRow(10, StatusActive, 50000, 0))
	mock.ExpectCommit()

	sub, err := repo.Activate(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, StatusActive, sub.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivate_PartialPaymentRejected(t *testing.T) {
	repo, mock, close := setupSubMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM subscriptions WHERE id = \$1 FOR UPDATE`).
		WithArgs(10).
		WillReturnRows(subRow(10, StatusPending, 50000, 0))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount_cents\), 0\)`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(30000))
	mock.ExpectRollback()

	_, err := repo.Activate(context.Background(), 10)
	require.True(t, api.IsRejection(err))
	require.EqualError(t, err, "payment incomplete: 30000 of 50000 cents paid")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivate_NotPending(t *testing.T) {
	repo, mock, close := setupSubMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM subscriptions WHERE id = \$1 FOR UPDATE`).
		WithArgs(10).
		WillReturnRows(subRow(10, StatusActive, 50000, 0))
	mock.ExpectRollback()

	_, err := repo.Activate(context.Background(), 10)
	require.True(t, api.IsRejection(err))
	require.EqualError(t, err, "only pending subscriptions can be activated")
}

func TestFreeze_WritesHistoryInSameTransaction(t *testing.T) {
	repo, mock, close := setupSubMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM subscriptions WHERE id = \$1 FOR UPDATE`).
		WithArgs(10).
		WillReturnRows(subRow(10, StatusActive, 50000, 3))
	mock.ExpectQuery(`SELECT max_freeze_days FROM subscription_plans`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"max_freeze_days"}).AddRow(14))
	mock.ExpectQuery(`UPDATE subscriptions\s+SET status = 'frozen'`).
		WillReturnRows(subRow(10, StatusFrozen, 50000, 10))
	mock.ExpectExec(`INSERT INTO subscription_freezes`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	sub, err := repo.Freeze(context.Background(), 10, 7, "travel", 3)
	require.NoError(t, err)
	require.Equal(t, StatusFrozen, sub.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFreeze_OverAllowanceRollsBack(t *testing.T) {
	repo, mock, close := setupSubMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM subscriptions WHERE id = \$1 FOR UPDATE`).
		WithArgs(10).
		WillReturnRows(subRow(10, StatusActive, 50000, 10))
	mock.ExpectQuery(`SELECT max_freeze_days FROM subscription_plans`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"max_freeze_days"}).AddRow(14))
	mock.ExpectRollback()

	_, err := repo.Freeze(context.Background(), 10, 7, "", 3)
	require.True(t, api.IsRejection(err))
	require.EqualError(t, err, "only 4 freeze days remaining")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnfreeze_NotFrozen(t *testing.T) {
	repo, mock, close := setupSubMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM subscriptions WHERE id = \$1 FOR UPDATE`).
		WithArgs(10).
		WillReturnRows(subRow(10, StatusActive, 50000, 0))
	mock.ExpectRollback()

	_, err := repo.Unfreeze(context.Background(), 10)
	require.True(t, api.IsRejection(err))
	require.EqualError(t, err, "subscription is not frozen")
}

func TestCancel_AlreadyTerminal(t *testing.T) {
	repo, mock, close := setupSubMock(t)
	defer close()

	for _, status := range []string{StatusCancelled, StatusExpired} {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .+ FROM subscriptions WHERE id = \$1 FOR UPDATE`).
			WithArgs(10).
			WillReturnRows(subRow(10, status, 50000, 0))
		mock.ExpectRollback()

		_, err := repo.Cancel(context.Background(), 10, "moving away")
		require.True(t, api.IsRejection(err))
		require.EqualError(t, err, "subscription already cancelled/expired")
	}
}

func TestExpireOverdue(t *testing.T) {
	repo, mock, close := setupSubMock(t)
	defer close()

	mock.ExpectExec(`UPDATE subscriptions\s+SET status = 'expired'`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ExpireOverdue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestUnfreezeElapsed(t *testing.T) {
	repo, mock, close := setupSubMock(t)
	defer close()

	mock.ExpectExec(`UPDATE subscriptions\s+SET status = 'active'`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.UnfreezeElapsed(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestGetActiveForCustomer_LatestCreatedWins(t *testing.T) {
	repo, mock, close := setupSubMock(t)
	defer close()

	mock.ExpectQuery(`status = 'active'[\s\S]+ORDER BY created_at DESC\s+LIMIT 1`).
		WithArgs(5, day("2026-02-15")).
		WillReturnRows(subRow(11, StatusActive, 50000, 0))

	sub, err := repo.GetActiveForCustomer(context.Background(), 5, day("2026-02-15"))
	require.NoError(t, err)
	require.Equal(t, 11, sub.ID)
}

func TestPaidTotal(t *testing.T) {
	repo, mock, close := setupSubMock(t)
	defer close()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount_cents\), 0\)`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(30000))

	total, err := repo.PaidTotal(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, int64(30000), total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveCountsByPlan(t *testing.T) {
	repo, mock, close := setupSubMock(t)
	defer close()

	mock.ExpectQuery(`SELECT p\.name AS plan_name, COUNT\(\*\) AS count`).
		WillReturnRows(sqlmock.NewRows([]string{"plan_name", "count"}).
			AddRow("Monthly", 12).
			AddRow("Annual", 3))

	counts, err := repo.ActiveCountsByPlan(context.Background())
	require.NoError(t, err)
	require.Equal(t, []PlanCount{{PlanName: "Monthly", Count: 12}, {PlanName: "Annual", Count: 3}}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}
