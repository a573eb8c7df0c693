package plan

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupPlanMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func planRows(id int, name string, days int, priceCents int64, freezeDays int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "description", "duration_days", "price_cents", "access_hours",
		"includes_trainer", "includes_nutrition", "max_freeze_days", "is_active",
		"created_at", "updated_at",
	}).AddRow(id, name, "", days, priceCents, "24x7", false, false, freezeDays, true, now, now)
}

func TestCreatePlan(t *testing.T) {
	repo, mock, close := setupPlanMock(t)
	defer close()

	mock.ExpectQuery(`INSERT INTO subscription_plans`).
		WithArgs("Quarterly", "", 90, int64(150000), "24x7", false, false, 14).
		WillReturnRows(planRows(3, "Quarterly", 90, 150000, 14))

	plan, err := repo.Create(context.Background(), CreatePlanRequest{
		Name:          "Quarterly",
		DurationDays:  90,
		PriceCents:    150000,
		AccessHours:   "24x7",
		MaxFreezeDays: 14,
	})
	require.NoError(t, err)
	require.Equal(t, 3, plan.ID)
	require.Equal(t, 14, plan.MaxFreezeDays)
}

func TestGetPlan_NotFound(t *testing.T) {
	repo, mock, close := setupPlanMock(t)
	defer close()

	mock.ExpectQuery(`SELECT .+ FROM subscription_plans WHERE id = \$1`).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListPlans_OnlyActive(t *testing.T) {
	repo, mock, close := setupPlanMock(t)
	defer close()

	mock.ExpectQuery(`SELECT .+ FROM subscription_plans WHERE is_active = TRUE ORDER BY duration_days ASC`).
		WillReturnRows(planRows(1, "Monthly", 30, 60000, 7))

	plans, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, plans, 1)
}

func TestDeactivatePlan(t *testing.T) {
	repo, mock, close := setupPlanMock(t)
	defer close()

	mock.ExpectExec(`UPDATE subscription_plans`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), 1))
}
