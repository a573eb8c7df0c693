package branch

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupBranchMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func branchRows(id int, name, code string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "code", "address_line", "city", "phone", "email",
		"opening_time", "closing_time", "is_active", "created_at", "updated_at",
	}).AddRow(id, name, code, "12 Main St", "Cairo", "", "", "06:00", "23:00", active, now, now)
}

func TestCreateBranch(t *testing.T) {
	repo, mock, close := setupBranchMock(t)
	defer close()

	mock.ExpectQuery(`INSERT INTO branches`).
		WithArgs("Downtown", "DT", "12 Main St", "Cairo", "", "", "06:00", "23:00").
		WillReturnRows(branchRows(1, "Downtown", "DT", true))

	branch, err := repo.Create(context.Background(), CreateBranchRequest{
		Name:        "Downtown",
		Code:        "dt",
		AddressLine: "12 Main St",
		City:        "Cairo",
		OpeningTime: "06:00",
		ClosingTime: "23:00",
	})
	require.NoError(t, err)
	require.Equal(t, "DT", branch.Code)
	require.True(t, branch.IsActive)
}

func TestGetBranchByCode_Uppercases(t *testing.T) {
	repo, mock, close := setupBranchMock(t)
	defer close()

	mock.ExpectQuery(`SELECT .+ FROM branches WHERE code = \$1`).
		WithArgs("DT").
		WillReturnRows(branchRows(1, "Downtown", "DT", true))

	branch, err := repo.GetByCode(context.Background(), "dt")
	require.NoError(t, err)
	require.Equal(t, 1, branch.ID)
}

func TestGetBranchByID_NotFound(t *testing.T) {
	repo, mock, close := setupBranchMock(t)
	defer close()

	mock.ExpectQuery(`SELECT .+ FROM branches WHERE id = \$1`).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListBranches_OnlyActive(t *testing.T) {
	repo, mock, close := setupBranchMock(t)
	defer close()

	mock.ExpectQuery(`SELECT .+ FROM branches WHERE is_active = TRUE ORDER BY name ASC`).
		WillReturnRows(branchRows(1, "Downtown", "DT", true))

	branches, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, branches, 1)
}

func TestDeactivateBranch(t *testing.T) {
	repo, mock, close := setupBranchMock(t)
	defer close()

	mock.ExpectExec(`UPDATE branches`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Deactivate(context.Background(), 1)
	require.NoError(t, err)
}
