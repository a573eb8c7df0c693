package customer

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func setupCustomerMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func customerRows(id int, memberID, name string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "member_id", "branch_id", "full_name", "email", "phone",
		"date_of_birth", "gender", "emergency_contact_name", "emergency_contact_phone",
		"joined_date", "is_active", "created_at", "updated_at",
	}).AddRow(id, memberID, 1, name, "m@example.com", "0100000000",
		nil, "male", "", "", now, active, now, now)
}

func TestCreateCustomer(t *testing.T) {
	repo, mock, close := setupCustomerMock(t)
	defer close()

	mock.ExpectQuery(`SELECT code FROM branches`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("DT"))
	mock.ExpectQuery(`INSERT INTO customers`).
		WillReturnRows(customerRows(7, "DT2509014X1Z", "Mona Adel", true))

	customer, err := repo.Create(context.Background(), CreateCustomerRequest{
		BranchID: 1,
		FullName: "Mona Adel",
		Email:    "m@example.com",
		Phone:    "0100000000",
		Gender:   "male",
	})
	require.NoError(t, err)
	require.Equal(t, 7, customer.ID)
	require.True(t, customer.IsActive)
}

func TestCreateCustomer_BranchMissing(t *testing.T) {
	repo, mock, close := setupCustomerMock(t)
	defer close()

	mock.ExpectQuery(`SELECT code FROM branches`).
		WithArgs(42).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Create(context.Background(), CreateCustomerRequest{BranchID: 42, FullName: "X", Email: "x@example.com", Phone: "1"})
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreateCustomer_RetriesOnMemberIDCollision(t *testing.T) {
	repo, mock, close := setupCustomerMock(t)
	defer close()

	mock.ExpectQuery(`SELECT code FROM branches`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("DT"))
	mock.ExpectQuery(`INSERT INTO customers`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "customers_member_id_key"})
	mock.ExpectQuery(`INSERT INTO customers`).
		WillReturnRows(customerRows(8, "DT250901ABCD", "Mona Adel", true))

	customer, err := repo.Create(context.Background(), CreateCustomerRequest{
		BranchID: 1, FullName: "Mona Adel", Email: "m@example.com", Phone: "1",
	})
	require.NoError(t, err)
	require.Equal(t, 8, customer.ID)
}

func TestGetCustomerByMemberID_Uppercases(t *testing.T) {
	repo, mock, close := setupCustomerMock(t)
	defer close()

	mock.ExpectQuery(`SELECT .+ FROM customers WHERE member_id = \$1`).
		WithArgs("DT250901ABCD").
		WillReturnRows(customerRows(8, "DT250901ABCD", "Mona Adel", true))

	customer, err := repo.GetByMemberID(context.Background(), "dt250901abcd")
	require.NoError(t, err)
	require.Equal(t, 8, customer.ID)
}

func TestListCustomers_SearchAndPagination(t *testing.T) {
	repo, mock, close := setupCustomerMock(t)
	defer close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM customers WHERE branch_id = \$1 AND is_active = TRUE AND \(member_id ILIKE`).
		WithArgs(1, "%mona%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .+ FROM customers WHERE branch_id = \$1 .+ LIMIT \$3 OFFSET \$4`).
		WithArgs(1, "%mona%", 20, 0).
		WillReturnRows(customerRows(8, "DT250901ABCD", "Mona Adel", true))

	customers, total, err := repo.List(context.Background(), ListFilter{
		BranchID:   1,
		OnlyActive: true,
		Search:     "mona",
		Page:       1,
		PerPage:    20,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, customers, 1)
}

func TestDeactivateCustomer(t *testing.T) {
	repo, mock, close := setupCustomerMock(t)
	defer close()

	mock.ExpectExec(`UPDATE customers`).
		WithArgs(8).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), 8))
}
