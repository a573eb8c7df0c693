package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zyadwael2009/gym/internal/refcode"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const customerColumns = `id, member_id, branch_id, full_name, email, phone, date_of_birth, gender, emergency_contact_name, emergency_contact_phone, joined_date, is_active, created_at, updated_at`

// memberIDAttempts bounds the regenerate-on-collision loop. With a
// 4-character random suffix collisions are rare but not impossible on
// a busy sign-up day.
const memberIDAttempts = 5

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	var branchCode string
	err := r.db.GetContext(ctx, &branchCode, `SELECT code FROM branches WHERE id = $1 AND is_active = TRUE`, req.BranchID)
	if err != nil {
		return nil, err
	}

	var dob *time.Time
	if req.DateOfBirth != "" {
		parsed, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("invalid date_of_birth: %w", err)
		}
		dob = &parsed
	}

	query := `
		INSERT INTO customers (member_id, branch_id, full_name, email, phone, date_of_birth, gender, emergency_contact_name, emergency_contact_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + customerColumns

	for attempt := 0; attempt < memberIDAttempts; attempt++ {
		memberID := refcode.New(branchCode, 4)

		var customer Customer
		err = r.db.GetContext(ctx, &customer, query,
			memberID, req.BranchID, req.FullName, req.Email, req.Phone,
			dob, req.Gender, req.EmergencyContactName, req.EmergencyContactPhone,
		)
		if err == nil {
			return &customer, nil
		}
		if isUniqueViolation(err, "customers_member_id_key") {
			continue
		}
		return nil, err
	}

	return nil, errors.New("could not allocate a unique member id")
}

func (r *repository) GetByID(ctx context.Context, id int) (*Customer, error) {
	var customer Customer
	err := r.db.GetContext(ctx, &customer, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) GetByMemberID(ctx context.Context, memberID string) (*Customer, error) {
	var customer Customer
	err := r.db.GetContext(ctx, &customer, `SELECT `+customerColumns+` FROM customers WHERE member_id = $1`, strings.ToUpper(memberID))
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	where := []string{}
	args := []interface{}{}

	if filter.BranchID > 0 {
		args = append(args, filter.BranchID)
		where = append(where, fmt.Sprintf("branch_id = $%d", len(args)))
	}
	if filter.OnlyActive {
		where = append(where, "is_active = TRUE")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(member_id ILIKE $%d OR full_name ILIKE $%d OR phone ILIKE $%d)", len(args), len(args), len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM customers`+clause, args...); err != nil {
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

	query := `SELECT ` + customerColumns + ` FROM customers` + clause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	customers := []Customer{}
	if err := r.db.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (r *repository) Update(ctx context.Context, id int, req UpdateCustomerRequest) (*Customer, error) {
	var dob *time.Time
	if req.DateOfBirth != nil {
		parsed, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("invalid date_of_birth: %w", err)
		}
		dob = &parsed
	}

	query := `
		UPDATE customers
		SET full_name = COALESCE($2, full_name),
		    email = COALESCE($3, email),
		    phone = COALESCE($4, phone),
		    date_of_birth = COALESCE($5, date_of_birth),
		    gender = COALESCE($6, gender),
		    emergency_contact_name = COALESCE($7, emergency_contact_name),
		    emergency_contact_phone = COALESCE($8, emergency_contact_phone),
		    branch_id = COALESCE($9, branch_id),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + customerColumns

	var customer Customer
	err := r.db.GetContext(ctx, &customer, query, id,
		req.FullName, req.Email, req.Phone, dob, req.Gender,
		req.EmergencyContactName, req.EmergencyContactPhone, req.BranchID,
	)
	if err != nil {
		return nil, err
	}

	return &customer, nil
}

func (r *repository) Deactivate(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE customers
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == constraint
	}
	return false
}
