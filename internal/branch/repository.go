package branch

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

const branchColumns = `id, name, code, address_line, city, phone, email, opening_time, closing_time, is_active, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, req CreateBranchRequest) (*Branch, error) {
	query := `
		INSERT INTO branches (name, code, address_line, city, phone, email, opening_time, closing_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + branchColumns

	var branch Branch
	err := r.db.GetContext(ctx, &branch, query,
		req.Name, strings.ToUpper(req.Code), req.AddressLine, req.City,
		req.Phone, req.Email, req.OpeningTime, req.ClosingTime,
	)
	if err != nil {
		return nil, err
	}

	return &branch, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Branch, error) {
	var branch Branch
	err := r.db.GetContext(ctx, &branch, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Branch, error) {
	var branch Branch
	err := r.db.GetContext(ctx, &branch, `SELECT `+branchColumns+` FROM branches WHERE code = $1`, strings.ToUpper(code))
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *repository) List(ctx context.Context, onlyActive bool) ([]Branch, error) {
	query := `SELECT ` + branchColumns + ` FROM branches`
	if onlyActive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`

	branches := []Branch{}
	err := r.db.SelectContext(ctx, &branches, query)
	if err != nil {
		return nil, err
	}
	return branches, nil
}

func (r *repository) Update(ctx context.Context, id int, req UpdateBranchRequest) (*Branch, error) {
	query := `
		UPDATE branches
		SET name = COALESCE($2, name),
		    address_line = COALESCE($3, address_line),
		    city = COALESCE($4, city),
		    phone = COALESCE($5, phone),
		    email = COALESCE($6, email),
		    opening_time = COALESCE($7, opening_time),
		    closing_time = COALESCE($8, closing_time),
		    is_active = COALESCE($9, is_active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + branchColumns

	var branch Branch
	err := r.db.GetContext(ctx, &branch, query, id,
		req.Name, req.AddressLine, req.City, req.Phone, req.Email,
		req.OpeningTime, req.ClosingTime, req.IsActive,
	)
	if err != nil {
		return nil, err
	}

	return &branch, nil
}

func (r *repository) Deactivate(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE branches
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}
