package plan

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const planColumns = `id, name, description, duration_days, price_cents, access_hours, includes_trainer, includes_nutrition, max_freeze_days, is_active, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	query := `
		INSERT INTO subscription_plans (name, description, duration_days, price_cents, access_hours, includes_trainer, includes_nutrition, max_freeze_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + planColumns

	var plan Plan
	err := r.db.GetContext(ctx, &plan, query,
		req.Name, req.Description, req.DurationDays, req.PriceCents,
		req.AccessHours, req.IncludesTrainer, req.IncludesNutrition, req.MaxFreezeDays,
	)
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Plan, error) {
	var plan Plan
	err := r.db.GetContext(ctx, &plan, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) List(ctx context.Context, onlyActive bool) ([]Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans`
	if onlyActive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY duration_days ASC, price_cents ASC`

	plans := []Plan{}
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) Update(ctx context.Context, id int, req UpdatePlanRequest) (*Plan, error) {
	query := `
		UPDATE subscription_plans
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    duration_days = COALESCE($4, duration_days),
		    price_cents = COALESCE($5, price_cents),
		    access_hours = COALESCE($6, access_hours),
		    includes_trainer = COALESCE($7, includes_trainer),
		    includes_nutrition = COALESCE($8, includes_nutrition),
		    max_freeze_days = COALESCE($9, max_freeze_days),
		    is_active = COALESCE($10, is_active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + planColumns

	var plan Plan
	err := r.db.GetContext(ctx, &plan, query, id,
		req.Name, req.Description, req.DurationDays, req.PriceCents,
		req.AccessHours, req.IncludesTrainer, req.IncludesNutrition,
		req.MaxFreezeDays, req.IsActive,
	)
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *repository) Deactivate(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscription_plans
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}
