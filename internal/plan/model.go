package plan

import "time"

// Plan is a membership product. Prices are stored in cents to keep
// payment arithmetic exact.
type Plan struct {
	ID                int       `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Description       string    `db:"description" json:"description,omitempty"`
	DurationDays      int       `db:"duration_days" json:"duration_days"`
	PriceCents        int64     `db:"price_cents" json:"price_cents"`
	AccessHours       string    `db:"access_hours" json:"access_hours,omitempty"`
	IncludesTrainer   bool      `db:"includes_trainer" json:"includes_trainer"`
	IncludesNutrition bool      `db:"includes_nutrition" json:"includes_nutrition"`
	MaxFreezeDays     int       `db:"max_freeze_days" json:"max_freeze_days"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

type CreatePlanRequest struct {
	Name              string `json:"name" binding:"required"`
	Description       string `json:"description"`
	DurationDays      int    `json:"duration_days" binding:"required,gt=0"`
	PriceCents        int64  `json:"price_cents" binding:"required,gt=0"`
	AccessHours       string `json:"access_hours"`
	IncludesTrainer   bool   `json:"includes_trainer"`
	IncludesNutrition bool   `json:"includes_nutrition"`
	MaxFreezeDays     int    `json:"max_freeze_days" binding:"gte=0"`
}

type UpdatePlanRequest struct {
	Name              *string `json:"name"`
	Description       *string `json:"description"`
	DurationDays      *int    `json:"duration_days" binding:"omitempty,gt=0"`
	PriceCents        *int64  `json:"price_cents" binding:"omitempty,gt=0"`
	AccessHours       *string `json:"access_hours"`
	IncludesTrainer   *bool   `json:"includes_trainer"`
	IncludesNutrition *bool   `json:"includes_nutrition"`
	MaxFreezeDays     *int    `json:"max_freeze_days" binding:"omitempty,gte=0"`
	IsActive          *bool   `json:"is_active"`
}
