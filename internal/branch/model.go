package branch

import "time"

type Branch struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Code        string    `db:"code" json:"code"`
	AddressLine string    `db:"address_line" json:"address_line,omitempty"`
	City        string    `db:"city" json:"city,omitempty"`
	Phone       string    `db:"phone" json:"phone,omitempty"`
	Email       string    `db:"email" json:"email,omitempty"`
	OpeningTime string    `db:"opening_time" json:"opening_time,omitempty"`
	ClosingTime string    `db:"closing_time" json:"closing_time,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type CreateBranchRequest struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code" binding:"required,max=10"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	OpeningTime string `json:"opening_time"`
	ClosingTime string `json:"closing_time"`
}

type UpdateBranchRequest struct {
	Name        *string `json:"name"`
	AddressLine *string `json:"address_line"`
	City        *string `json:"city"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	OpeningTime *string `json:"opening_time"`
	ClosingTime *string `json:"closing_time"`
	IsActive    *bool   `json:"is_active"`
}
