package customer

import "time"

// Customer is a gym member. Members are never deleted: deactivation
// flips is_active so historical subscriptions, payments and attendance
// keep a valid owner.
type Customer struct {
	ID                    int        `db:"id" json:"id"`
	MemberID              string     `db:"member_id" json:"member_id"`
	BranchID              int        `db:"branch_id" json:"branch_id"`
	FullName              string     `db:"full_name" json:"full_name"`
	Email                 string     `db:"email" json:"email"`
	Phone                 string     `db:"phone" json:"phone"`
	DateOfBirth           *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender                string     `db:"gender" json:"gender,omitempty"`
	EmergencyContactName  string     `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string     `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	JoinedDate            time.Time  `db:"joined_date" json:"joined_date"`
	IsActive              bool       `db:"is_active" json:"is_active"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

type CreateCustomerRequest struct {
	BranchID              int    `json:"branch_id" binding:"required"`
	FullName              string `json:"full_name" binding:"required"`
	Email                 string `json:"email" binding:"required,email"`
	Phone                 string `json:"phone" binding:"required"`
	DateOfBirth           string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Gender                string `json:"gender" binding:"omitempty,oneof=male female other"`
	EmergencyContactName  string `json:"emergency_contact_name"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`
}

type UpdateCustomerRequest struct {
	FullName              *string `json:"full_name"`
	Email                 *string `json:"email" binding:"omitempty,email"`
	Phone                 *string `json:"phone"`
	DateOfBirth           *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Gender                *string `json:"gender" binding:"omitempty,oneof=male female other"`
	EmergencyContactName  *string `json:"emergency_contact_name"`
	EmergencyContactPhone *string `json:"emergency_contact_phone"`
	BranchID              *int    `json:"branch_id"`
}

// ListFilter narrows List results; zero values mean "no filter".
type ListFilter struct {
	BranchID   int
	OnlyActive bool
	Search     string
	Page       int
	PerPage    int
}
