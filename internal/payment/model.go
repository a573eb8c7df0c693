// Package payment records money movements against subscriptions.
// Completing a payment is what activates a pending subscription once
// the purchase price is covered; both updates commit atomically.
package payment

import "time"

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

const (
	MethodCash       = "cash"
	MethodCard       = "card"
	MethodUPI        = "upi"
	MethodNetBanking = "net_banking"
	MethodTransfer   = "transfer"
)

type Payment struct {
	ID                  int        `db:"id" json:"id"`
	PaymentNumber       string     `db:"payment_number" json:"payment_number"`
	SubscriptionID      *int       `db:"subscription_id" json:"subscription_id,omitempty"`
	CustomerID          int        `db:"customer_id" json:"customer_id"`
	BranchID            int        `db:"branch_id" json:"branch_id"`
	AmountCents         int64      `db:"amount_cents" json:"amount_cents"`
	PaymentMethod       string     `db:"payment_method" json:"payment_method"`
	Status              string     `db:"status" json:"status"`
	PaymentDate         time.Time  `db:"payment_date" json:"payment_date"`
	PaymentTime         time.Time  `db:"payment_time" json:"payment_time"`
	ServiceType         string     `db:"service_type" json:"service_type,omitempty"`
	Description         string     `db:"description" json:"description,omitempty"`
	ReferenceNumber     *string    `db:"reference_number" json:"reference_number,omitempty"`
	ProcessedByID       int        `db:"processed_by_id" json:"processed_by_id"`
	RefundDate          *time.Time `db:"refund_date" json:"refund_date,omitempty"`
	RefundReason        *string    `db:"refund_reason" json:"refund_reason,omitempty"`
	RefundProcessedByID *int       `db:"refund_processed_by_id" json:"refund_processed_by_id,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// AuditLog rows are append-only; every status change writes one in the
// same transaction as the change itself.
type AuditLog struct {
	ID        int       `db:"id" json:"id"`
	PaymentID int       `db:"payment_id" json:"payment_id"`
	Action    string    `db:"action" json:"action"`
	OldStatus *string   `db:"old_status" json:"old_status,omitempty"`
	NewStatus string    `db:"new_status" json:"new_status"`
	ActorID   int       `db:"actor_id" json:"actor_id"`
	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type CreatePaymentRequest struct {
	SubscriptionID *int   `json:"subscription_id"`
	CustomerID     int    `json:"customer_id" binding:"required"`
	AmountCents    int64  `json:"amount_cents" binding:"required,gt=0"`
	PaymentMethod  string `json:"payment_method" binding:"required,oneof=cash card upi net_banking transfer"`
	ServiceType    string `json:"service_type"`
	Description    string `json:"description"`
}

type RefundRequest struct {
	Reason string `json:"reason"`
}

type ListFilter struct {
	Status         string
	CustomerID     int
	SubscriptionID int
	BranchID       int
	From           time.Time
	To             time.Time
	Page           int
	PerPage        int
}

// Summary aggregates completed takings for a branch and period.
type Summary struct {
	TotalCents     int64            `json:"total_cents"`
	CompletedCount int              `json:"completed_count"`
	RefundedCents  int64            `json:"refunded_cents"`
	ByMethod       map[string]int64 `json:"by_method"`
}

// CompleteResult reports what a completion did beyond the payment row
// itself.
type CompleteResult struct {
	Payment               *Payment `json:"payment"`
	SubscriptionActivated bool     `json:"subscription_activated"`
}
