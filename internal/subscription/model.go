// Package subscription owns the membership lifecycle. A subscription is
// created pending, becomes active once its payments cover the purchase
// price, can be frozen against the plan's freeze allowance (each frozen
// day pushes the end date out by one), and ends expired or cancelled.
package subscription

import (
	"time"

	"github.com/zyadwael2009/gym/internal/api"
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusFrozen    = "frozen"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

type Subscription struct {
	ID                  int        `db:"id" json:"id"`
	SubscriptionNumber  string     `db:"subscription_number" json:"subscription_number"`
	CustomerID          int        `db:"customer_id" json:"customer_id"`
	PlanID              int        `db:"plan_id" json:"plan_id"`
	BranchID            int        `db:"branch_id" json:"branch_id"`
	StartDate           time.Time  `db:"start_date" json:"start_date"`
	EndDate             time.Time  `db:"end_date" json:"end_date"`
	ActualPriceCents    int64      `db:"actual_price_cents" json:"actual_price_cents"`
	Status              string     `db:"status" json:"status"`
	TotalFreezeDaysUsed int        `db:"total_freeze_days_used" json:"total_freeze_days_used"`
	CurrentFreezeStart  *time.Time `db:"current_freeze_start" json:"current_freeze_start,omitempty"`
	CurrentFreezeEnd    *time.Time `db:"current_freeze_end" json:"current_freeze_end,omitempty"`
	FreezeReason        *string    `db:"freeze_reason" json:"freeze_reason,omitempty"`
	CancelledDate       *time.Time `db:"cancelled_date" json:"cancelled_date,omitempty"`
	CancellationReason  *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	AutoRenew           bool       `db:"auto_renew" json:"auto_renew"`
	CreatedByID         int        `db:"created_by_id" json:"created_by_id"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Freeze is an append-only history row. The subscription row carries
// only the current window; past freezes live here.
type Freeze struct {
	ID             int       `db:"id" json:"id"`
	SubscriptionID int       `db:"subscription_id" json:"subscription_id"`
	FreezeStart    time.Time `db:"freeze_start" json:"freeze_start"`
	FreezeEnd      time.Time `db:"freeze_end" json:"freeze_end"`
	DaysFrozen     int       `db:"days_frozen" json:"days_frozen"`
	Reason         string    `db:"reason" json:"reason"`
	CreatedByID    int       `db:"created_by_id" json:"created_by_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type CreateSubscriptionRequest struct {
	CustomerID       int    `json:"customer_id" binding:"required"`
	PlanID           int    `json:"plan_id" binding:"required"`
	StartDate        string `json:"start_date" binding:"required,datetime=2006-01-02"`
	ActualPriceCents *int64 `json:"actual_price_cents" binding:"omitempty,gt=0"`
	AutoRenew        bool   `json:"auto_renew"`
}

type RenewRequest struct {
	PlanID           *int   `json:"plan_id"`
	StartDate        string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	ActualPriceCents *int64 `json:"actual_price_cents" binding:"omitempty,gt=0"`
	AutoRenew        *bool  `json:"auto_renew"`
}

type FreezeRequest struct {
	Days   int    `json:"days" binding:"required,gt=0"`
	Reason string `json:"reason"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type ListFilter struct {
	Status     string
	CustomerID int
	BranchID   int
	StartsFrom time.Time
	EndsBy     time.Time
	Page       int
	PerPage    int
}

// PaidInFull reports whether the completed payments cover the price
// captured at purchase. Overpayment still counts as paid.
func (s *Subscription) PaidInFull(totalPaidCents int64) bool {
	return totalPaidCents >= s.ActualPriceCents
}

// CanFreeze checks the freeze preconditions against the plan allowance.
// The returned rejection names the remaining allowance so the desk can
// relay it to the member.
func (s *Subscription) CanFreeze(maxFreezeDays, days int) error {
	if s.Status != StatusActive {
		return api.Reject("subscription must be active to freeze")
	}

	remaining := maxFreezeDays - s.TotalFreezeDaysUsed
	if days > remaining {
		return api.Reject("only %d freeze days remaining", remaining)
	}

	return nil
}

// AccessAllowed decides whether the subscription admits the member on
// the given day. Checks run in a fixed order so the denial reason is
// deterministic: status, then period, then freeze window.
func (s *Subscription) AccessAllowed(today time.Time) error {
	if s.Status != StatusActive {
		return api.Reject("subscription is %s", s.Status)
	}

	day := dateOnly(today)
	if day.Before(dateOnly(s.StartDate)) || day.After(dateOnly(s.EndDate)) {
		return api.Reject("outside subscription period")
	}

	// A stale freeze window can linger on an active row until the
	// sweeper clears it; it still blocks entry while current.
	if s.CurrentFreezeStart != nil && s.CurrentFreezeEnd != nil {
		if !day.Before(dateOnly(*s.CurrentFreezeStart)) && !day.After(dateOnly(*s.CurrentFreezeEnd)) {
			return api.Reject("subscription is frozen")
		}
	}

	return nil
}

// DaysRemaining is clamped at zero once the end date has passed.
func (s *Subscription) DaysRemaining(today time.Time) int {
	days := int(dateOnly(s.EndDate).Sub(dateOnly(today)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
