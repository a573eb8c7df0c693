// Package attendance is the door: it decides who gets in and keeps a
// record of every attempt, denied ones included.
package attendance

import "time"

const (
	MethodBiometric = "biometric"
	MethodManual    = "manual"
	MethodCard      = "card"
)

type Record struct {
	ID                int        `db:"id" json:"id"`
	CustomerID        int        `db:"customer_id" json:"customer_id"`
	BranchID          int        `db:"branch_id" json:"branch_id"`
	EntryDate         time.Time  `db:"entry_date" json:"entry_date"`
	EntryTime         time.Time  `db:"entry_time" json:"entry_time"`
	ExitTime          *time.Time `db:"exit_time" json:"exit_time,omitempty"`
	EntryMethod       string     `db:"entry_method" json:"entry_method"`
	BiometricVerified bool       `db:"biometric_verified" json:"biometric_verified"`
	AccessGranted     bool       `db:"access_granted" json:"access_granted"`
	DenialReason      *string    `db:"denial_reason" json:"denial_reason,omitempty"`
	ProcessedByID     *int       `db:"processed_by_id" json:"processed_by_id,omitempty"`
	Notes             string     `db:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// DurationMinutes is nil while the member is still inside. A negative
// raw difference is read as an exit past midnight and corrected by a
// day; sessions longer than 24h are indistinguishable from that and
// come out wrong.
func (r *Record) DurationMinutes() *int {
	if r.ExitTime == nil {
		return nil
	}

	d := r.ExitTime.Sub(r.EntryTime)
	if d < 0 {
		d += 24 * time.Hour
	}

	minutes := int(d.Minutes())
	return &minutes
}

type CheckinRequest struct {
	CustomerID  int    `json:"customer_id" binding:"required"`
	BranchID    int    `json:"branch_id" binding:"required"`
	EntryMethod string `json:"entry_method" binding:"omitempty,oneof=biometric manual card"`
	Notes       string `json:"notes"`
}

// CheckoutRequest carries the optional wall-clock exit time staff can
// supply for a back-dated checkout. Empty means now.
type CheckoutRequest struct {
	ExitTime string `json:"exit_time" binding:"omitempty"`
}

type ListFilter struct {
	CustomerID int
	BranchID   int
	Date       time.Time
	OnlyDenied bool
	Page       int
	PerPage    int
}

// DaySummary is the front-desk dashboard for one branch and day.
type DaySummary struct {
	Inside     int `json:"inside"`
	CheckedOut int `json:"checked_out"`
	Denied     int `json:"denied"`
}

type VisitStats struct {
	TotalVisits    int     `json:"total_visits"`
	DeniedAttempts int     `json:"denied_attempts"`
	AvgMinutes     float64 `json:"avg_minutes"`
}
