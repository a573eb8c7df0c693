package subscription

import (
	"testing"
	"time"

	"github.com/zyadwael2009/gym/internal/api"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func activeSub() *Subscription {
	return &Subscription{
		Status:    StatusActive,
		StartDate: day("2026-01-01"),
		EndDate:   day("2026-03-31"),
	}
}

func TestPaidInFull(t *testing.T) {
	sub := &Subscription{ActualPriceCents: 50000}

	assert.False(t, sub.PaidInFull(0))
	assert.False(t, sub.PaidInFull(49999))
	assert.True(t, sub.PaidInFull(50000))
	assert.True(t, sub.PaidInFull(60000))
}

func TestCanFreeze(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		usedDays   int
		maxDays    int
		days       int
		wantReason string
	}{
		{"active within allowance", StatusActive, 0, 14, 7, ""},
		{"exactly the remaining days", StatusActive, 7, 14, 7, ""},
		{"over the allowance", StatusActive, 10, 14, 7, "only 4 freeze days remaining"},
		{"allowance exhausted", StatusActive, 14, 14, 1, "only 0 freeze days remaining"},
		{"pending cannot freeze", StatusPending, 0, 14, 7, "subscription must be active to freeze"},
		{"frozen cannot freeze again", StatusFrozen, 5, 14, 2, "subscription must be active to freeze"},
		{"expired cannot freeze", StatusExpired, 0, 14, 1, "subscription must be active to freeze"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscription{Status: tt.status, TotalFreezeDaysUsed: tt.usedDays}
			err := sub.CanFreeze(tt.maxDays, tt.days)

			if tt.wantReason == "" {
				assert.NoError(t, err)
			} else {
				assert.True(t, api.IsRejection(err))
				assert.EqualError(t, err, tt.wantReason)
			}
		})
	}
}

func TestAccessAllowed(t *testing.T) {
	t.Run("active in window", func(t *testing.T) {
		assert.NoError(t, activeSub().AccessAllowed(day("2026-02-15")))
	})

	t.Run("boundary days admit", func(t *testing.T) {
		assert.NoError(t, activeSub().AccessAllowed(day("2026-01-01")))
		assert.NoError(t, activeSub().AccessAllowed(day("2026-03-31")))
	})

	t.Run("status beats everything", func(t *testing.T) {
		sub := activeSub()
		sub.Status = StatusFrozen
		assert.EqualError(t, sub.AccessAllowed(day("2026-02-15")), "subscription is frozen")

		sub.Status = StatusCancelled
		assert.EqualError(t, sub.AccessAllowed(day("2026-02-15")), "subscription is cancelled")

		sub.Status = StatusPending
		assert.EqualError(t, sub.AccessAllowed(day("2026-02-15")), "subscription is pending")
	})

	t.Run("outside period", func(t *testing.T) {
		assert.EqualError(t, activeSub().AccessAllowed(day("2025-12-31")), "outside subscription period")
		assert.EqualError(t, activeSub().AccessAllowed(day("2026-04-01")), "outside subscription period")
	})

	t.Run("stale freeze window on active row still blocks", func(t *testing.T) {
		sub := activeSub()
		start, end := day("2026-02-10"), day("2026-02-20")
		sub.CurrentFreezeStart = &start
		sub.CurrentFreezeEnd = &end

		assert.EqualError(t, sub.AccessAllowed(day("2026-02-15")), "subscription is frozen")
		assert.NoError(t, sub.AccessAllowed(day("2026-02-21")))
		assert.NoError(t, sub.AccessAllowed(day("2026-02-09")))
	})
}

func TestDaysRemaining(t *testing.T) {
	sub := activeSub()

	assert.Equal(t, 1, sub.DaysRemaining(day("2026-03-30")))
	assert.Equal(t, 0, sub.DaysRemaining(day("2026-03-31")))
	assert.Equal(t, 0, sub.DaysRemaining(day("2026-04-02")))
}
