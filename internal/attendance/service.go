package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zyadwael2009/gym/internal/api"
	"github.com/zyadwael2009/gym/internal/customer"
	"github.com/zyadwael2009/gym/internal/subscription"
)

// The service needs only a sliver of the customer and subscription
// packages; the narrow interfaces keep the tests honest.
type customerDirectory interface {
	GetByID(ctx context.Context, id int) (*customer.Customer, error)
}

type subscriptionSource interface {
	GetActiveForCustomer(ctx context.Context, customerID int, day time.Time) (*subscription.Subscription, error)
}

type Service interface {
	ValidateEntry(ctx context.Context, customerID, branchID int) error
	RecordEntry(ctx context.Context, req CheckinRequest, processedByID *int) (*Record, error)
	MarkExit(ctx context.Context, recordID int, exitClock *time.Time) (*Record, error)
}

type service struct {
	records       Repository
	customers     customerDirectory
	subscriptions subscriptionSource
	now           func() time.Time
}

func NewService(records Repository, customers customerDirectory, subscriptions subscriptionSource) Service {
	return &service{
		records:       records,
		customers:     customers,
		subscriptions: subscriptions,
		now:           time.Now,
	}
}

// ValidateEntry runs the admission checks in a fixed order so the
// denial reason reported to the desk is deterministic: customer, then
// subscription, then branch, then double check-in. It reads state but
// never writes it.
func (s *service) ValidateEntry(ctx context.Context, customerID, branchID int) error {
	cust, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.Reject("customer not found")
		}
		return err
	}
	if !cust.IsActive {
		return api.Reject("customer account is inactive")
	}

	today := s.now()
	sub, err := s.subscriptions.GetActiveForCustomer(ctx, customerID, today)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.Reject("no active subscription found")
		}
		return err
	}

	if err := sub.AccessAllowed(today); err != nil {
		return err
	}

	if sub.BranchID != branchID {
		return api.Reject("subscription not valid for this branch")
	}

	open, err := s.records.HasOpenEntry(ctx, customerID, dateOnly(today))
	if err != nil {
		return err
	}
	if open {
		return api.Reject("customer already checked in today")
	}

	return nil
}

// RecordEntry validates and then persists the attempt either way: a
// denied attempt becomes a denied row, not an error. Only
// infrastructure failures return an error.
func (s *service) RecordEntry(ctx context.Context, req CheckinRequest, processedByID *int) (*Record, error) {
	var denialReason *string
	accessGranted := true

	if err := s.ValidateEntry(ctx, req.CustomerID, req.BranchID); err != nil {
		if !api.IsRejection(err) {
			return nil, err
		}
		reason := err.Error()
		denialReason = &reason
		accessGranted = false
	}

	return s.records.Insert(ctx, InsertRecord{
		CustomerID:    req.CustomerID,
		BranchID:      req.BranchID,
		EntryMethod:   req.EntryMethod,
		AccessGranted: accessGranted,
		DenialReason:  denialReason,
		ProcessedByID: processedByID,
		Notes:         req.Notes,
	})
}

func (s *service) MarkExit(ctx context.Context, recordID int, exitClock *time.Time) (*Record, error) {
	return s.records.MarkExit(ctx, recordID, exitClock)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
