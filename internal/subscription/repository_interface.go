package subscription

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, req CreateSubscriptionRequest, actorID int) (*Subscription, error)
	GetByID(ctx context.Context, id int) (*Subscription, error)
	GetByNumber(ctx context.Context, number string) (*Subscription, error)
	List(ctx context.Context, filter ListFilter) ([]Subscription, int, error)

	Activate(ctx context.Context, id int) (*Subscription, error)
	Freeze(ctx context.Context, id, days int, reason string, actorID int) (*Subscription, error)
	Unfreeze(ctx context.Context, id int) (*Subscription, error)
	Cancel(ctx context.Context, id int, reason string) (*Subscription, error)
	Renew(ctx context.Context, id int, req RenewRequest, actorID int) (*Subscription, error)

	GetActiveForCustomer(ctx context.Context, customerID int, day time.Time) (*Subscription, error)
	ListExpiring(ctx context.Context, daysAhead, branchID int) ([]Subscription, error)
	FreezeHistory(ctx context.Context, id int) ([]Freeze, error)
	PaidTotal(ctx context.Context, id int) (int64, error)

	ExpireOverdue(ctx context.Context) (int, error)
	UnfreezeElapsed(ctx context.Context) (int, error)
	ActiveCountsByPlan(ctx context.Context) ([]PlanCount, error)
}
