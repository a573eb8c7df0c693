package payment

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, req CreatePaymentRequest, actorID int) (*Payment, error)
	GetByID(ctx context.Context, id int) (*Payment, error)
	GetByNumber(ctx context.Context, number string) (*Payment, error)
	List(ctx context.Context, filter ListFilter) ([]Payment, int, error)

	SetReference(ctx context.Context, id int, reference string) error
	GetByReference(ctx context.Context, reference string) (*Payment, error)

	Complete(ctx context.Context, id, actorID int, reference string) (*CompleteResult, error)
	MarkFailed(ctx context.Context, id, actorID int, reason string) (*Payment, error)
	Refund(ctx context.Context, id, actorID int, reason string) (*Payment, error)

	AuditTrail(ctx context.Context, paymentID int) ([]AuditLog, error)
	Summarize(ctx context.Context, branchID int, from, to time.Time) (*Summary, error)
}
