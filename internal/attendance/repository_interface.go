package attendance

import (
	"context"
	"time"
)

// InsertRecord is what the service decided about an entry attempt;
// the repository persists it verbatim.
type InsertRecord struct {
	CustomerID    int
	BranchID      int
	EntryMethod   string
	AccessGranted bool
	DenialReason  *string
	ProcessedByID *int
	Notes         string
}

type Repository interface {
	Insert(ctx context.Context, rec InsertRecord) (*Record, error)
	GetByID(ctx context.Context, id int) (*Record, error)
	HasOpenEntry(ctx context.Context, customerID int, day time.Time) (bool, error)
	MarkExit(ctx context.Context, id int, exitClock *time.Time) (*Record, error)
	List(ctx context.Context, filter ListFilter) ([]Record, int, error)
	DaySummary(ctx context.Context, branchID int, day time.Time) (*DaySummary, error)
	CustomerHistory(ctx context.Context, customerID, limit int) ([]Record, *VisitStats, error)
}
