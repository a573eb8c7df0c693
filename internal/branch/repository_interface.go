package branch

import "context"

type Repository interface {
	Create(ctx context.Context, req CreateBranchRequest) (*Branch, error)
	GetByID(ctx context.Context, id int) (*Branch, error)
	GetByCode(ctx context.Context, code string) (*Branch, error)
	List(ctx context.Context, onlyActive bool) ([]Branch, error)
	Update(ctx context.Context, id int, req UpdateBranchRequest) (*Branch, error)
	Deactivate(ctx context.Context, id int) error
}
