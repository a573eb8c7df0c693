package customer

import "context"

type Repository interface {
	Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error)
	GetByID(ctx context.Context, id int) (*Customer, error)
	GetByMemberID(ctx context.Context, memberID string) (*Customer, error)
	List(ctx context.Context, filter ListFilter) ([]Customer, int, error)
	Update(ctx context.Context, id int, req UpdateCustomerRequest) (*Customer, error)
	Deactivate(ctx context.Context, id int) error
}
