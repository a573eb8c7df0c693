package user

import "context"

type Repository interface {
	Create(ctx context.Context, req RegisterRequest, passwordHash string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Deactivate(ctx context.Context, id int) error
}
