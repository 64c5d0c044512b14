package repository

import (
	"context"

	"instagen/internal/model"
)

// UserRepository abstracts account storage so the auth service works the
// same over Postgres and the on-device store.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}
