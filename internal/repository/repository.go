package repository

import (
	"context"

	"github.com/anfirdaus/userfinder/internal/model"
)

// UserRepository is the persistence-access abstraction for User records.
// The sqlite package implements it; the service layer depends only on this
// interface so tests can swap in an in-memory fake.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
}
