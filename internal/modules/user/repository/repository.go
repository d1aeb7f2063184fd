package repository

import (
	"context"

	"gorm.io/gorm"

	"anoa.com/pharmatrade/internal/criteria"
	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/internal/store"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*entity.User, error)
	FindByIDs(ctx context.Context, ids []uint) ([]*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindAll(ctx context.Context, filter criteria.Criteria) ([]*entity.User, error)
	FindPage(ctx context.Context, filter criteria.Criteria, page, size int) ([]*entity.User, int64, error)
}

type userRepository struct {
	users *store.Repo[entity.User, *entity.User]
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{users: store.NewRepo[entity.User](db, entity.UserSchema, "User")}
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	return r.users.FindByID(ctx, id)
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []uint) ([]*entity.User, error) {
	return r.users.FindByIDs(ctx, ids)
}

// FindByUsername returns nil when no user has that exact username.
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.users.FindByField(ctx, "username", username)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.users.FindByField(ctx, "email", email)
}

func (r *userRepository) FindAll(ctx context.Context, filter criteria.Criteria) ([]*entity.User, error) {
	return r.users.Find(ctx, store.Query{
		Where: filter,
		Order: []criteria.OrderBy{{Path: "username"}},
	})
}

func (r *userRepository) FindPage(ctx context.Context, filter criteria.Criteria, page, size int) ([]*entity.User, int64, error) {
	rows, err := r.users.ListPage(ctx, filter, page, size)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.users.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
