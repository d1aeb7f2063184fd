package repository

import (
	"context"

	"gorm.io/gorm"

	"anoa.com/pharmatrade/internal/criteria"
	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/internal/store"
)

type PharmacyRepository interface {
	FindByID(ctx context.Context, id uint) (*entity.Pharmacy, error)
	FindByName(ctx context.Context, name string) (*entity.Pharmacy, error)
	FindAll(ctx context.Context, filter criteria.Criteria) ([]*entity.Pharmacy, error)
	FindPage(ctx context.Context, filter criteria.Criteria, page, size int) ([]*entity.Pharmacy, int64, error)
	Count(ctx context.Context, filter criteria.Criteria) (int64, error)
	OwnerNames(ctx context.Context, pharmacies []*entity.Pharmacy) (map[uint]string, error)
}

type pharmacyRepository struct {
	pharmacies *store.Repo[entity.Pharmacy, *entity.Pharmacy]
	users      *store.Repo[entity.User, *entity.User]
}

func NewPharmacyRepository(db *gorm.DB) PharmacyRepository {
	return &pharmacyRepository{
		pharmacies: store.NewRepo[entity.Pharmacy](db, entity.PharmacySchema, "Pharmacy"),
		users:      store.NewRepo[entity.User](db, entity.UserSchema, "User"),
	}
}

func (r *pharmacyRepository) FindByID(ctx context.Context, id uint) (*entity.Pharmacy, error) {
	return r.pharmacies.FindByID(ctx, id)
}

// FindByName is an exact lookup, nil when absent.
func (r *pharmacyRepository) FindByName(ctx context.Context, name string) (*entity.Pharmacy, error) {
	return r.pharmacies.FindByField(ctx, "name", name)
}

func (r *pharmacyRepository) FindAll(ctx context.Context, filter criteria.Criteria) ([]*entity.Pharmacy, error) {
	return r.pharmacies.Find(ctx, store.Query{
		Where: filter,
		Order: []criteria.OrderBy{{Path: "name"}},
	})
}

func (r *pharmacyRepository) FindPage(ctx context.Context, filter criteria.Criteria, page, size int) ([]*entity.Pharmacy, int64, error) {
	rows, err := r.pharmacies.ListPage(ctx, filter, page, size)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.pharmacies.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *pharmacyRepository) Count(ctx context.Context, filter criteria.Criteria) (int64, error) {
	return r.pharmacies.Count(ctx, filter)
}

// OwnerNames maps owner ids of the given pharmacies to usernames in one query.
func (r *pharmacyRepository) OwnerNames(ctx context.Context, pharmacies []*entity.Pharmacy) (map[uint]string, error) {
	seen := make(map[uint]struct{})
	var ids []uint
	for _, p := range pharmacies {
		if p.UserID == nil {
			continue
		}
		if _, ok := seen[*p.UserID]; ok {
			continue
		}
		seen[*p.UserID] = struct{}{}
		ids = append(ids, *p.UserID)
	}

	users, err := r.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names, nil
}
