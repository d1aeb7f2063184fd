package repository

import (
	"context"

	"gorm.io/gorm"

	"anoa.com/pharmatrade/internal/criteria"
	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/internal/store"
)

type ContactRepository interface {
	FindByID(ctx context.Context, id uint) (*entity.PharmacyContact, error)
	FindAll(ctx context.Context, filter criteria.Criteria) ([]*entity.PharmacyContact, error)
	Exists(ctx context.Context, userID, pharmacyID uint) (bool, error)
	Names(ctx context.Context, contacts []*entity.PharmacyContact) (users, pharmacies map[uint]string, err error)
}

type contactRepository struct {
	contacts   *store.Repo[entity.PharmacyContact, *entity.PharmacyContact]
	users      *store.Repo[entity.User, *entity.User]
	pharmacies *store.Repo[entity.Pharmacy, *entity.Pharmacy]
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{
		contacts:   store.NewRepo[entity.PharmacyContact](db, entity.ContactSchema, "PharmacyContact"),
		users:      store.NewRepo[entity.User](db, entity.UserSchema, "User"),
		pharmacies: store.NewRepo[entity.Pharmacy](db, entity.PharmacySchema, "Pharmacy"),
	}
}

func (r *contactRepository) FindByID(ctx context.Context, id uint) (*entity.PharmacyContact, error) {
	return r.contacts.FindByID(ctx, id)
}

func (r *contactRepository) FindAll(ctx context.Context, filter criteria.Criteria) ([]*entity.PharmacyContact, error) {
	return r.contacts.Find(ctx, store.Query{
		Where: filter,
		Order: []criteria.OrderBy{{Path: "contact_name"}},
	})
}

func (r *contactRepository) Exists(ctx context.Context, userID, pharmacyID uint) (bool, error) {
	return r.contacts.Exists(ctx, criteria.Criteria{
		"user.id":     userID,
		"pharmacy.id": pharmacyID,
	})
}

// Names resolves the usernames and pharmacy names referenced by contacts.
func (r *contactRepository) Names(ctx context.Context, contacts []*entity.PharmacyContact) (map[uint]string, map[uint]string, error) {
	var userIDs, pharmacyIDs []uint
	for _, c := range contacts {
		if c.UserID != nil {
			userIDs = append(userIDs, *c.UserID)
		}
		if c.PharmacyID != nil {
			pharmacyIDs = append(pharmacyIDs, *c.PharmacyID)
		}
	}

	users, err := r.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, nil, err
	}
	pharmacies, err := r.pharmacies.FindByIDs(ctx, pharmacyIDs)
	if err != nil {
		return nil, nil, err
	}

	userNames := make(map[uint]string, len(users))
	for _, u := range users {
		userNames[u.ID] = u.Username
	}
	pharmacyNames := make(map[uint]string, len(pharmacies))
	for _, p := range pharmacies {
		pharmacyNames[p.ID] = p.Name
	}
	return userNames, pharmacyNames, nil
}
