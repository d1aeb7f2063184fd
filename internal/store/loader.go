package store

import (
	"context"

	"anoa.com/pharmatrade/internal/criteria"
	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/internal/graph"
)

// Loaders fetch rows into the graph. An entity already tracked is returned
// from the graph without a query, so every caller in one unit of work sees
// the same instance.

func (u *UnitOfWork) User(ctx context.Context, id uint) (*entity.User, error) {
	if e, ok := u.Graph.User(id); ok {
		return e, nil
	}
	return track(ctx, u.Graph, u.Users, id)
}

func (u *UnitOfWork) Pharmacy(ctx context.Context, id uint) (*entity.Pharmacy, error) {
	if e, ok := u.Graph.Pharmacy(id); ok {
		return e, nil
	}
	return track(ctx, u.Graph, u.Pharmacies, id)
}

func (u *UnitOfWork) Contact(ctx context.Context, id uint) (*entity.PharmacyContact, error) {
	if e, ok := u.Graph.Contact(id); ok {
		return e, nil
	}
	return track(ctx, u.Graph, u.Contacts, id)
}

func (u *UnitOfWork) Record(ctx context.Context, id uint) (*entity.TradeRecord, error) {
	if e, ok := u.Graph.Record(id); ok {
		return e, nil
	}
	return track(ctx, u.Graph, u.Records, id)
}

// OptionalPharmacy loads a pharmacy by a nullable key, nil when unset.
func (u *UnitOfWork) OptionalPharmacy(ctx context.Context, id *uint) (*entity.Pharmacy, error) {
	if id == nil {
		return nil, nil
	}
	return u.Pharmacy(ctx, *id)
}

// OptionalUser loads a user by a nullable key, nil when unset.
func (u *UnitOfWork) OptionalUser(ctx context.Context, id *uint) (*entity.User, error) {
	if id == nil {
		return nil, nil
	}
	return u.User(ctx, *id)
}

func (u *UnitOfWork) PharmaciesOf(ctx context.Context, owner *entity.User) ([]*entity.Pharmacy, error) {
	return children(ctx, u.Graph, u.Graph.Owned, u.Pharmacies, owner, "user.id")
}

func (u *UnitOfWork) ContactsOfUser(ctx context.Context, owner *entity.User) ([]*entity.PharmacyContact, error) {
	return children(ctx, u.Graph, u.Graph.UserContacts, u.Contacts, owner, "user.id")
}

func (u *UnitOfWork) ContactsOfPharmacy(ctx context.Context, p *entity.Pharmacy) ([]*entity.PharmacyContact, error) {
	return children(ctx, u.Graph, u.Graph.PharmacyContacts, u.Contacts, p, "pharmacy.id")
}

func (u *UnitOfWork) GivenRecords(ctx context.Context, p *entity.Pharmacy) ([]*entity.TradeRecord, error) {
	return children(ctx, u.Graph, u.Graph.Given, u.Records, p, "giver.id")
}

func (u *UnitOfWork) ReceivedRecords(ctx context.Context, p *entity.Pharmacy) ([]*entity.TradeRecord, error) {
	return children(ctx, u.Graph, u.Graph.Received, u.Records, p, "receiver.id")
}

func (u *UnitOfWork) RecordedRecords(ctx context.Context, recorder *entity.User) ([]*entity.TradeRecord, error) {
	return children(ctx, u.Graph, u.Graph.Recorded, u.Records, recorder, "recorder.id")
}

// ModifiedRecords tracks the records last modified by user. The reference
// has no inverse collection, so the rows are only tracked.
func (u *UnitOfWork) ModifiedRecords(ctx context.Context, user *entity.User) ([]*entity.TradeRecord, error) {
	rows, err := u.Records.List(ctx, criteria.Criteria{"last_modified_by.id": user.ID})
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		rows[i] = graph.Track(u.Graph, row)
	}
	return rows, nil
}

// LoadUserGraph loads everything DetachUser walks.
func (u *UnitOfWork) LoadUserGraph(ctx context.Context, user *entity.User) error {
	if _, err := u.PharmaciesOf(ctx, user); err != nil {
		return err
	}
	contacts, err := u.ContactsOfUser(ctx, user)
	if err != nil {
		return err
	}
	for _, c := range contacts {
		p, err := u.OptionalPharmacy(ctx, c.PharmacyID)
		if err != nil {
			return err
		}
		if p != nil {
			if _, err := u.ContactsOfPharmacy(ctx, p); err != nil {
				return err
			}
		}
	}
	if _, err := u.RecordedRecords(ctx, user); err != nil {
		return err
	}
	_, err = u.ModifiedRecords(ctx, user)
	return err
}

// LoadPharmacyGraph loads everything DetachPharmacy walks.
func (u *UnitOfWork) LoadPharmacyGraph(ctx context.Context, p *entity.Pharmacy) error {
	owner, err := u.OptionalUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	if owner != nil {
		if _, err := u.PharmaciesOf(ctx, owner); err != nil {
			return err
		}
	}
	contacts, err := u.ContactsOfPharmacy(ctx, p)
	if err != nil {
		return err
	}
	for _, c := range contacts {
		user, err := u.OptionalUser(ctx, c.UserID)
		if err != nil {
			return err
		}
		if user != nil {
			if _, err := u.ContactsOfUser(ctx, user); err != nil {
				return err
			}
		}
	}
	if _, err := u.GivenRecords(ctx, p); err != nil {
		return err
	}
	_, err = u.ReceivedRecords(ctx, p)
	return err
}

func track[T any, PT interface {
	*T
	entity.Entity
}](ctx context.Context, g *graph.Graph, repo *Repo[T, PT], id uint) (PT, error) {
	row, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return graph.Track(g, row), nil
}

func children[P entity.Entity, C any, PC interface {
	*C
	entity.Entity
}](ctx context.Context, g *graph.Graph, rel *graph.Relation[P, PC], repo *Repo[C, PC], parent P, path string) ([]PC, error) {
	if rel.Loaded(parent) {
		return rel.Children(parent), nil
	}
	if parent.Meta().ID == 0 {
		rel.Attach(parent)
		return nil, nil
	}
	rows, err := repo.List(ctx, criteria.Criteria{path: parent.Meta().ID})
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		rows[i] = graph.Track(g, row)
	}
	rel.Attach(parent, rows...)
	return rel.Children(parent), nil
}
