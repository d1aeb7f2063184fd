package store

import (
	"context"

	"anoa.com/pharmatrade/internal/entity"
)

// Linking through the unit of work loads the parent's collection before the
// paired add, so a collection never holds only the rows added in this
// transaction.

func (u *UnitOfWork) AddPharmacy(ctx context.Context, owner *entity.User, p *entity.Pharmacy) error {
	if _, err := u.PharmaciesOf(ctx, owner); err != nil {
		return err
	}
	u.Graph.AddPharmacy(owner, p)
	return nil
}

func (u *UnitOfWork) AddUserContact(ctx context.Context, owner *entity.User, c *entity.PharmacyContact) error {
	if _, err := u.ContactsOfUser(ctx, owner); err != nil {
		return err
	}
	u.Graph.AddUserContact(owner, c)
	return nil
}

func (u *UnitOfWork) AddPharmacyContact(ctx context.Context, p *entity.Pharmacy, c *entity.PharmacyContact) error {
	if _, err := u.ContactsOfPharmacy(ctx, p); err != nil {
		return err
	}
	u.Graph.AddPharmacyContact(p, c)
	return nil
}

func (u *UnitOfWork) AddGivenRecord(ctx context.Context, p *entity.Pharmacy, r *entity.TradeRecord) error {
	if _, err := u.GivenRecords(ctx, p); err != nil {
		return err
	}
	u.Graph.AddGivenRecord(p, r)
	return nil
}

func (u *UnitOfWork) AddReceivedRecord(ctx context.Context, p *entity.Pharmacy, r *entity.TradeRecord) error {
	if _, err := u.ReceivedRecords(ctx, p); err != nil {
		return err
	}
	u.Graph.AddReceivedRecord(p, r)
	return nil
}

func (u *UnitOfWork) AddRecordedRecord(ctx context.Context, recorder *entity.User, r *entity.TradeRecord) error {
	if _, err := u.RecordedRecords(ctx, recorder); err != nil {
		return err
	}
	u.Graph.AddRecordedRecord(recorder, r)
	return nil
}
