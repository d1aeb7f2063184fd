package store

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/internal/graph"
	"anoa.com/pharmatrade/pkg/apperror"
)

// TxManager runs each operation in exactly one database transaction.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Do runs fn inside a transaction with a fresh unit of work and flushes the
// work's graph before committing. Any error rolls everything back and comes
// out typed: apperror kinds unchanged, anything else as a server error.
func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context, uow *UnitOfWork) error) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		uow := NewUnitOfWork(tx)
		if err := fn(ctx, uow); err != nil {
			return err
		}
		return uow.Flush(ctx)
	})
	if err != nil {
		err = apperror.Wrap("", err)
		if errors.Is(err, apperror.ErrServer) {
			log.Printf("transaction rolled back: %v", err)
		}
		return err
	}
	return nil
}

// UnitOfWork pairs a transaction handle with the graph of entities loaded
// through it.
type UnitOfWork struct {
	tx    *gorm.DB
	Graph *graph.Graph

	Users      *Repo[entity.User, *entity.User]
	Pharmacies *Repo[entity.Pharmacy, *entity.Pharmacy]
	Contacts   *Repo[entity.PharmacyContact, *entity.PharmacyContact]
	Records    *Repo[entity.TradeRecord, *entity.TradeRecord]
}

func NewUnitOfWork(tx *gorm.DB) *UnitOfWork {
	return &UnitOfWork{
		tx:         tx,
		Graph:      graph.New(),
		Users:      NewRepo[entity.User](tx, entity.UserSchema, "User"),
		Pharmacies: NewRepo[entity.Pharmacy](tx, entity.PharmacySchema, "Pharmacy"),
		Contacts:   NewRepo[entity.PharmacyContact](tx, entity.ContactSchema, "PharmacyContact"),
		Records:    NewRepo[entity.TradeRecord](tx, entity.TradeRecordSchema, "TradeRecord"),
	}
}

// DB is the transaction handle. Queries inside a unit of work must use it.
func (u *UnitOfWork) DB() *gorm.DB { return u.tx }

// Flush writes the graph's pending changes through the transaction.
func (u *UnitOfWork) Flush(ctx context.Context) error {
	return u.Graph.Flush(ctx, writer{db: u.tx})
}

type writer struct {
	db *gorm.DB
}

func (w writer) Insert(ctx context.Context, e entity.Entity) error {
	return insert(ctx, w.db, e, entityName(e))
}

func (w writer) Update(ctx context.Context, e entity.Entity) error {
	return update(ctx, w.db, e, entityName(e))
}

func (w writer) Delete(ctx context.Context, e entity.Entity) error {
	return remove(ctx, w.db, e, entityName(e))
}

func entityName(e entity.Entity) string {
	switch e.(type) {
	case *entity.User:
		return "User"
	case *entity.Pharmacy:
		return "Pharmacy"
	case *entity.PharmacyContact:
		return "PharmacyContact"
	case *entity.TradeRecord:
		return "TradeRecord"
	}
	return e.TableName()
}
