// Package store runs entity persistence on gorm: a generic repository per
// table, the transaction manager and the unit of work that flushes a graph.
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"anoa.com/pharmatrade/internal/criteria"
	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/pkg/apperror"
)

// Clock stamps entity timestamps. Stored times are UTC.
var Clock = func() time.Time { return time.Now().UTC() }

// Query is a criteria filter plus ordering and an optional row limit.
// Results are always ordered by primary key after the given orderings.
type Query struct {
	Where criteria.Criteria
	Order []criteria.OrderBy
	Limit int
}

// Repo is the generic repository for one entity type.
type Repo[T any, PT interface {
	*T
	entity.Entity
}] struct {
	db     *gorm.DB
	schema *criteria.Schema
	name   string
}

func NewRepo[T any, PT interface {
	*T
	entity.Entity
}](db *gorm.DB, schema *criteria.Schema, name string) *Repo[T, PT] {
	return &Repo[T, PT]{db: db, schema: schema, name: name}
}

// WithTx returns a copy of the repository bound to tx.
func (r *Repo[T, PT]) WithTx(tx *gorm.DB) *Repo[T, PT] {
	return &Repo[T, PT]{db: tx, schema: r.schema, name: r.name}
}

func (r *Repo[T, PT]) DB() *gorm.DB            { return r.db }
func (r *Repo[T, PT]) Schema() *criteria.Schema { return r.schema }
func (r *Repo[T, PT]) Name() string             { return r.name }

func (r *Repo[T, PT]) Insert(ctx context.Context, e PT) error {
	return insert(ctx, r.db, e, r.name)
}

func (r *Repo[T, PT]) Update(ctx context.Context, e PT) error {
	return update(ctx, r.db, e, r.name)
}

func (r *Repo[T, PT]) Delete(ctx context.Context, e PT) error {
	return remove(ctx, r.db, e, r.name)
}

// FindByID returns NotFound when no row has the key.
func (r *Repo[T, PT]) FindByID(ctx context.Context, id uint) (PT, error) {
	var rows []PT
	err := r.db.WithContext(ctx).
		Where(r.column(r.schema.PrimaryKey)+" = ?", id).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, apperror.Wrap(r.name, err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound(r.name, "id %d not found", id)
	}
	return rows[0], nil
}

// FindByIDs returns the rows that exist among ids, ordered by key.
func (r *Repo[T, PT]) FindByIDs(ctx context.Context, ids []uint) ([]PT, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []PT
	err := r.db.WithContext(ctx).
		Where(r.column(r.schema.PrimaryKey)+" IN ?", ids).
		Order(r.column(r.schema.PrimaryKey)).
		Find(&rows).Error
	return rows, apperror.Wrap(r.name, err)
}

// FindByField is an exact lookup on a single path. It returns nil without
// error when nothing matches.
func (r *Repo[T, PT]) FindByField(ctx context.Context, path string, value any) (PT, error) {
	field, err := r.schema.Resolve(path)
	if err != nil {
		return nil, r.invalid(err)
	}
	var rows []PT
	err = r.db.WithContext(ctx).
		Model(new(T)).
		Scopes(criteria.Scope([]criteria.Predicate{criteria.Equals{Field: field, Value: value}})).
		Order(r.column(r.schema.PrimaryKey)).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, apperror.Wrap(r.name, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *Repo[T, PT]) List(ctx context.Context, c criteria.Criteria) ([]PT, error) {
	return r.Find(ctx, Query{Where: c})
}

func (r *Repo[T, PT]) Find(ctx context.Context, q Query) ([]PT, error) {
	db, err := r.query(ctx, q.Where, q.Order...)
	if err != nil {
		return nil, err
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	var rows []PT
	if err := db.Find(&rows).Error; err != nil {
		return nil, apperror.Wrap(r.name, err)
	}
	return rows, nil
}

// ListPage returns the page-th slice of size rows of the filtered set in
// primary key order.
func (r *Repo[T, PT]) ListPage(ctx context.Context, c criteria.Criteria, page, size int) ([]PT, error) {
	if err := criteria.ValidatePage(page, size); err != nil {
		return nil, err
	}
	db, err := r.query(ctx, c)
	if err != nil {
		return nil, err
	}
	var rows []PT
	if err := db.Scopes(criteria.Paginate(page, size)).Find(&rows).Error; err != nil {
		return nil, apperror.Wrap(r.name, err)
	}
	return rows, nil
}

func (r *Repo[T, PT]) Count(ctx context.Context, c criteria.Criteria) (int64, error) {
	preds, err := r.schema.Parse(c)
	if err != nil {
		return 0, r.invalid(err)
	}
	var n int64
	err = r.db.WithContext(ctx).Model(new(T)).Scopes(criteria.Scope(preds)).Count(&n).Error
	return n, apperror.Wrap(r.name, err)
}

func (r *Repo[T, PT]) Exists(ctx context.Context, c criteria.Criteria) (bool, error) {
	n, err := r.Count(ctx, c)
	return n > 0, err
}

func (r *Repo[T, PT]) query(ctx context.Context, c criteria.Criteria, orders ...criteria.OrderBy) (*gorm.DB, error) {
	preds, err := r.schema.Parse(c)
	if err != nil {
		return nil, r.invalid(err)
	}
	orderScope, err := r.schema.OrderScope(preds, append(orders[:len(orders):len(orders)], criteria.OrderBy{Path: r.schema.PrimaryKey})...)
	if err != nil {
		return nil, r.invalid(err)
	}
	return r.db.WithContext(ctx).
		Model(new(T)).
		Scopes(criteria.Scope(preds), orderScope), nil
}

func (r *Repo[T, PT]) column(name string) string {
	return r.schema.Table + "." + name
}

func (r *Repo[T, PT]) invalid(err error) error {
	if errors.Is(err, criteria.ErrUnknownField) {
		return apperror.InvalidCause(r.name, err)
	}
	return apperror.Wrap(r.name, err)
}

func insert(ctx context.Context, db *gorm.DB, e entity.Entity, name string) error {
	e.Meta().PreInsert(Clock())
	return apperror.Wrap(name, db.WithContext(ctx).Create(e).Error)
}

func update(ctx context.Context, db *gorm.DB, e entity.Entity, name string) error {
	e.Meta().PreUpdate(Clock())
	return apperror.Wrap(name, db.WithContext(ctx).Save(e).Error)
}

func remove(ctx context.Context, db *gorm.DB, e entity.Entity, name string) error {
	return apperror.Wrap(name, db.WithContext(ctx).Delete(e).Error)
}
