package repository

import (
	"context"

	"gorm.io/gorm"

	"anoa.com/pharmatrade/internal/criteria"
	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/internal/store"
	"anoa.com/pharmatrade/pkg/apperror"
)

type TradeRecordRepository interface {
	FindByID(ctx context.Context, id uint) (*entity.TradeRecord, error)
	Find(ctx context.Context, q store.Query) ([]*entity.TradeRecord, error)
	FindPage(ctx context.Context, filter criteria.Criteria, page, size int) ([]*entity.TradeRecord, int64, error)
	Count(ctx context.Context, filter criteria.Criteria) (int64, error)
	SumAmount(ctx context.Context, filter criteria.Criteria) (float64, error)
	Names(ctx context.Context, records []*entity.TradeRecord) (pharmacies, users map[uint]string, err error)
	ContactNames(ctx context.Context, userID uint) (map[uint]string, error)
}

type tradeRecordRepository struct {
	db         *gorm.DB
	records    *store.Repo[entity.TradeRecord, *entity.TradeRecord]
	pharmacies *store.Repo[entity.Pharmacy, *entity.Pharmacy]
	users      *store.Repo[entity.User, *entity.User]
	contacts   *store.Repo[entity.PharmacyContact, *entity.PharmacyContact]
}

func NewTradeRecordRepository(db *gorm.DB) TradeRecordRepository {
	return &tradeRecordRepository{
		db:         db,
		records:    store.NewRepo[entity.TradeRecord](db, entity.TradeRecordSchema, "TradeRecord"),
		pharmacies: store.NewRepo[entity.Pharmacy](db, entity.PharmacySchema, "Pharmacy"),
		users:      store.NewRepo[entity.User](db, entity.UserSchema, "User"),
		contacts:   store.NewRepo[entity.PharmacyContact](db, entity.ContactSchema, "PharmacyContact"),
	}
}

func (r *tradeRecordRepository) FindByID(ctx context.Context, id uint) (*entity.TradeRecord, error) {
	return r.records.FindByID(ctx, id)
}

func (r *tradeRecordRepository) Find(ctx context.Context, q store.Query) ([]*entity.TradeRecord, error) {
	return r.records.Find(ctx, q)
}

func (r *tradeRecordRepository) FindPage(ctx context.Context, filter criteria.Criteria, page, size int) ([]*entity.TradeRecord, int64, error) {
	rows, err := r.records.ListPage(ctx, filter, page, size)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.records.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *tradeRecordRepository) Count(ctx context.Context, filter criteria.Criteria) (int64, error) {
	return r.records.Count(ctx, filter)
}

// SumAmount totals the amount of the filtered records, zero when none match.
func (r *tradeRecordRepository) SumAmount(ctx context.Context, filter criteria.Criteria) (float64, error) {
	preds, err := entity.TradeRecordSchema.Parse(filter)
	if err != nil {
		return 0, apperror.InvalidCause("TradeRecord", err)
	}

	var total float64
	err = r.db.WithContext(ctx).
		Model(&entity.TradeRecord{}).
		Scopes(criteria.Scope(preds)).
		Select("COALESCE(SUM(trade_records.amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, apperror.Wrap("TradeRecord", err)
	}
	return total, nil
}

// Names resolves the pharmacy and user names a record projection shows.
func (r *tradeRecordRepository) Names(ctx context.Context, records []*entity.TradeRecord) (map[uint]string, map[uint]string, error) {
	var pharmacyIDs, userIDs []uint
	for _, rec := range records {
		pharmacyIDs = appendID(pharmacyIDs, rec.GiverID)
		pharmacyIDs = appendID(pharmacyIDs, rec.ReceiverID)
		userIDs = appendID(userIDs, rec.RecorderID)
		userIDs = appendID(userIDs, rec.LastModifiedByID)
	}

	pharmacies, err := r.pharmacies.FindByIDs(ctx, pharmacyIDs)
	if err != nil {
		return nil, nil, err
	}
	users, err := r.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, nil, err
	}

	pharmacyNames := make(map[uint]string, len(pharmacies))
	for _, p := range pharmacies {
		pharmacyNames[p.ID] = p.Name
	}
	userNames := make(map[uint]string, len(users))
	for _, u := range users {
		userNames[u.ID] = u.Username
	}
	return pharmacyNames, userNames, nil
}

// ContactNames maps pharmacy ids to the labels userID gave them.
func (r *tradeRecordRepository) ContactNames(ctx context.Context, userID uint) (map[uint]string, error) {
	contacts, err := r.contacts.List(ctx, criteria.Criteria{"user.id": userID})
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(contacts))
	for _, c := range contacts {
		if c.PharmacyID != nil {
			names[*c.PharmacyID] = c.ContactName
		}
	}
	return names, nil
}

func appendID(ids []uint, id *uint) []uint {
	if id == nil {
		return ids
	}
	return append(ids, *id)
}
