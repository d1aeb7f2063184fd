package traderecord

import (
	"context"
	"log"
	"sort"
	"time"

	"anoa.com/pharmatrade/internal/criteria"
	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/internal/modules/traderecord/dto"
	"anoa.com/pharmatrade/internal/modules/traderecord/repository"
	"anoa.com/pharmatrade/internal/store"
	"anoa.com/pharmatrade/pkg/apperror"
	commonDto "anoa.com/pharmatrade/pkg/dto"
	"anoa.com/pharmatrade/pkg/sanitize"
)

const (
	DefaultRecentLimit  = 10
	balanceRecentTrades = 3
)

type TradeRecordService interface {
	Create(ctx context.Context, actorID uint, req dto.CreateRecordRequest) (*dto.RecordResponse, error)
	Update(ctx context.Context, actorID, id uint, req dto.UpdateRecordRequest) (*dto.RecordResponse, error)
	Delete(ctx context.Context, actorID, id uint) (bool, error)

	GetByID(ctx context.Context, id uint) (*dto.RecordResponse, error)
	GetAll(ctx context.Context) ([]dto.RecordResponse, error)
	ListByCriteria(ctx context.Context, filter criteria.Criteria) ([]dto.RecordResponse, error)
	ListPaginated(ctx context.Context, filter dto.RecordFilter, page, size int) (*dto.PaginatedRecordResponse, error)
	Count(ctx context.Context, filter dto.RecordFilter) (int64, error)

	RecentForPharmacy(ctx context.Context, pharmacyID uint, limit int) ([]dto.RecordResponse, error)
	Between(ctx context.Context, p1, p2 uint, from, to time.Time) ([]dto.RecordResponse, error)
	Balance(ctx context.Context, p1, p2 uint) (float64, error)
	TradeCount(ctx context.Context, p1, p2 uint) (int, error)
	RecentBetween(ctx context.Context, p1, p2 uint, limit int) ([]dto.RecordResponse, error)
	BalanceSummary(ctx context.Context, actorID, p1, p2 uint, limit int) (*dto.BalanceResponse, error)
	BalanceList(ctx context.Context, actorID, pharmacyID uint, sortBy string) ([]dto.BalanceResponse, error)
}

type tradeRecordService struct {
	tx  *store.TxManager
	now func() time.Time
}

func NewTradeRecordService(tx *store.TxManager) TradeRecordService {
	return &tradeRecordService{tx: tx, now: time.Now}
}

// Create records a trade. The actor must own the giver or the receiver, or
// be an admin.
func (s *tradeRecordService) Create(ctx context.Context, actorID uint, req dto.CreateRecordRequest) (*dto.RecordResponse, error) {
	description := sanitize.Text(req.Description)
	if err := s.validate(description, req.Amount, req.TransactionDate, req.GiverID, req.ReceiverID); err != nil {
		return nil, err
	}

	var res *dto.RecordResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		recorder, err := uow.User(ctx, actorID)
		if err != nil {
			return err
		}
		giver, err := uow.Pharmacy(ctx, req.GiverID)
		if err != nil {
			return err
		}
		receiver, err := uow.Pharmacy(ctx, req.ReceiverID)
		if err != nil {
			return err
		}

		if !recorder.IsAdmin() && !giver.OwnedBy(recorder.ID) && !receiver.OwnedBy(recorder.ID) {
			return apperror.NotAuthorized("TradeRecord", "user with id=%d not authorized to create this trade record", actorID)
		}

		r := &entity.TradeRecord{
			Base:            entity.NewBase(),
			Description:     description,
			Amount:          req.Amount,
			TransactionDate: req.TransactionDate.UTC(),
		}
		uow.Graph.Add(r)
		if err := uow.AddGivenRecord(ctx, giver, r); err != nil {
			return err
		}
		if err := uow.AddReceivedRecord(ctx, receiver, r); err != nil {
			return err
		}
		if err := uow.AddRecordedRecord(ctx, recorder, r); err != nil {
			return err
		}
		uow.Graph.SetLastModifiedBy(r, recorder)

		if err := uow.Flush(ctx); err != nil {
			return err
		}
		res, err = s.describe(ctx, uow, r)
		return err
	})
	if err != nil {
		log.Printf("TradeRecord with description=%q, amount=%.2f was not created: %v", description, req.Amount, err)
		return nil, err
	}

	log.Printf("TradeRecord with id=%d, amount=%.2f created by user with id=%d", res.ID, res.Amount, actorID)
	return res, nil
}

// Update overwrites a record. A changed side is moved with the paired
// operations. Deletion flags are left as they are.
func (s *tradeRecordService) Update(ctx context.Context, actorID, id uint, req dto.UpdateRecordRequest) (*dto.RecordResponse, error) {
	description := sanitize.Text(req.Description)
	if err := s.validate(description, req.Amount, req.TransactionDate, req.GiverID, req.ReceiverID); err != nil {
		return nil, err
	}

	var res *dto.RecordResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		r, err := uow.Record(ctx, id)
		if err != nil {
			return err
		}
		actor, err := uow.User(ctx, actorID)
		if err != nil {
			return err
		}
		giver, err := uow.OptionalPharmacy(ctx, r.GiverID)
		if err != nil {
			return err
		}
		receiver, err := uow.OptionalPharmacy(ctx, r.ReceiverID)
		if err != nil {
			return err
		}

		if !actor.IsAdmin() && !giver.OwnedBy(actor.ID) && !receiver.OwnedBy(actor.ID) {
			return apperror.NotAuthorized("TradeRecord", "only giver, receiver or admin can update records")
		}

		if giver == nil || giver.ID != req.GiverID {
			next, err := uow.Pharmacy(ctx, req.GiverID)
			if err != nil {
				return err
			}
			if giver != nil {
				uow.Graph.RemoveGivenRecord(giver, r)
			}
			if err := uow.AddGivenRecord(ctx, next, r); err != nil {
				return err
			}
		}
		if receiver == nil || receiver.ID != req.ReceiverID {
			next, err := uow.Pharmacy(ctx, req.ReceiverID)
			if err != nil {
				return err
			}
			if receiver != nil {
				uow.Graph.RemoveReceivedRecord(receiver, r)
			}
			if err := uow.AddReceivedRecord(ctx, next, r); err != nil {
				return err
			}
		}

		r.Description = description
		r.Amount = req.Amount
		r.TransactionDate = req.TransactionDate.UTC()
		uow.Graph.SetLastModifiedBy(r, actor)

		if err := uow.Flush(ctx); err != nil {
			return err
		}
		res, err = s.describe(ctx, uow, r)
		return err
	})
	if err != nil {
		log.Printf("TradeRecord with id=%d was not updated: %v", id, err)
		return nil, err
	}

	log.Printf("TradeRecord with id=%d updated by user with id=%d", id, actorID)
	return res, nil
}

// Delete marks the record deleted for the actor's side and removes it once
// both sides have done so. Only the owners of the giver or receiver may
// delete; an owner of both counts as the giver. It reports whether the
// record was physically removed.
func (s *tradeRecordService) Delete(ctx context.Context, actorID, id uint) (bool, error) {
	var removed bool
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		r, err := uow.Record(ctx, id)
		if err != nil {
			return err
		}
		actor, err := uow.User(ctx, actorID)
		if err != nil {
			return err
		}
		giver, err := uow.OptionalPharmacy(ctx, r.GiverID)
		if err != nil {
			return err
		}
		receiver, err := uow.OptionalPharmacy(ctx, r.ReceiverID)
		if err != nil {
			return err
		}

		side := entity.SideNone
		switch {
		case giver.OwnedBy(actor.ID):
			side = entity.SideGiver
		case receiver.OwnedBy(actor.ID):
			side = entity.SideReceiver
		default:
			return apperror.NotAuthorized("TradeRecord", "only giver or receiver can delete records")
		}

		if !r.MarkDeleted(side) {
			uow.Graph.MarkDirty(r)
			return nil
		}

		if giver != nil {
			uow.Graph.RemoveGivenRecord(giver, r)
		}
		if receiver != nil {
			uow.Graph.RemoveReceivedRecord(receiver, r)
		}
		recorder, err := uow.OptionalUser(ctx, r.RecorderID)
		if err != nil {
			return err
		}
		if recorder != nil {
			uow.Graph.RemoveRecordedRecord(recorder, r)
		}
		uow.Graph.Remove(r)
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	log.Printf("TradeRecord with id=%d deleted by user with id=%d (removed=%t)", id, actorID, removed)
	return removed, nil
}

func (s *tradeRecordService) GetByID(ctx context.Context, id uint) (*dto.RecordResponse, error) {
	var res *dto.RecordResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		repo := repository.NewTradeRecordRepository(uow.DB())
		r, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		rows, err := project(ctx, repo, []*entity.TradeRecord{r})
		if err != nil {
			return err
		}
		res = &rows[0]
		return nil
	})
	return res, err
}

func (s *tradeRecordService) GetAll(ctx context.Context) ([]dto.RecordResponse, error) {
	return s.ListByCriteria(ctx, nil)
}

// ListByCriteria runs an ad hoc criteria map. Unknown paths fail with
// InvalidArgument.
func (s *tradeRecordService) ListByCriteria(ctx context.Context, filter criteria.Criteria) ([]dto.RecordResponse, error) {
	var res []dto.RecordResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		repo := repository.NewTradeRecordRepository(uow.DB())
		rows, err := repo.Find(ctx, store.Query{Where: filter})
		if err != nil {
			return err
		}
		res, err = project(ctx, repo, rows)
		return err
	})
	return res, err
}

func (s *tradeRecordService) ListPaginated(ctx context.Context, filter dto.RecordFilter, page, size int) (*dto.PaginatedRecordResponse, error) {
	var res *dto.PaginatedRecordResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		repo := repository.NewTradeRecordRepository(uow.DB())
		rows, total, err := repo.FindPage(ctx, filterCriteria(filter), page, size)
		if err != nil {
			return err
		}
		data, err := project(ctx, repo, rows)
		if err != nil {
			return err
		}
		res = &dto.PaginatedRecordResponse{
			Data: data,
			Meta: commonDto.NewPaginationMeta(page, size, total),
		}
		return nil
	})
	return res, err
}

func (s *tradeRecordService) Count(ctx context.Context, filter dto.RecordFilter) (int64, error) {
	var n int64
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		var err error
		n, err = repository.NewTradeRecordRepository(uow.DB()).Count(ctx, filterCriteria(filter))
		return err
	})
	return n, err
}

// RecentForPharmacy returns the newest records where the pharmacy is either
// the giver or the receiver.
func (s *tradeRecordService) RecentForPharmacy(ctx context.Context, pharmacyID uint, limit int) ([]dto.RecordResponse, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	var res []dto.RecordResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		if _, err := uow.Pharmacy(ctx, pharmacyID); err != nil {
			return err
		}
		repo := repository.NewTradeRecordRepository(uow.DB())
		rows, err := newestOf(ctx, repo, limit,
			criteria.Criteria{"giver.id": pharmacyID},
			criteria.Criteria{"receiver.id": pharmacyID},
		)
		if err != nil {
			return err
		}
		res, err = project(ctx, repo, rows)
		return err
	})
	return res, err
}

// Between lists the trades of the pair in both directions dated within
// [from, to], newest first.
func (s *tradeRecordService) Between(ctx context.Context, p1, p2 uint, from, to time.Time) ([]dto.RecordResponse, error) {
	var res []dto.RecordResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		if err := pairExists(ctx, uow, p1, p2); err != nil {
			return err
		}
		window := criteria.Range{From: from.UTC(), To: to.UTC()}
		repo := repository.NewTradeRecordRepository(uow.DB())
		rows, err := newestOf(ctx, repo, 0,
			criteria.Criteria{"giver.id": p1, "receiver.id": p2, "transaction_date": window},
			criteria.Criteria{"giver.id": p2, "receiver.id": p1, "transaction_date": window},
		)
		if err != nil {
			return err
		}
		res, err = project(ctx, repo, rows)
		return err
	})
	return res, err
}

// Balance is what p1 received from p2 minus what it gave to p2. Records
// deleted by one side only still count.
func (s *tradeRecordService) Balance(ctx context.Context, p1, p2 uint) (float64, error) {
	var balance float64
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		if err := pairExists(ctx, uow, p1, p2); err != nil {
			return err
		}
		var err error
		balance, err = pairBalance(ctx, repository.NewTradeRecordRepository(uow.DB()), p1, p2)
		return err
	})
	return balance, err
}

func (s *tradeRecordService) TradeCount(ctx context.Context, p1, p2 uint) (int, error) {
	var n int
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		if err := pairExists(ctx, uow, p1, p2); err != nil {
			return err
		}
		var err error
		n, err = pairCount(ctx, repository.NewTradeRecordRepository(uow.DB()), p1, p2)
		return err
	})
	return n, err
}

func (s *tradeRecordService) RecentBetween(ctx context.Context, p1, p2 uint, limit int) ([]dto.RecordResponse, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	var res []dto.RecordResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		if err := pairExists(ctx, uow, p1, p2); err != nil {
			return err
		}
		repo := repository.NewTradeRecordRepository(uow.DB())
		rows, err := pairRecent(ctx, repo, p1, p2, limit)
		if err != nil {
			return err
		}
		res, err = project(ctx, repo, rows)
		return err
	})
	return res, err
}

// BalanceSummary gathers p1's standing against p2 together with the label
// the actor gave p2.
func (s *tradeRecordService) BalanceSummary(ctx context.Context, actorID, p1, p2 uint, limit int) (*dto.BalanceResponse, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	var res *dto.BalanceResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		actor, err := uow.User(ctx, actorID)
		if err != nil {
			return err
		}
		if err := pairExists(ctx, uow, p1, p2); err != nil {
			return err
		}
		counterparty, err := uow.Pharmacy(ctx, p2)
		if err != nil {
			return err
		}

		repo := repository.NewTradeRecordRepository(uow.DB())
		balance, err := pairBalance(ctx, repo, p1, p2)
		if err != nil {
			return err
		}
		count, err := pairCount(ctx, repo, p1, p2)
		if err != nil {
			return err
		}
		rows, err := pairRecent(ctx, repo, p1, p2, limit)
		if err != nil {
			return err
		}
		recent, err := project(ctx, repo, rows)
		if err != nil {
			return err
		}
		labels, err := repo.ContactNames(ctx, actor.ID)
		if err != nil {
			return err
		}

		res = &dto.BalanceResponse{
			ContactName:  labels[p2],
			PharmacyName: counterparty.Name,
			PharmacyID:   counterparty.ID,
			Amount:       balance,
			RecentTrades: recent,
			TradeCount:   count,
		}
		return nil
	})
	return res, err
}

// BalanceList returns the standing of pharmacyID against every pharmacy it
// has traded with, sorted by counterparty name or by amount descending.
func (s *tradeRecordService) BalanceList(ctx context.Context, actorID, pharmacyID uint, sortBy string) ([]dto.BalanceResponse, error) {
	var res []dto.BalanceResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		actor, err := uow.User(ctx, actorID)
		if err != nil {
			return err
		}
		if _, err := uow.Pharmacy(ctx, pharmacyID); err != nil {
			return err
		}

		repo := repository.NewTradeRecordRepository(uow.DB())
		rows, err := newestOf(ctx, repo, 0,
			criteria.Criteria{"giver.id": pharmacyID},
			criteria.Criteria{"receiver.id": pharmacyID},
		)
		if err != nil {
			return err
		}
		projected, err := project(ctx, repo, rows)
		if err != nil {
			return err
		}
		labels, err := repo.ContactNames(ctx, actor.ID)
		if err != nil {
			return err
		}

		byCounterparty := make(map[uint]*dto.BalanceResponse)
		var order []uint
		for i, r := range rows {
			var other *uint
			amount := r.Amount
			if r.GiverID != nil && *r.GiverID == pharmacyID {
				other = r.ReceiverID
				amount = -amount
			} else {
				other = r.GiverID
			}
			if other == nil {
				continue
			}

			b, ok := byCounterparty[*other]
			if !ok {
				name := projected[i].GiverName
				if amount < 0 {
					name = projected[i].ReceiverName
				}
				b = &dto.BalanceResponse{
					ContactName:  labels[*other],
					PharmacyName: name,
					PharmacyID:   *other,
					RecentTrades: []dto.RecordResponse{},
				}
				byCounterparty[*other] = b
				order = append(order, *other)
			}
			b.Amount += amount
			b.TradeCount++
			if len(b.RecentTrades) < balanceRecentTrades {
				b.RecentTrades = append(b.RecentTrades, projected[i])
			}
		}

		res = make([]dto.BalanceResponse, 0, len(order))
		for _, id := range order {
			res = append(res, *byCounterparty[id])
		}
		sortBalances(res, sortBy)
		return nil
	})
	return res, err
}

func (s *tradeRecordService) validate(description string, amount float64, date time.Time, giverID, receiverID uint) error {
	if description == "" {
		return apperror.InvalidArgument("TradeRecord", "description must not be empty")
	}
	if amount <= 0 {
		return apperror.InvalidArgument("TradeRecord", "amount must be positive, got %.2f", amount)
	}
	if date.IsZero() || date.After(s.now()) {
		return apperror.InvalidArgument("TradeRecord", "transaction date must not be in the future")
	}
	if giverID == receiverID {
		return apperror.InvalidArgument("TradeRecord", "giver and receiver must differ")
	}
	return nil
}

func validateLimit(limit int) error {
	if limit <= 0 {
		return apperror.InvalidArgument("TradeRecord", "limit must be positive, got %d", limit)
	}
	return nil
}

func pairExists(ctx context.Context, uow *store.UnitOfWork, p1, p2 uint) error {
	if _, err := uow.Pharmacy(ctx, p1); err != nil {
		return err
	}
	_, err := uow.Pharmacy(ctx, p2)
	return err
}

func pairBalance(ctx context.Context, repo repository.TradeRecordRepository, p1, p2 uint) (float64, error) {
	given, err := repo.SumAmount(ctx, criteria.Criteria{"giver.id": p1, "receiver.id": p2})
	if err != nil {
		return 0, err
	}
	received, err := repo.SumAmount(ctx, criteria.Criteria{"giver.id": p2, "receiver.id": p1})
	if err != nil {
		return 0, err
	}
	return received - given, nil
}

func pairCount(ctx context.Context, repo repository.TradeRecordRepository, p1, p2 uint) (int, error) {
	out, err := repo.Count(ctx, criteria.Criteria{"giver.id": p1, "receiver.id": p2})
	if err != nil {
		return 0, err
	}
	in, err := repo.Count(ctx, criteria.Criteria{"giver.id": p2, "receiver.id": p1})
	if err != nil {
		return 0, err
	}
	return int(out + in), nil
}

func pairRecent(ctx context.Context, repo repository.TradeRecordRepository, p1, p2 uint, limit int) ([]*entity.TradeRecord, error) {
	return newestOf(ctx, repo, limit,
		criteria.Criteria{"giver.id": p1, "receiver.id": p2},
		criteria.Criteria{"giver.id": p2, "receiver.id": p1},
	)
}

// newestOf merges the results of several filters newest first, keeping at
// most limit rows when limit is positive. A row matched twice appears once.
func newestOf(ctx context.Context, repo repository.TradeRecordRepository, limit int, filters ...criteria.Criteria) ([]*entity.TradeRecord, error) {
	seen := make(map[uint]struct{})
	var out []*entity.TradeRecord
	for _, f := range filters {
		rows, err := repo.Find(ctx, store.Query{
			Where: f,
			Order: []criteria.OrderBy{{Path: "transaction_date", Desc: true}},
			Limit: limit,
		})
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.After(out[j].TransactionDate)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortBalances(balances []dto.BalanceResponse, sortBy string) {
	sort.SliceStable(balances, func(i, j int) bool {
		if sortBy == "amount" && balances[i].Amount != balances[j].Amount {
			return balances[i].Amount > balances[j].Amount
		}
		return balances[i].PharmacyName < balances[j].PharmacyName
	})
}

func filterCriteria(filter dto.RecordFilter) criteria.Criteria {
	c := criteria.Criteria{}
	if filter.Description != "" {
		c["description"] = "%" + filter.Description + "%"
	}
	if filter.GiverID != 0 {
		c["giver.id"] = filter.GiverID
	}
	if filter.ReceiverID != 0 {
		c["receiver.id"] = filter.ReceiverID
	}
	if filter.GiverName != "" {
		c["giver.name"] = "%" + filter.GiverName + "%"
	}
	if filter.ReceiverName != "" {
		c["receiver.name"] = "%" + filter.ReceiverName + "%"
	}
	if !filter.From.IsZero() && !filter.To.IsZero() {
		// the upper bound covers the whole of the To day
		c["transaction_date"] = criteria.Range{From: filter.From.UTC(), To: filter.To.UTC().Add(24*time.Hour - time.Nanosecond)}
	}
	return c
}

func (s *tradeRecordService) describe(ctx context.Context, uow *store.UnitOfWork, r *entity.TradeRecord) (*dto.RecordResponse, error) {
	rows, err := project(ctx, repository.NewTradeRecordRepository(uow.DB()), []*entity.TradeRecord{r})
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

func project(ctx context.Context, repo repository.TradeRecordRepository, rows []*entity.TradeRecord) ([]dto.RecordResponse, error) {
	pharmacies, users, err := repo.Names(ctx, rows)
	if err != nil {
		return nil, err
	}

	res := make([]dto.RecordResponse, 0, len(rows))
	for _, r := range rows {
		res = append(res, dto.RecordResponse{
			ID:                     r.ID,
			Description:            r.Description,
			Amount:                 r.Amount,
			GiverID:                r.GiverID,
			GiverName:              lookup(pharmacies, r.GiverID),
			ReceiverID:             r.ReceiverID,
			ReceiverName:           lookup(pharmacies, r.ReceiverID),
			RecorderUsername:       lookup(users, r.RecorderID),
			LastModifiedByUsername: lookup(users, r.LastModifiedByID),
			TransactionDate:        r.TransactionDate,
			DeletedByGiver:         r.DeletedByGiver,
			DeletedByReceiver:      r.DeletedByReceiver,
		})
	}
	return res, nil
}

func lookup(names map[uint]string, id *uint) string {
	if id == nil {
		return ""
	}
	return names[*id]
}
