package pharmacy

import (
	"context"
	"log"

	"anoa.com/pharmatrade/internal/criteria"
	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/internal/modules/pharmacy/dto"
	"anoa.com/pharmatrade/internal/modules/pharmacy/repository"
	search "anoa.com/pharmatrade/internal/modules/search/service"
	"anoa.com/pharmatrade/internal/store"
	"anoa.com/pharmatrade/pkg/apperror"
	commonDto "anoa.com/pharmatrade/pkg/dto"
	"anoa.com/pharmatrade/pkg/sanitize"
)

const defaultSearchLimit = 20

type PharmacyService interface {
	Create(ctx context.Context, actorID uint, req dto.CreatePharmacyRequest) (*dto.PharmacyResponse, error)
	Update(ctx context.Context, actorID, id uint, req dto.UpdatePharmacyRequest) (*dto.PharmacyResponse, error)
	Delete(ctx context.Context, actorID, id uint) error
	GetByID(ctx context.Context, id uint) (*dto.PharmacyResponse, error)
	GetByName(ctx context.Context, name string) (*dto.PharmacyResponse, error)
	SearchByName(ctx context.Context, name string) ([]dto.PharmacyResponse, error)
	SearchByUser(ctx context.Context, username string) ([]dto.PharmacyResponse, error)
	List(ctx context.Context, filter dto.PharmacyFilter) ([]dto.PharmacyResponse, error)
	ListPaginated(ctx context.Context, filter dto.PharmacyFilter, page, size int) (*dto.PaginatedPharmacyResponse, error)
	Count(ctx context.Context, filter dto.PharmacyFilter) (int64, error)
	NameExists(ctx context.Context, name string) (bool, error)
	Search(ctx context.Context, query dto.SearchQuery) ([]dto.SearchResult, error)
}

type pharmacyService struct {
	tx     *store.TxManager
	search search.Service
}

func NewPharmacyService(tx *store.TxManager, searchService search.Service) PharmacyService {
	return &pharmacyService{tx: tx, search: searchService}
}

func (s *pharmacyService) Create(ctx context.Context, actorID uint, req dto.CreatePharmacyRequest) (*dto.PharmacyResponse, error) {
	name := sanitize.Text(req.Name)
	if name == "" {
		return nil, apperror.InvalidArgument("Pharmacy", "name must not be empty")
	}

	var (
		created *entity.Pharmacy
		owner   *entity.User
	)
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		var err error
		owner, err = uow.User(ctx, actorID)
		if err != nil {
			return err
		}
		if err := ensureNameFree(ctx, repository.NewPharmacyRepository(uow.DB()), name, 0); err != nil {
			return err
		}

		created = &entity.Pharmacy{Base: entity.NewBase(), Name: name}
		uow.Graph.Add(created)
		return uow.AddPharmacy(ctx, owner, created)
	})
	if err != nil {
		log.Printf("Pharmacy with name=%q was not created: %v", name, err)
		return nil, err
	}

	s.index(search.PharmacyDoc(created, owner.Username))
	log.Printf("Pharmacy with name=%q created by user with id=%d", name, actorID)
	return toPharmacyResponse(created, owner.Username), nil
}

func (s *pharmacyService) Update(ctx context.Context, actorID, id uint, req dto.UpdatePharmacyRequest) (*dto.PharmacyResponse, error) {
	name := sanitize.Text(req.Name)
	if name == "" {
		return nil, apperror.InvalidArgument("Pharmacy", "name must not be empty")
	}

	var (
		updated   *entity.Pharmacy
		ownerName string
	)
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		actor, err := uow.User(ctx, actorID)
		if err != nil {
			return err
		}
		p, err := uow.Pharmacy(ctx, id)
		if err != nil {
			return err
		}
		if !p.OwnedBy(actor.ID) && !actor.IsAdmin() {
			return apperror.NotAuthorized("Pharmacy", "user with id=%d not authorized to update pharmacy with id=%d", actorID, id)
		}
		if err := ensureNameFree(ctx, repository.NewPharmacyRepository(uow.DB()), name, p.ID); err != nil {
			return err
		}

		p.Name = name
		uow.Graph.MarkDirty(p)

		owner, err := uow.OptionalUser(ctx, p.UserID)
		if err != nil {
			return err
		}
		if owner != nil {
			ownerName = owner.Username
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.index(search.PharmacyDoc(updated, ownerName))
	log.Printf("Pharmacy with id=%d updated by user with id=%d", id, actorID)
	return toPharmacyResponse(updated, ownerName), nil
}

// Delete removes a pharmacy and its contacts. Trade records it took part in
// stay with that side cleared.
func (s *pharmacyService) Delete(ctx context.Context, actorID, id uint) error {
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		actor, err := uow.User(ctx, actorID)
		if err != nil {
			return err
		}
		p, err := uow.Pharmacy(ctx, id)
		if err != nil {
			return err
		}
		if !p.OwnedBy(actor.ID) && !actor.IsAdmin() {
			return apperror.NotAuthorized("Pharmacy", "user with id=%d not authorized to delete pharmacy with id=%d", actorID, id)
		}

		if err := uow.LoadPharmacyGraph(ctx, p); err != nil {
			return err
		}
		uow.Graph.DetachPharmacy(p)
		uow.Graph.Remove(p)
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.search.DeletePharmacies(id); err != nil {
		log.Printf("Failed to delete pharmacy %d from index: %v", id, err)
	}
	log.Printf("Pharmacy with id=%d deleted by user with id=%d", id, actorID)
	return nil
}

func (s *pharmacyService) GetByID(ctx context.Context, id uint) (*dto.PharmacyResponse, error) {
	var res *dto.PharmacyResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		repo := repository.NewPharmacyRepository(uow.DB())
		p, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		rows, err := project(ctx, repo, []*entity.Pharmacy{p})
		if err != nil {
			return err
		}
		res = &rows[0]
		return nil
	})
	return res, err
}

func (s *pharmacyService) GetByName(ctx context.Context, name string) (*dto.PharmacyResponse, error) {
	var res *dto.PharmacyResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		repo := repository.NewPharmacyRepository(uow.DB())
		p, err := repo.FindByName(ctx, name)
		if err != nil {
			return err
		}
		if p == nil {
			return apperror.NotFound("Pharmacy", "pharmacy with name %q was not found", name)
		}
		rows, err := project(ctx, repo, []*entity.Pharmacy{p})
		if err != nil {
			return err
		}
		res = &rows[0]
		return nil
	})
	return res, err
}

func (s *pharmacyService) SearchByName(ctx context.Context, name string) ([]dto.PharmacyResponse, error) {
	return s.find(ctx, criteria.Criteria{"name": "%" + name + "%"})
}

func (s *pharmacyService) SearchByUser(ctx context.Context, username string) ([]dto.PharmacyResponse, error) {
	return s.find(ctx, criteria.Criteria{"user.username": username})
}

func (s *pharmacyService) List(ctx context.Context, filter dto.PharmacyFilter) ([]dto.PharmacyResponse, error) {
	return s.find(ctx, filterCriteria(filter))
}

func (s *pharmacyService) ListPaginated(ctx context.Context, filter dto.PharmacyFilter, page, size int) (*dto.PaginatedPharmacyResponse, error) {
	var res *dto.PaginatedPharmacyResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		repo := repository.NewPharmacyRepository(uow.DB())
		rows, total, err := repo.FindPage(ctx, filterCriteria(filter), page, size)
		if err != nil {
			return err
		}
		data, err := project(ctx, repo, rows)
		if err != nil {
			return err
		}
		res = &dto.PaginatedPharmacyResponse{
			Data: data,
			Meta: commonDto.NewPaginationMeta(page, size, total),
		}
		return nil
	})
	return res, err
}

func (s *pharmacyService) Count(ctx context.Context, filter dto.PharmacyFilter) (int64, error) {
	var n int64
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		var err error
		n, err = repository.NewPharmacyRepository(uow.DB()).Count(ctx, filterCriteria(filter))
		return err
	})
	return n, err
}

func (s *pharmacyService) NameExists(ctx context.Context, name string) (bool, error) {
	var found bool
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		p, err := repository.NewPharmacyRepository(uow.DB()).FindByName(ctx, name)
		found = p != nil
		return err
	})
	return found, err
}

// Search queries the directory index and falls back to a name match in the
// database when the index is disabled or failing.
func (s *pharmacyService) Search(ctx context.Context, query dto.SearchQuery) ([]dto.SearchResult, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	if s.search.Enabled() {
		docs, err := s.search.SearchPharmacies(query.Q, limit)
		if err == nil {
			res := make([]dto.SearchResult, 0, len(docs))
			for _, d := range docs {
				res = append(res, dto.SearchResult{ID: d.ID, Name: d.Name, Owner: d.Owner})
			}
			return res, nil
		}
		log.Printf("Pharmacy search failed, falling back to database: %v", err)
	}

	rows, err := s.SearchByName(ctx, query.Q)
	if err != nil {
		return nil, err
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	res := make([]dto.SearchResult, 0, len(rows))
	for _, r := range rows {
		res = append(res, dto.SearchResult{ID: r.ID, Name: r.Name, Owner: r.OwnerUsername})
	}
	return res, nil
}

func (s *pharmacyService) find(ctx context.Context, filter criteria.Criteria) ([]dto.PharmacyResponse, error) {
	var res []dto.PharmacyResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		repo := repository.NewPharmacyRepository(uow.DB())
		rows, err := repo.FindAll(ctx, filter)
		if err != nil {
			return err
		}
		res, err = project(ctx, repo, rows)
		return err
	})
	return res, err
}

func (s *pharmacyService) index(doc search.PharmacyDocument) {
	if err := s.search.IndexPharmacies(doc); err != nil {
		log.Printf("Failed to index pharmacy %d: %v", doc.ID, err)
	}
}

func ensureNameFree(ctx context.Context, repo repository.PharmacyRepository, name string, self uint) error {
	existing, err := repo.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return apperror.AlreadyExists("Pharmacy", "pharmacy with name %q already exists", name)
	}
	return nil
}

func filterCriteria(filter dto.PharmacyFilter) criteria.Criteria {
	c := criteria.Criteria{}
	if filter.Name != "" {
		c["name"] = "%" + filter.Name + "%"
	}
	if filter.Owner != "" {
		c["user.username"] = filter.Owner
	}
	return c
}

func project(ctx context.Context, repo repository.PharmacyRepository, rows []*entity.Pharmacy) ([]dto.PharmacyResponse, error) {
	owners, err := repo.OwnerNames(ctx, rows)
	if err != nil {
		return nil, err
	}
	res := make([]dto.PharmacyResponse, 0, len(rows))
	for _, p := range rows {
		var owner string
		if p.UserID != nil {
			owner = owners[*p.UserID]
		}
		res = append(res, *toPharmacyResponse(p, owner))
	}
	return res, nil
}

func toPharmacyResponse(p *entity.Pharmacy, owner string) *dto.PharmacyResponse {
	return &dto.PharmacyResponse{
		ID:            p.ID,
		UUID:          p.UUID,
		Name:          p.Name,
		OwnerID:       p.UserID,
		OwnerUsername: owner,
		CreatedAt:     p.CreatedAt,
	}
}
