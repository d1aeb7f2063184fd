package contact

import (
	"context"
	"log"

	"anoa.com/pharmatrade/internal/criteria"
	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/internal/modules/contact/dto"
	"anoa.com/pharmatrade/internal/modules/contact/repository"
	"anoa.com/pharmatrade/internal/store"
	"anoa.com/pharmatrade/pkg/apperror"
	"anoa.com/pharmatrade/pkg/sanitize"
)

type ContactService interface {
	Create(ctx context.Context, actorID uint, req dto.CreateContactRequest) (*dto.ContactResponse, error)
	Update(ctx context.Context, actorID, id uint, req dto.UpdateContactRequest) (*dto.ContactResponse, error)
	Delete(ctx context.Context, actorID, id uint) error
	GetByID(ctx context.Context, actorID, id uint) (*dto.ContactResponse, error)
	Exists(ctx context.Context, userID, pharmacyID uint) (bool, error)
	List(ctx context.Context, actorID uint, filter dto.ContactFilter) ([]dto.ContactResponse, error)
}

type contactService struct {
	tx *store.TxManager
}

func NewContactService(tx *store.TxManager) ContactService {
	return &contactService{tx: tx}
}

// Create labels a pharmacy for the acting user. A user holds at most one
// contact per pharmacy.
func (s *contactService) Create(ctx context.Context, actorID uint, req dto.CreateContactRequest) (*dto.ContactResponse, error) {
	name := sanitize.Text(req.ContactName)
	if name == "" {
		return nil, apperror.InvalidArgument("Contact", "contact name must not be empty")
	}

	var res *dto.ContactResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		owner, err := uow.User(ctx, actorID)
		if err != nil {
			return err
		}
		p, err := uow.Pharmacy(ctx, req.PharmacyID)
		if err != nil {
			return err
		}

		exists, err := repository.NewContactRepository(uow.DB()).Exists(ctx, owner.ID, p.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperror.AlreadyExists("Contact", "contact for user with id=%d and pharmacy with id=%d already exists", owner.ID, p.ID)
		}

		c := &entity.PharmacyContact{Base: entity.NewBase(), ContactName: name}
		uow.Graph.Add(c)
		if err := uow.AddUserContact(ctx, owner, c); err != nil {
			return err
		}
		if err := uow.AddPharmacyContact(ctx, p, c); err != nil {
			return err
		}
		if err := uow.Flush(ctx); err != nil {
			return err
		}

		res = toContactResponse(c, owner.Username, p.Name)
		return nil
	})
	if err != nil {
		log.Printf("Contact %q was not created: %v", name, err)
		return nil, err
	}

	log.Printf("Contact with id=%d created by user with id=%d", res.ID, actorID)
	return res, nil
}

func (s *contactService) Update(ctx context.Context, actorID, id uint, req dto.UpdateContactRequest) (*dto.ContactResponse, error) {
	name := sanitize.Text(req.ContactName)
	if name == "" {
		return nil, apperror.InvalidArgument("Contact", "contact name must not be empty")
	}

	var res *dto.ContactResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		c, err := s.authorized(ctx, uow, actorID, id)
		if err != nil {
			return err
		}

		c.ContactName = name
		uow.Graph.MarkDirty(c)

		res, err = describe(ctx, uow, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Contact with id=%d updated by user with id=%d", id, actorID)
	return res, nil
}

func (s *contactService) Delete(ctx context.Context, actorID, id uint) error {
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		c, err := s.authorized(ctx, uow, actorID, id)
		if err != nil {
			return err
		}

		owner, err := uow.OptionalUser(ctx, c.UserID)
		if err != nil {
			return err
		}
		if owner != nil {
			uow.Graph.RemoveUserContact(owner, c)
		}
		p, err := uow.OptionalPharmacy(ctx, c.PharmacyID)
		if err != nil {
			return err
		}
		if p != nil {
			uow.Graph.RemovePharmacyContact(p, c)
		}
		uow.Graph.Remove(c)
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Contact with id=%d deleted by user with id=%d", id, actorID)
	return nil
}

func (s *contactService) GetByID(ctx context.Context, actorID, id uint) (*dto.ContactResponse, error) {
	var res *dto.ContactResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		c, err := s.authorized(ctx, uow, actorID, id)
		if err != nil {
			return err
		}
		res, err = describe(ctx, uow, c)
		return err
	})
	return res, err
}

// Exists never fails with NotFound; unknown ids simply have no contact.
func (s *contactService) Exists(ctx context.Context, userID, pharmacyID uint) (bool, error) {
	var found bool
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		var err error
		found, err = repository.NewContactRepository(uow.DB()).Exists(ctx, userID, pharmacyID)
		return err
	})
	return found, err
}

// List returns the acting user's contacts. Admins see every user's.
func (s *contactService) List(ctx context.Context, actorID uint, filter dto.ContactFilter) ([]dto.ContactResponse, error) {
	var res []dto.ContactResponse
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		actor, err := uow.User(ctx, actorID)
		if err != nil {
			return err
		}

		where := criteria.Criteria{}
		if !actor.IsAdmin() {
			where["user.id"] = actor.ID
		}
		if filter.ContactName != "" {
			where["contact_name"] = "%" + filter.ContactName + "%"
		}
		if filter.PharmacyName != "" {
			where["pharmacy.name"] = "%" + filter.PharmacyName + "%"
		}

		repo := repository.NewContactRepository(uow.DB())
		rows, err := repo.FindAll(ctx, where)
		if err != nil {
			return err
		}
		users, pharmacies, err := repo.Names(ctx, rows)
		if err != nil {
			return err
		}

		res = make([]dto.ContactResponse, 0, len(rows))
		for _, c := range rows {
			res = append(res, *toContactResponse(c, lookup(users, c.UserID), lookup(pharmacies, c.PharmacyID)))
		}
		return nil
	})
	return res, err
}

// authorized loads contact id for a caller that owns it or is an admin.
func (s *contactService) authorized(ctx context.Context, uow *store.UnitOfWork, actorID, id uint) (*entity.PharmacyContact, error) {
	actor, err := uow.User(ctx, actorID)
	if err != nil {
		return nil, err
	}
	c, err := uow.Contact(ctx, id)
	if err != nil {
		return nil, err
	}
	owned := c.UserID != nil && *c.UserID == actor.ID
	if !owned && !actor.IsAdmin() {
		return nil, apperror.NotAuthorized("Contact", "user with id=%d not authorized for contact with id=%d", actorID, id)
	}
	return c, nil
}

func describe(ctx context.Context, uow *store.UnitOfWork, c *entity.PharmacyContact) (*dto.ContactResponse, error) {
	owner, err := uow.OptionalUser(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	p, err := uow.OptionalPharmacy(ctx, c.PharmacyID)
	if err != nil {
		return nil, err
	}

	var username, pharmacyName string
	if owner != nil {
		username = owner.Username
	}
	if p != nil {
		pharmacyName = p.Name
	}
	return toContactResponse(c, username, pharmacyName), nil
}

func lookup(names map[uint]string, id *uint) string {
	if id == nil {
		return ""
	}
	return names[*id]
}

func toContactResponse(c *entity.PharmacyContact, username, pharmacyName string) *dto.ContactResponse {
	return &dto.ContactResponse{
		ID:           c.ID,
		UserID:       c.UserID,
		Username:     username,
		PharmacyID:   c.PharmacyID,
		PharmacyName: pharmacyName,
		ContactName:  c.ContactName,
		CreatedAt:    c.CreatedAt,
	}
}
