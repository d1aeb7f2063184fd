package user

import (
	"context"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"anoa.com/pharmatrade/internal/criteria"
	"anoa.com/pharmatrade/internal/entity"
	search "anoa.com/pharmatrade/internal/modules/search/service"
	"anoa.com/pharmatrade/internal/modules/user/dto"
	"anoa.com/pharmatrade/internal/modules/user/repository"
	"anoa.com/pharmatrade/internal/store"
	"anoa.com/pharmatrade/pkg/apperror"
	commonDto "anoa.com/pharmatrade/pkg/dto"
)

type UserService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserResponse, error)
	Update(ctx context.Context, actorID, id uint, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, actorID, id uint) error
	GetByID(ctx context.Context, id uint) (*dto.UserResponse, error)
	GetByUsername(ctx context.Context, username string) (*dto.UserResponse, error)
	List(ctx context.Context, filter dto.UserFilter) ([]dto.UserResponse, error)
	ListPaginated(ctx context.Context, filter dto.UserFilter, page, size int) (*dto.PaginatedUserResponse, error)
	Pharmacies(ctx context.Context, userID uint) ([]dto.PharmacySummary, error)
	Contacts(ctx context.Context, userID uint) ([]dto.ContactSummary, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

type userService struct {
	tx     *store.TxManager
	search search.Service
}

func NewUserService(tx *store.TxManager, searchService search.Service) UserService {
	return &userService{tx: tx, search: searchService}
}

func (s *userService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserResponse, error) {
	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var created *entity.User
	err = s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		repo := repository.NewUserRepository(uow.DB())
		username := strings.TrimSpace(req.Username)
		email := strings.TrimSpace(req.Email)
		if err := ensureUnique(ctx, repo, username, email, 0); err != nil {
			return err
		}

		created = &entity.User{
			Base:         entity.NewBase(),
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Role:         entity.RoleRegular,
		}
		uow.Graph.Add(created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("User %q registered with id=%d", created.Username, created.ID)
	return toUserResponse(created), nil
}

func (s *userService) Update(ctx context.Context, actorID, id uint, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	var (
		updated *entity.User
		reindex []search.PharmacyDocument
	)
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		actor, err := uow.User(ctx, actorID)
		if err != nil {
			return err
		}
		target, err := uow.User(ctx, id)
		if err != nil {
			return err
		}
		if actor.ID != target.ID && !actor.IsAdmin() {
			return apperror.NotAuthorized("User", "user with id=%d not authorized to update user with id=%d", actorID, id)
		}
		if req.Role != nil && !actor.IsAdmin() {
			return apperror.NotAuthorized("User", "only admins can change roles")
		}

		repo := repository.NewUserRepository(uow.DB())
		var username, email string
		if req.Username != nil && strings.TrimSpace(*req.Username) != target.Username {
			username = strings.TrimSpace(*req.Username)
		}
		if req.Email != nil && strings.TrimSpace(*req.Email) != target.Email {
			email = strings.TrimSpace(*req.Email)
		}
		if err := ensureUnique(ctx, repo, username, email, target.ID); err != nil {
			return err
		}

		if username != "" {
			target.Username = username
			owned, err := uow.PharmaciesOf(ctx, target)
			if err != nil {
				return err
			}
			for _, p := range owned {
				reindex = append(reindex, search.PharmacyDoc(p, username))
			}
		}
		if email != "" {
			target.Email = email
		}
		if req.Password != nil {
			hash, err := hashPassword(*req.Password)
			if err != nil {
				return err
			}
			target.PasswordHash = hash
		}
		if req.Role != nil {
			target.Role = entity.Role(*req.Role)
		}

		uow.Graph.MarkDirty(target)
		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.index(reindex)
	log.Printf("User with id=%d updated by user with id=%d", id, actorID)
	return toUserResponse(updated), nil
}

// Delete removes a user. Owned pharmacies and recorded trades survive with
// their reference cleared; the user's contacts go with it.
func (s *userService) Delete(ctx context.Context, actorID, id uint) error {
	var reindex []search.PharmacyDocument
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		actor, err := uow.User(ctx, actorID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			return apperror.NotAuthorized("User", "only admins can delete users")
		}
		target, err := uow.User(ctx, id)
		if err != nil {
			return err
		}

		if err := uow.LoadUserGraph(ctx, target); err != nil {
			return err
		}
		for _, p := range uow.Graph.PharmaciesOf(target) {
			reindex = append(reindex, search.PharmacyDoc(p, ""))
		}

		uow.Graph.DetachUser(target)
		uow.Graph.Remove(target)
		return nil
	})
	if err != nil {
		return err
	}

	s.index(reindex)
	log.Printf("User with id=%d deleted by user with id=%d", id, actorID)
	return nil
}

func (s *userService) GetByID(ctx context.Context, id uint) (*dto.UserResponse, error) {
	var found *entity.User
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		var err error
		found, err = repository.NewUserRepository(uow.DB()).FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toUserResponse(found), nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*dto.UserResponse, error) {
	var found *entity.User
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		var err error
		found, err = repository.NewUserRepository(uow.DB()).FindByUsername(ctx, username)
		if err != nil {
			return err
		}
		if found == nil {
			return apperror.NotFound("User", "user with username %q was not found", username)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toUserResponse(found), nil
}

func (s *userService) List(ctx context.Context, filter dto.UserFilter) ([]dto.UserResponse, error) {
	var users []*entity.User
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		var err error
		users, err = repository.NewUserRepository(uow.DB()).FindAll(ctx, filterCriteria(filter))
		return err
	})
	if err != nil {
		return nil, err
	}
	return toUserResponses(users), nil
}

func (s *userService) ListPaginated(ctx context.Context, filter dto.UserFilter, page, size int) (*dto.PaginatedUserResponse, error) {
	var (
		users []*entity.User
		total int64
	)
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		var err error
		users, total, err = repository.NewUserRepository(uow.DB()).FindPage(ctx, filterCriteria(filter), page, size)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedUserResponse{
		Data: toUserResponses(users),
		Meta: commonDto.NewPaginationMeta(page, size, total),
	}, nil
}

func (s *userService) Pharmacies(ctx context.Context, userID uint) ([]dto.PharmacySummary, error) {
	res := []dto.PharmacySummary{}
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		owner, err := uow.User(ctx, userID)
		if err != nil {
			return err
		}
		owned, err := uow.PharmaciesOf(ctx, owner)
		if err != nil {
			return err
		}
		for _, p := range owned {
			res = append(res, dto.PharmacySummary{ID: p.ID, Name: p.Name})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *userService) Contacts(ctx context.Context, userID uint) ([]dto.ContactSummary, error) {
	res := []dto.ContactSummary{}
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		owner, err := uow.User(ctx, userID)
		if err != nil {
			return err
		}
		contacts, err := uow.ContactsOfUser(ctx, owner)
		if err != nil {
			return err
		}
		for _, c := range contacts {
			p, err := uow.OptionalPharmacy(ctx, c.PharmacyID)
			if err != nil {
				return err
			}
			summary := dto.ContactSummary{ID: c.ID, ContactName: c.ContactName, PharmacyID: c.PharmacyID}
			if p != nil {
				summary.PharmacyName = p.Name
			}
			res = append(res, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *userService) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username", username)
}

func (s *userService) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email", email)
}

func (s *userService) exists(ctx context.Context, path, value string) (bool, error) {
	var found bool
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		u, err := uow.Users.FindByField(ctx, path, value)
		found = u != nil
		return err
	})
	return found, err
}

func (s *userService) index(docs []search.PharmacyDocument) {
	if err := s.search.IndexPharmacies(docs...); err != nil {
		log.Printf("Failed to reindex pharmacies: %v", err)
	}
}

func ensureUnique(ctx context.Context, repo repository.UserRepository, username, email string, self uint) error {
	if username != "" {
		existing, err := repo.FindByUsername(ctx, username)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != self {
			return apperror.AlreadyExists("User", "user with username %q already exists", username)
		}
	}
	if email != "" {
		existing, err := repo.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != self {
			return apperror.AlreadyExists("User", "user with email %q already exists", email)
		}
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperror.Server("User", "failed to hash password: %v", err)
	}
	return string(hash), nil
}

func filterCriteria(filter dto.UserFilter) criteria.Criteria {
	c := criteria.Criteria{}
	if filter.Username != "" {
		c["username"] = "%" + filter.Username + "%"
	}
	if filter.Email != "" {
		c["email"] = "%" + filter.Email + "%"
	}
	if filter.Role != "" {
		c["role"] = filter.Role
	}
	return c
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:        u.ID,
		UUID:      u.UUID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func toUserResponses(users []*entity.User) []dto.UserResponse {
	res := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, *toUserResponse(u))
	}
	return res
}
