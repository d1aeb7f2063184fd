package user

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/internal/modules/user/dto"
	"anoa.com/pharmatrade/internal/modules/user/repository"
	"anoa.com/pharmatrade/internal/store"
	"anoa.com/pharmatrade/pkg/apperror"
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error)
}

type authService struct {
	tx       *store.TxManager
	secret   string
	tokenTTL time.Duration
}

func NewAuthService(tx *store.TxManager, secret string, tokenTTL time.Duration) AuthService {
	return &authService{tx: tx, secret: secret, tokenTTL: tokenTTL}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	var found *entity.User
	err := s.tx.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		var err error
		found, err = repository.NewUserRepository(uow.DB()).FindByUsername(ctx, req.Username)
		return err
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, apperror.Unauthorized("Auth", "invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthorized("Auth", "invalid credentials")
	}

	token, expiresAt, err := s.generateToken(found)
	if err != nil {
		return nil, apperror.Server("Auth", "failed to sign token: %v", err)
	}

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt,
		User:        toUserResponse(found),
	}, nil
}

func (s *authService) generateToken(user *entity.User) (string, int64, error) {
	expiresAt := time.Now().Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}
