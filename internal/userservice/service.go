// Package userservice manages business logic layer of users.
package userservice

import (
	"context"
	"errors"
	"strings"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/passpkg"
	"github.com/rs/zerolog"
)

// Repo provides data access layer interface needed by user service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package userservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateUserParams) (domain.User, error)
	Get(ctx context.Context, id int64) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

// Service facilitates user service layer logic.
type Service struct {
	repo Repo
}

// New return user service struct to manage user bussines logic.
func New(ur Repo) *Service {
	return &Service{
		repo: ur,
	}
}

// NormalizeEmail returns the email in the form it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create creates and returns user.
func (s *Service) Create(ctx context.Context, email, name, password string) (domain.UserWihtoutPassword, error) {
	l := zerolog.Ctx(ctx)

	hashedPassword, err := passpkg.Hash(password)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.UserWihtoutPassword{}, errorspkg.ErrInternal
	}

	arg := domain.CreateUserParams{
		Email:          NormalizeEmail(email),
		Name:           name,
		HashedPassword: hashedPassword,
	}

	gotUser, err := s.repo.Create(ctx, arg)
	if err != nil {
		return domain.UserWihtoutPassword{}, err
	}

	return gotUser.WithoutPassword(), nil
}

// CheckPassword checks if the password is valid for the given email.
//
// An unknown email and a wrong password both return domain.ErrWrongCredentials.
func (s *Service) CheckPassword(ctx context.Context, email, pass string) (domain.UserWihtoutPassword, error) {
	l := zerolog.Ctx(ctx)

	gotUser, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.UserWihtoutPassword{}, domain.ErrWrongCredentials
		}

		return domain.UserWihtoutPassword{}, err
	}

	if err := passpkg.Check(pass, gotUser.HashedPassword); err != nil {
		l.Info().Err(err).Int64("user_id", gotUser.ID).Msg("wrong password")
		return domain.UserWihtoutPassword{}, domain.ErrWrongCredentials
	}

	return gotUser.WithoutPassword(), nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id int64) (domain.UserWihtoutPassword, error) {
	gotUser, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.UserWihtoutPassword{}, err
	}

	return gotUser.WithoutPassword(), nil
}
