// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/rs/zerolog"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, ownerID int64, kind string, openingBalance int64) (domain.Account, error)
	Get(ctx context.Context, id int64) (domain.Account, error)
	List(ctx context.Context, ownerID int64, limit, offset int32) ([]domain.Account, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo Repo
}

// New returns account service struct to manage account bussines logic.
func New(ar Repo) *Service {
	return &Service{repo: ar}
}

// Create opens an account of the given kind for the owner.
func (s *Service) Create(ctx context.Context, ownerID int64, kind string, openingBalance int64) (domain.Account, error) {
	if !domain.IsValidAccountKind(kind) {
		return domain.Account{}, domain.ErrInvalidAccountKind
	}

	if openingBalance < 0 {
		return domain.Account{}, domain.ErrNegativeOpeningBalance
	}

	return s.repo.Create(ctx, ownerID, kind, openingBalance)
}

// Get returns the account if it belongs to the caller.
func (s *Service) Get(ctx context.Context, callerID, id int64) (domain.Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}

	if account.OwnerID != callerID {
		zerolog.Ctx(ctx).Info().Int64("caller_id", callerID).Int64("account_id", id).Msg("owner mismatch")
		return domain.Account{}, domain.ErrAccountOwnerMismatch
	}

	return account, nil
}

// List returns accounts that are owned by the given user.
func (s *Service) List(ctx context.Context, ownerID int64, pageSize, pageID int32) ([]domain.Account, error) {
	limit := pageSize
	offset := (pageID - 1) * pageSize

	return s.repo.List(ctx, ownerID, limit, offset)
}
