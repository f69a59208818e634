// Package transactionservice manages business logic layer of transactions.
package transactionservice

import (
	"context"
	"errors"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// AccountRepo provides account data access needed by transaction service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transactionservice
//go:generate mockgen -destination ledgertx_mock.go -package transactionservice github.com/go-petr/pet-ledger/internal/domain LedgerTx
type AccountRepo interface {
	Get(ctx context.Context, id int64) (domain.Account, error)
}

// Repo provides transaction log interface needed by transaction service layer.
type Repo interface {
	GetByIdempotencyKey(ctx context.Context, key string) (domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int32) ([]domain.Transaction, error)
	ListByAccountAsc(ctx context.Context, accountID int64) ([]domain.Transaction, error)
	ExecTx(ctx context.Context, fn func(domain.LedgerTx) error) error
}

// Publisher announces applied transactions.
type Publisher interface {
	Publish(ctx context.Context, t domain.Transaction) error
}

// Service facilitates transaction service layer logic.
type Service struct {
	repo        Repo
	accountRepo AccountRepo
	publisher   Publisher
}

// New returns transaction service struct to manage transaction bussines logic.
// A nil publisher disables events.
func New(tr Repo, ar AccountRepo, p Publisher) *Service {
	return &Service{
		repo:        tr,
		accountRepo: ar,
		publisher:   p,
	}
}

// authorize returns the account if it exists and belongs to the caller.
func (s *Service) authorize(ctx context.Context, callerID, accountID int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}

	if account.OwnerID != callerID {
		l.Info().Int64("caller_id", callerID).Int64("account_id", accountID).Msg("owner mismatch")
		return domain.Account{}, domain.ErrAccountOwnerMismatch
	}

	return account, nil
}

// replay returns the recorded transaction unchanged unless it belongs to another account.
func (s *Service) replay(ctx context.Context, arg domain.ApplyTransactionParams, t domain.Transaction) (domain.ApplyResult, error) {
	if !arg.SameAccount(t) {
		zerolog.Ctx(ctx).Info().
			Str("idempotency_key", arg.IdempotencyKey).
			Int64("account_id", arg.AccountID).
			Int64("recorded_transaction_id", t.ID).
			Msg("idempotency key reused for another account")

		return domain.ApplyResult{}, domain.ErrIdempotencyKeyReused
	}

	return domain.ApplyResult{Transaction: t, Replayed: true}, nil
}

// Apply posts a credit or debit to the caller's account exactly once per idempotency key.
//
// The balance update and the ledger record are written in one unit of work. A
// concurrent request holding the same key loses on the unique key and is answered
// with the winner's transaction.
func (s *Service) Apply(ctx context.Context, callerID int64, arg domain.ApplyTransactionParams) (domain.ApplyResult, error) {
	l := zerolog.Ctx(ctx)

	if arg.Amount <= 0 {
		return domain.ApplyResult{}, domain.ErrInvalidAmount
	}

	if !domain.IsValidTransactionKind(arg.Kind) {
		return domain.ApplyResult{}, domain.ErrInvalidTransactionKind
	}

	account, err := s.authorize(ctx, callerID, arg.AccountID)
	if err != nil {
		return domain.ApplyResult{}, err
	}

	if arg.IdempotencyKey != "" {
		recorded, err := s.repo.GetByIdempotencyKey(ctx, arg.IdempotencyKey)
		switch {
		case err == nil:
			return s.replay(ctx, arg, recorded)
		case !errors.Is(err, domain.ErrTransactionNotFound):
			return domain.ApplyResult{}, err
		}
	}

	var applied domain.Transaction

	err = s.repo.ExecTx(ctx, func(tx domain.LedgerTx) error {
		delta := domain.Delta(arg.Kind, arg.Amount)

		updated, err := tx.AdjustBalance(ctx, account.ID, delta, domain.GuardFor(account.Kind))
		if err != nil {
			return err
		}

		applied, err = tx.Append(ctx, domain.CreateTransactionParams{
			AccountID:      account.ID,
			Kind:           arg.Kind,
			Amount:         arg.Amount,
			BalanceAfter:   updated.Balance,
			Description:    arg.Description,
			IdempotencyKey: arg.IdempotencyKey,
		})
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
				return err
			}

			l.Error().Err(err).
				Int64("account_id", account.ID).
				Str("kind", arg.Kind).
				Int64("amount", arg.Amount).
				Int64("balance_after", updated.Balance).
				Str("idempotency_key", arg.IdempotencyKey).
				Msg("ledger append failed, balance update rolled back")

			return domain.ErrLedgerAppendFailed
		}

		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicateIdempotencyKey):
		recorded, err := s.repo.GetByIdempotencyKey(ctx, arg.IdempotencyKey)
		if err != nil {
			l.Error().Err(err).Str("idempotency_key", arg.IdempotencyKey).Msg("re-read after duplicate key")
			return domain.ApplyResult{}, errorspkg.ErrInternal
		}

		return s.replay(ctx, arg, recorded)
	default:
		return domain.ApplyResult{}, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, applied); err != nil {
			l.Warn().Err(err).Int64("transaction_id", applied.ID).Msg("publish applied transaction")
		}
	}

	return domain.ApplyResult{Transaction: applied}, nil
}

// History returns a page of the account transactions, newest first.
func (s *Service) History(ctx context.Context, callerID, accountID int64, pageSize, pageID int32) ([]domain.Transaction, error) {
	if _, err := s.authorize(ctx, callerID, accountID); err != nil {
		return nil, err
	}

	limit := pageSize
	offset := (pageID - 1) * pageSize

	return s.repo.ListByAccount(ctx, accountID, limit, offset)
}

// Audit replays the account ledger from its opening balance and reports every entry
// whose recorded balance disagrees with the replay.
//
// The ledger and the account are read separately, so an audit running alongside
// Apply may see a current balance ahead of the listed entries.
func (s *Service) Audit(ctx context.Context, callerID, accountID int64) (domain.AuditReport, error) {
	l := zerolog.Ctx(ctx)

	if _, err := s.authorize(ctx, callerID, accountID); err != nil {
		return domain.AuditReport{}, err
	}

	txs, err := s.repo.ListByAccountAsc(ctx, accountID)
	if err != nil {
		return domain.AuditReport{}, err
	}

	// Re-read after listing so the balance covers every listed entry.
	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return domain.AuditReport{}, err
	}

	report := domain.Replay(account, txs)
	if !report.Consistent {
		l.Warn().
			Int64("account_id", accountID).
			Int("mismatches", len(report.Mismatches)).
			Int64("replayed_balance", report.ReplayedBalance).
			Int64("current_balance", report.CurrentBalance).
			Msg("ledger audit failed")
	}

	return report, nil
}
