// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.Kind,
		&a.Balance,
		&a.OpeningBalance,
		&a.CreatedAt,
	)

	return a, err
}

// adjustBalanceQuery applies the delta only if the guard holds for the row it updates.
// The guard and the increment are one statement, so concurrent debits can't both pass.
const adjustBalanceQuery = `
UPDATE accounts
SET balance = balance + $1
WHERE id = $2 AND balance + $1 >= $3
RETURNING id, owner_id, kind, balance, opening_balance, created_at
`

// AdjustBalance increments the account balance by delta when guard allows it
// and returns the account holding the post-update balance.
func (r *RepoPGS) AdjustBalance(ctx context.Context, id, delta int64, guard domain.BalanceGuard) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, adjustBalanceQuery, delta, id, guard.Floor))
	if err == nil {
		return a, nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		// Either the account is missing or the guard rejected the update.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return domain.Account{}, getErr
		}

		return domain.Account{}, domain.ErrInsufficientFunds
	}

	if dbpkg.IsViolation(err, dbpkg.CodeCheckViolation, "accounts_balance_check") {
		return domain.Account{}, domain.ErrInsufficientFunds
	}

	l.Error().Err(err).Int64("account_id", id).Int64("delta", delta).Msg("adjust balance")

	return domain.Account{}, errorspkg.ErrInternal
}

const createQuery = `
INSERT INTO
    accounts (owner_id, kind, balance, opening_balance)
VALUES
    ($1, $2, $3, $3)
RETURNING id, owner_id, kind, balance, opening_balance, created_at
`

// Create creates the account and then returns it.
func (r *RepoPGS) Create(ctx context.Context, ownerID int64, kind string, openingBalance int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, createQuery, ownerID, kind, openingBalance))
	if err != nil {
		l.Error().Err(err).Send()

		if pgErr, ok := dbpkg.AsPGError(err); ok {
			switch pgErr.Constraint {
			case "accounts_owner_id_fkey":
				return domain.Account{}, domain.ErrOwnerNotFound
			case "accounts_kind_check":
				return domain.Account{}, domain.ErrInvalidAccountKind
			case "accounts_balance_check", "accounts_opening_balance_check":
				return domain.Account{}, domain.ErrNegativeOpeningBalance
			}
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT
	id, owner_id, kind, balance, opening_balance, created_at
FROM accounts
WHERE id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const listQuery = `
SELECT
	id, owner_id, kind, balance, opening_balance, created_at
FROM accounts
WHERE owner_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

// List returns the specified number of accounts of the given owner, newest first.
func (r *RepoPGS) List(ctx context.Context, ownerID int64, limit, offset int32) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, ownerID, limit, offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Account{}

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, a)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}
