// Package transactionrepo manages the transaction log: the append-only ledger of
// applied credits and debits that doubles as the idempotency record.
package transactionrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates transaction repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewTxRepoPGS returns transaction RepoPGS bound to an open db transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns transaction RepoPGS wiht connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var (
		t              domain.Transaction
		description    sql.NullString
		idempotencyKey sql.NullString
	)

	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Kind,
		&t.Amount,
		&t.BalanceAfter,
		&description,
		&idempotencyKey,
		&t.CreatedAt,
	)

	t.Description = description.String
	t.IdempotencyKey = idempotencyKey.String

	return t, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const appendQuery = `
INSERT INTO
    transactions (account_id, kind, amount, balance_after, description, idempotency_key)
VALUES
    ($1, $2, $3, $4, $5, $6)
RETURNING id, account_id, kind, amount, balance_after, description, idempotency_key, created_at
`

// Append writes the transaction record and then returns it.
func (r *RepoPGS) Append(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, appendQuery,
		arg.AccountID,
		arg.Kind,
		arg.Amount,
		arg.BalanceAfter,
		nullString(arg.Description),
		nullString(arg.IdempotencyKey),
	)

	t, err := scanTransaction(row)
	if err != nil {
		if pgErr, ok := dbpkg.AsPGError(err); ok {
			switch pgErr.Constraint {
			case "transactions_idempotency_key_idx":
				l.Info().Str("idempotency_key", arg.IdempotencyKey).Msg("idempotency key already recorded")
				return domain.Transaction{}, domain.ErrDuplicateIdempotencyKey
			case "transactions_account_id_fkey":
				return domain.Transaction{}, domain.ErrAccountNotFound
			case "transactions_amount_check":
				return domain.Transaction{}, domain.ErrInvalidAmount
			case "transactions_kind_check":
				return domain.Transaction{}, domain.ErrInvalidTransactionKind
			}
		}

		l.Error().Err(err).Msgf("Append(ctx, %+v)", arg)

		return domain.Transaction{}, errorspkg.ErrInternal
	}

	return t, nil
}

const getQuery = `
SELECT
	id, account_id, kind, amount, balance_after, description, idempotency_key, created_at
FROM transactions
WHERE id = $1
`

// Get returns the transaction with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	return r.getBy(ctx, getQuery, id)
}

const getByIdempotencyKeyQuery = `
SELECT
	id, account_id, kind, amount, balance_after, description, idempotency_key, created_at
FROM transactions
WHERE idempotency_key = $1
`

// GetByIdempotencyKey returns the transaction recorded with the given key.
func (r *RepoPGS) GetByIdempotencyKey(ctx context.Context, key string) (domain.Transaction, error) {
	return r.getBy(ctx, getByIdempotencyKeyQuery, key)
}

func (r *RepoPGS) getBy(ctx context.Context, query string, arg any) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, domain.ErrTransactionNotFound
		}

		l.Error().Err(err).Send()

		return domain.Transaction{}, errorspkg.ErrInternal
	}

	return t, nil
}

// Ids grow in commit order per account because the account row stays locked
// from the balance update until the ledger insert commits.
const listByAccountQuery = `
SELECT
	id, account_id, kind, amount, balance_after, description, idempotency_key, created_at
FROM transactions
WHERE account_id = $1
ORDER BY id DESC
LIMIT $2 OFFSET $3
`

// ListByAccount returns the specified number of transactions of the account, newest first.
func (r *RepoPGS) ListByAccount(ctx context.Context, accountID int64, limit, offset int32) ([]domain.Transaction, error) {
	return r.list(ctx, listByAccountQuery, accountID, limit, offset)
}

const listByAccountAscQuery = `
SELECT
	id, account_id, kind, amount, balance_after, description, idempotency_key, created_at
FROM transactions
WHERE account_id = $1
ORDER BY id
`

// ListByAccountAsc returns every transaction of the account in creation order.
func (r *RepoPGS) ListByAccountAsc(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	return r.list(ctx, listByAccountAscQuery, accountID)
}

func (r *RepoPGS) list(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
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

// ledgerTx binds the account store and the transaction log to one db transaction.
type ledgerTx struct {
	accounts *accountrepo.RepoPGS
	log      *RepoPGS
}

func (t ledgerTx) AdjustBalance(ctx context.Context, accountID, delta int64, guard domain.BalanceGuard) (domain.Account, error) {
	return t.accounts.AdjustBalance(ctx, accountID, delta, guard)
}

func (t ledgerTx) Append(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	return t.log.Append(ctx, arg)
}

// ExecTx runs fn within a single db transaction.
//
// Any error returned by fn rolls the transaction back, so a balance update is never
// kept without its ledger record. A failed commit leaves the outcome unknown and is
// reported as domain.ErrLedgerInconsistent.
func (r *RepoPGS) ExecTx(ctx context.Context, fn func(domain.LedgerTx) error) error {
	l := zerolog.Ctx(ctx)

	if r.conn == nil {
		return fmt.Errorf("ExecTx on a repo without connection: %w", errorspkg.ErrInternal)
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	err = fn(ledgerTx{
		accounts: accountrepo.NewRepoPGS(tx),
		log:      NewTxRepoPGS(tx),
	})
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			l.Error().Err(rbErr).Msg("rollback")
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Msg("commit of ledger transaction failed, outcome unknown")
		return fmt.Errorf("%w: %v", domain.ErrLedgerInconsistent, err)
	}

	return nil
}
