//go:build integration

package transactionrepo

import (
	"context"
	"errors"
	"testing"

	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/integrationtest"
	"github.com/go-petr/pet-ledger/internal/test"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const configPath = "../../configs"

func seedAccount(t *testing.T) (*RepoPGS, domain.Account) {
	t.Helper()

	config := integrationtest.LoadConfig(t, configPath)
	db := integrationtest.SetupDB(t, config.DBDriver, config.DBSource)

	user := test.SeedUser(t, db)
	account := test.SeedAccount(t, db, user.ID, domain.AccountKindChecking, 1000)

	return NewRepoPGS(db), account
}

func apply(ctx context.Context, repo *RepoPGS, accountID int64, kind string, amount int64, key string) (domain.Transaction, error) {
	var created domain.Transaction

	err := repo.ExecTx(ctx, func(tx domain.LedgerTx) error {
		a, err := tx.AdjustBalance(ctx, accountID, domain.Delta(kind, amount), domain.NonNegative)
		if err != nil {
			return err
		}

		created, err = tx.Append(ctx, domain.CreateTransactionParams{
			AccountID:      accountID,
			Kind:           kind,
			Amount:         amount,
			BalanceAfter:   a.Balance,
			IdempotencyKey: key,
		})

		return err
	})

	return created, err
}

func TestExecTxCommit(t *testing.T) {
	repo, account := seedAccount(t)
	ctx := context.Background()

	created, err := apply(ctx, repo, account.ID, domain.TransactionKindDebit, 400, "debit-1")
	require.NoError(t, err)
	require.Equal(t, int64(600), created.BalanceAfter)

	got, err := repo.GetByIdempotencyKey(ctx, "debit-1")
	require.NoError(t, err)

	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("GetByIdempotencyKey() mismatch (-want +got):\n%s", diff)
	}

	byID, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(created, byID); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestExecTxRollback(t *testing.T) {
	repo, account := seedAccount(t)
	ctx := context.Background()

	errBoom := errors.New("boom")

	err := repo.ExecTx(ctx, func(tx domain.LedgerTx) error {
		if _, err := tx.AdjustBalance(ctx, account.ID, 500, domain.NonNegative); err != nil {
			return err
		}

		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	stored, err := accountrepo.NewRepoPGS(repo.conn).Get(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, account.Balance, stored.Balance)
}

func TestDuplicateIdempotencyKey(t *testing.T) {
	repo, account := seedAccount(t)
	ctx := context.Background()

	first, err := apply(ctx, repo, account.ID, domain.TransactionKindCredit, 100, "credit-1")
	require.NoError(t, err)

	_, err = apply(ctx, repo, account.ID, domain.TransactionKindCredit, 100, "credit-1")
	require.ErrorIs(t, err, domain.ErrDuplicateIdempotencyKey)

	// The second balance update was rolled back with the append.
	stored, err := accountrepo.NewRepoPGS(repo.conn).Get(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, first.BalanceAfter, stored.Balance)
}

func TestAppendConstraints(t *testing.T) {
	repo, account := seedAccount(t)
	ctx := context.Background()

	testCases := []struct {
		name    string
		arg     domain.CreateTransactionParams
		wantErr error
	}{
		{
			name:    "AccountNotFound",
			arg:     domain.CreateTransactionParams{AccountID: 1 << 40, Kind: domain.TransactionKindCredit, Amount: 1},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:    "InvalidAmount",
			arg:     domain.CreateTransactionParams{AccountID: account.ID, Kind: domain.TransactionKindCredit, Amount: 0},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "InvalidKind",
			arg:     domain.CreateTransactionParams{AccountID: account.ID, Kind: "refund", Amount: 1},
			wantErr: domain.ErrInvalidTransactionKind,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.Append(ctx, tc.arg)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestListByAccount(t *testing.T) {
	repo, account := seedAccount(t)
	ctx := context.Background()

	var created []domain.Transaction

	for i := 0; i < 4; i++ {
		tr, err := apply(ctx, repo, account.ID, domain.TransactionKindCredit, int64(i+1), "")
		require.NoError(t, err)

		created = append(created, tr)
	}

	newest, err := repo.ListByAccount(ctx, account.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, newest, 2)
	require.Equal(t, created[3].ID, newest[0].ID)
	require.Equal(t, created[2].ID, newest[1].ID)

	all, err := repo.ListByAccountAsc(ctx, account.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(created, all); diff != "" {
		t.Errorf("ListByAccountAsc() mismatch (-want +got):\n%s", diff)
	}

	report := domain.Replay(domain.Account{ID: account.ID, OpeningBalance: 1000, Balance: 1010}, all)
	require.True(t, report.Consistent)

	_, err = repo.GetByIdempotencyKey(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)
}
