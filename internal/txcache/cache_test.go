package txcache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/ledgertest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	data    map[string]string
	readErr error
	gets    int
	sets    int
	lastTTL time.Duration
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: make(map[string]string)}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	f.gets++

	if f.readErr != nil {
		return redis.NewStringResult("", f.readErr)
	}

	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}

	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.sets++
	f.lastTTL = expiration
	f.data[key] = string(value.([]byte))

	return redis.NewStatusResult("OK", nil)
}

func seed(t *testing.T, ledger *ledgertest.Ledger, key string) domain.Transaction {
	t.Helper()

	ctx := context.Background()

	account, err := ledger.Create(ctx, 1, domain.AccountKindSavings, 0)
	require.NoError(t, err)

	var rec domain.Transaction

	err = ledger.ExecTx(ctx, func(tx domain.LedgerTx) error {
		updated, err := tx.AdjustBalance(ctx, account.ID, 100, domain.NonNegative)
		if err != nil {
			return err
		}

		rec, err = tx.Append(ctx, domain.CreateTransactionParams{
			AccountID:      account.ID,
			Kind:           domain.TransactionKindCredit,
			Amount:         100,
			BalanceAfter:   updated.Balance,
			IdempotencyKey: key,
		})

		return err
	})
	require.NoError(t, err)

	return rec
}

func TestGetByIdempotencyKeyReadThrough(t *testing.T) {
	ctx := context.Background()
	ledger := ledgertest.New()
	client := newFakeClient()
	rec := seed(t, ledger, "key-read-through")

	repo := New(ledger, client, time.Hour)

	got, err := repo.GetByIdempotencyKey(ctx, rec.IdempotencyKey)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
	require.Equal(t, 1, client.sets)
	require.Equal(t, time.Hour, client.lastTTL)

	var cached domain.Transaction
	require.NoError(t, json.Unmarshal([]byte(client.data[keyPrefix+rec.IdempotencyKey]), &cached))
	require.Equal(t, rec.ID, cached.ID)

	got, err = repo.GetByIdempotencyKey(ctx, rec.IdempotencyKey)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
	require.Equal(t, 1, client.sets)
}

func TestGetByIdempotencyKeyMissIsNotCached(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()

	repo := New(ledgertest.New(), client, time.Minute)

	_, err := repo.GetByIdempotencyKey(ctx, "never-seen")
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)
	require.Zero(t, client.sets)
}

func TestGetByIdempotencyKeyRedisDown(t *testing.T) {
	ctx := context.Background()
	ledger := ledgertest.New()
	client := newFakeClient()
	client.readErr = errors.New("dial tcp: connection refused")
	rec := seed(t, ledger, "key-redis-down")

	repo := New(ledger, client, time.Minute)

	got, err := repo.GetByIdempotencyKey(ctx, rec.IdempotencyKey)
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestExecTxCachesCommittedRecord(t *testing.T) {
	ctx := context.Background()
	ledger := ledgertest.New()
	client := newFakeClient()
	repo := New(ledger, client, time.Minute)

	account, err := ledger.Create(ctx, 1, domain.AccountKindChecking, 50)
	require.NoError(t, err)

	err = repo.ExecTx(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.Append(ctx, domain.CreateTransactionParams{
			AccountID:      account.ID,
			Kind:           domain.TransactionKindCredit,
			Amount:         1,
			BalanceAfter:   51,
			IdempotencyKey: "key-committed",
		})

		return err
	})
	require.NoError(t, err)
	require.Contains(t, client.data, keyPrefix+"key-committed")

	err = repo.ExecTx(ctx, func(tx domain.LedgerTx) error {
		if _, err := tx.Append(ctx, domain.CreateTransactionParams{
			AccountID:      account.ID,
			Kind:           domain.TransactionKindCredit,
			Amount:         1,
			BalanceAfter:   52,
			IdempotencyKey: "key-rolled-back",
		}); err != nil {
			return err
		}

		return domain.ErrInsufficientFunds
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	require.NotContains(t, client.data, keyPrefix+"key-rolled-back")
}
