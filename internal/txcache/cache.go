// Package txcache caches recorded transactions by idempotency key in redis.
//
// Ledger records never change once written, so an entry is valid for as long as
// it lives. Misses and redis failures fall through to the wrapped repository.
package txcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "ledger:idempotency:"

// Client is the part of the redis client used by the cache.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Repo is the transaction log the cache sits in front of.
type Repo interface {
	GetByIdempotencyKey(ctx context.Context, key string) (domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int32) ([]domain.Transaction, error)
	ListByAccountAsc(ctx context.Context, accountID int64) ([]domain.Transaction, error)
	ExecTx(ctx context.Context, fn func(domain.LedgerTx) error) error
}

// CachedRepo serves GetByIdempotencyKey from redis and delegates everything else.
type CachedRepo struct {
	Repo
	client Client
	ttl    time.Duration
}

// New returns CachedRepo in front of next.
func New(next Repo, client Client, ttl time.Duration) *CachedRepo {
	return &CachedRepo{
		Repo:   next,
		client: client,
		ttl:    ttl,
	}
}

// GetByIdempotencyKey returns the transaction recorded with the key.
func (c *CachedRepo) GetByIdempotencyKey(ctx context.Context, key string) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	switch {
	case err == nil:
		var t domain.Transaction
		if err := json.Unmarshal(raw, &t); err == nil {
			return t, nil
		}

		l.Warn().Str("idempotency_key", key).Msg("undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		l.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency cache read")
	}

	t, err := c.Repo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return t, err
	}

	c.store(ctx, t)

	return t, nil
}

// ExecTx delegates to the wrapped repository and caches the keyed record it wrote.
func (c *CachedRepo) ExecTx(ctx context.Context, fn func(domain.LedgerTx) error) error {
	var written []domain.Transaction

	err := c.Repo.ExecTx(ctx, func(tx domain.LedgerTx) error {
		return fn(recordingTx{LedgerTx: tx, written: &written})
	})
	if err != nil {
		return err
	}

	for _, t := range written {
		c.store(ctx, t)
	}

	return nil
}

func (c *CachedRepo) store(ctx context.Context, t domain.Transaction) {
	if t.IdempotencyKey == "" {
		return
	}

	raw, err := json.Marshal(t)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, keyPrefix+t.IdempotencyKey, raw, c.ttl).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("idempotency_key", t.IdempotencyKey).Msg("idempotency cache write")
	}
}

// recordingTx remembers appended records until the unit of work commits.
type recordingTx struct {
	domain.LedgerTx
	written *[]domain.Transaction
}

func (r recordingTx) Append(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	t, err := r.LedgerTx.Append(ctx, arg)
	if err == nil {
		*r.written = append(*r.written, t)
	}

	return t, err
}
