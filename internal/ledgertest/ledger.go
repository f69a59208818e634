// Package ledgertest provides an in-memory account store and transaction log
// with the same contracts as the postgres repositories.
package ledgertest

import (
	"context"
	"sync"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Ledger keeps accounts and transactions in memory.
//
// ExecTx holds the ledger lock for the whole unit of work and restores the
// touched balances when it fails, mirroring a rolled back db transaction.
type Ledger struct {
	mu       sync.Mutex
	accounts map[int64]domain.Account
	txs      []domain.Transaction
	byKey    map[string]int

	nextAccountID int64

	// FailAppend, when set, is returned by Append instead of writing the record.
	FailAppend error
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{
		accounts: make(map[int64]domain.Account),
		byKey:    make(map[string]int),
	}
}

// Create opens an account with the opening balance.
func (l *Ledger) Create(_ context.Context, ownerID int64, kind string, openingBalance int64) (domain.Account, error) {
	if !domain.IsValidAccountKind(kind) {
		return domain.Account{}, domain.ErrInvalidAccountKind
	}

	if openingBalance < 0 {
		return domain.Account{}, domain.ErrNegativeOpeningBalance
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextAccountID++
	a := domain.Account{
		ID:             l.nextAccountID,
		OwnerID:        ownerID,
		Kind:           kind,
		Balance:        openingBalance,
		OpeningBalance: openingBalance,
		CreatedAt:      time.Now().UTC(),
	}
	l.accounts[a.ID] = a

	return a, nil
}

// Get returns the account with the given id.
func (l *Ledger) Get(_ context.Context, id int64) (domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return a, nil
}

// SetBalance overwrites the stored balance without writing a ledger record.
func (l *Ledger) SetBalance(id, balance int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.accounts[id]
	a.Balance = balance
	l.accounts[id] = a
}

// GetByIdempotencyKey returns the transaction recorded with the key.
func (l *Ledger) GetByIdempotencyKey(_ context.Context, key string) (domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.byKey[key]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	return l.txs[i], nil
}

// ListByAccount returns a page of the account transactions, newest first.
func (l *Ledger) ListByAccount(_ context.Context, accountID int64, limit, offset int32) ([]domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := []domain.Transaction{}
	skipped := int32(0)

	for i := len(l.txs) - 1; i >= 0 && int32(len(items)) < limit; i-- {
		if l.txs[i].AccountID != accountID {
			continue
		}

		if skipped < offset {
			skipped++
			continue
		}

		items = append(items, l.txs[i])
	}

	return items, nil
}

// ListByAccountAsc returns the account transactions in creation order.
func (l *Ledger) ListByAccountAsc(_ context.Context, accountID int64) ([]domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := []domain.Transaction{}

	for _, t := range l.txs {
		if t.AccountID == accountID {
			items = append(items, t)
		}
	}

	return items, nil
}

// Transactions returns every recorded transaction in creation order.
func (l *Ledger) Transactions() []domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]domain.Transaction(nil), l.txs...)
}

// ExecTx runs fn as one unit of work.
func (l *Ledger) ExecTx(_ context.Context, fn func(domain.LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &ledgerTx{l: l, saved: make(map[int64]domain.Account)}

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}

	return nil
}

type ledgerTx struct {
	l        *Ledger
	saved    map[int64]domain.Account
	appended int
}

func (t *ledgerTx) AdjustBalance(_ context.Context, accountID, delta int64, guard domain.BalanceGuard) (domain.Account, error) {
	a, ok := t.l.accounts[accountID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	if !guard.Allows(a.Balance, delta) {
		return domain.Account{}, domain.ErrInsufficientFunds
	}

	if _, ok := t.saved[accountID]; !ok {
		t.saved[accountID] = a
	}

	a.Balance += delta
	t.l.accounts[accountID] = a

	return a, nil
}

func (t *ledgerTx) Append(_ context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	if t.l.FailAppend != nil {
		return domain.Transaction{}, t.l.FailAppend
	}

	if _, ok := t.l.accounts[arg.AccountID]; !ok {
		return domain.Transaction{}, domain.ErrAccountNotFound
	}

	if arg.IdempotencyKey != "" {
		if _, ok := t.l.byKey[arg.IdempotencyKey]; ok {
			return domain.Transaction{}, domain.ErrDuplicateIdempotencyKey
		}
	}

	rec := domain.Transaction{
		ID:             int64(len(t.l.txs) + 1),
		AccountID:      arg.AccountID,
		Kind:           arg.Kind,
		Amount:         arg.Amount,
		BalanceAfter:   arg.BalanceAfter,
		Description:    arg.Description,
		IdempotencyKey: arg.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}

	t.l.txs = append(t.l.txs, rec)
	t.appended++

	if rec.IdempotencyKey != "" {
		t.l.byKey[rec.IdempotencyKey] = len(t.l.txs) - 1
	}

	return rec, nil
}

func (t *ledgerTx) rollback() {
	for id, a := range t.saved {
		t.l.accounts[id] = a
	}

	for i := len(t.l.txs) - t.appended; i < len(t.l.txs); i++ {
		delete(t.l.byKey, t.l.txs[i].IdempotencyKey)
	}

	t.l.txs = t.l.txs[:len(t.l.txs)-t.appended]
}
