package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidAmount indicates an amount that is not a positive integer.
	ErrInvalidAmount = errors.New("amount must be a positive integer")
	// ErrInvalidTransactionKind indicates a kind other than credit or debit.
	ErrInvalidTransactionKind = errors.New("invalid transaction kind")
	// ErrTransactionNotFound indicates that the transaction is not found.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrDuplicateIdempotencyKey indicates that another transaction already holds the key.
	// It never leaves the service layer.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	// ErrIdempotencyKeyReused indicates that the key was recorded for another account.
	ErrIdempotencyKeyReused = errors.New("idempotency key already used for another account")
	// ErrLedgerAppendFailed indicates that the ledger entry could not be written and
	// the balance update was rolled back with it.
	ErrLedgerAppendFailed = errors.New("ledger write failed, balance update rolled back")
	// ErrLedgerInconsistent indicates that the commit of a balance update and its ledger
	// entry failed with an unknown outcome. It requires manual reconciliation.
	ErrLedgerInconsistent = errors.New("ledger commit failed, reconciliation required")
)

// Transaction kinds.
const (
	TransactionKindCredit = "credit"
	TransactionKindDebit  = "debit"
)

// IsValidTransactionKind returns true if the kind is supported.
func IsValidTransactionKind(kind string) bool {
	return kind == TransactionKindCredit || kind == TransactionKindDebit
}

// Transaction is an immutable ledger entry of an applied credit or debit.
type Transaction struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"account_id"`
	Kind           string    `json:"kind"`
	Amount         int64     `json:"amount"` // always positive
	BalanceAfter   int64     `json:"balance_after"`
	Description    string    `json:"description,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Delta returns the signed balance change of the transaction.
func (t Transaction) Delta() int64 {
	return Delta(t.Kind, t.Amount)
}

// Delta returns +amount for credits and -amount for debits.
func Delta(kind string, amount int64) int64 {
	if kind == TransactionKindDebit {
		return -amount
	}

	return amount
}

// ApplyTransactionParams is a validated request to post a transaction.
//
// An empty IdempotencyKey disables replay protection: a retried request is applied again.
type ApplyTransactionParams struct {
	AccountID      int64
	Kind           string
	Amount         int64
	Description    string
	IdempotencyKey string
}

// SameAccount reports whether t was recorded for the account the request targets.
//
// A key hit on the same account is answered with the recorded transaction as is,
// even when kind or amount differ.
func (p ApplyTransactionParams) SameAccount(t Transaction) bool {
	return p.AccountID == t.AccountID
}

// ApplyResult is the outcome of posting a transaction.
type ApplyResult struct {
	Transaction Transaction
	// Replayed is true when the transaction was recorded by an earlier request with the same key.
	Replayed bool
}

// CreateTransactionParams is the ledger record to append.
type CreateTransactionParams struct {
	AccountID      int64
	Kind           string
	Amount         int64
	BalanceAfter   int64
	Description    string
	IdempotencyKey string
}

// LedgerTx is the unit of work used to apply a transaction.
//
// Implementations run every call against the same store transaction when the
// store supports it.
type LedgerTx interface {
	// AdjustBalance atomically increments the balance by delta if guard allows it
	// and returns the account with the post-update balance.
	AdjustBalance(ctx context.Context, accountID, delta int64, guard BalanceGuard) (Account, error)
	// Append writes the ledger record. It returns ErrDuplicateIdempotencyKey when
	// the key is already taken.
	Append(ctx context.Context, arg CreateTransactionParams) (Transaction, error)
}

// AuditMismatch describes a ledger entry whose recorded balance differs from the replayed one.
type AuditMismatch struct {
	TransactionID int64 `json:"transaction_id"`
	Recorded      int64 `json:"recorded"`
	Expected      int64 `json:"expected"`
}

// AuditReport is the result of replaying an account ledger from its opening balance.
type AuditReport struct {
	AccountID       int64           `json:"account_id"`
	OpeningBalance  int64           `json:"opening_balance"`
	ReplayedBalance int64           `json:"replayed_balance"`
	CurrentBalance  int64           `json:"current_balance"`
	Entries         int             `json:"entries"`
	Mismatches      []AuditMismatch `json:"mismatches"`
	Consistent      bool            `json:"consistent"`
}

// Replay folds the transactions, given in creation order, over the opening balance.
func Replay(account Account, txs []Transaction) AuditReport {
	report := AuditReport{
		AccountID:      account.ID,
		OpeningBalance: account.OpeningBalance,
		CurrentBalance: account.Balance,
		Entries:        len(txs),
		Mismatches:     []AuditMismatch{},
	}

	running := account.OpeningBalance

	for _, t := range txs {
		running += t.Delta()

		if t.BalanceAfter != running {
			report.Mismatches = append(report.Mismatches, AuditMismatch{
				TransactionID: t.ID,
				Recorded:      t.BalanceAfter,
				Expected:      running,
			})
		}
	}

	report.ReplayedBalance = running
	report.Consistent = len(report.Mismatches) == 0 && running == account.Balance

	return report
}
