package domain

import (
	"errors"
	"time"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountOwnerMismatch indicates that the caller does not own the account.
	ErrAccountOwnerMismatch = errors.New("account doesn't belong to the authenticated user")
	// ErrOwnerNotFound indicates that the owner for the account is not found.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrInvalidAccountKind indicates an unknown account kind.
	ErrInvalidAccountKind = errors.New("invalid account kind")
	// ErrNegativeOpeningBalance indicates an opening balance below zero.
	ErrNegativeOpeningBalance = errors.New("opening balance must not be negative")
	// ErrInsufficientFunds indicates that the guarded balance update was rejected.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Account kinds.
const (
	AccountKindChecking = "checking"
	AccountKindSavings  = "savings"
	AccountKindCredit   = "credit"
)

// IsValidAccountKind returns true if the kind is supported.
func IsValidAccountKind(kind string) bool {
	switch kind {
	case AccountKindChecking, AccountKindSavings, AccountKindCredit:
		return true
	}

	return false
}

// Account holds a balance in the smallest currency unit owned by a user.
type Account struct {
	ID             int64     `json:"id"`
	OwnerID        int64     `json:"owner_id"`
	Kind           string    `json:"kind"`
	Balance        int64     `json:"balance"`
	OpeningBalance int64     `json:"opening_balance"`
	CreatedAt      time.Time `json:"created_at"`
}

// BalanceGuard is a precondition over the balance evaluated atomically with an increment.
//
// An increment by delta is allowed when balance+delta >= Floor.
type BalanceGuard struct {
	Floor int64
}

// NonNegative rejects any increment that would leave the balance below zero.
var NonNegative = BalanceGuard{Floor: 0}

// Allows reports whether balance may be incremented by delta.
func (g BalanceGuard) Allows(balance, delta int64) bool {
	return balance+delta >= g.Floor
}

// GuardFor returns the balance guard for the account kind.
//
// Every kind is kept non-negative, credit accounts included.
// TODO: give credit accounts a negative floor once credit limits are stored per account.
func GuardFor(_ string) BalanceGuard {
	return NonNegative
}
