// Package test provides shared test helpers.
package test

import (
	"context"
	"testing"

	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/userrepo"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/passpkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

// SeedUser creates random User inside a test transaction.
func SeedUser(t *testing.T, tx dbpkg.SQLInterface) domain.User {
	t.Helper()

	hashedPassword, err := passpkg.Hash(randompkg.String(32))
	if err != nil {
		t.Fatalf("passpkg.Hash() returned error: %v", err)
	}

	arg := domain.CreateUserParams{
		Email:          randompkg.Email(),
		Name:           randompkg.Name(),
		HashedPassword: hashedPassword,
	}

	user, err := userrepo.NewRepoPGS(tx).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("userRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return user
}

// SeedAccount creates an Account with the given kind and opening balance.
func SeedAccount(t *testing.T, tx dbpkg.SQLInterface, ownerID int64, kind string, openingBalance int64) domain.Account {
	t.Helper()

	account, err := accountrepo.NewRepoPGS(tx).Create(context.Background(), ownerID, kind, openingBalance)
	if err != nil {
		t.Fatalf("accountRepo.Create(context.Background(), %v, %v, %v) returned error: %v",
			ownerID, kind, openingBalance, err)
	}

	return account
}

// SeedCheckingAccount creates a checking Account with 1000 on balance.
func SeedCheckingAccount(t *testing.T, tx dbpkg.SQLInterface, ownerID int64) domain.Account {
	t.Helper()

	return SeedAccount(t, tx, ownerID, domain.AccountKindChecking, 1000)
}
