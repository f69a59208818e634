package transactiondelivery

import (
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-playground/validator/v10"
)

// ValidTransactionKind validates whether the transaction kind is supported.
var ValidTransactionKind validator.Func = func(fl validator.FieldLevel) bool {
	if k, ok := fl.Field().Interface().(string); ok {
		return domain.IsValidTransactionKind(k)
	}

	return false
}
