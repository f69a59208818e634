// Package moneypkg converts amounts kept in the smallest currency unit.
package moneypkg

import "github.com/shopspring/decimal"

// Format renders cents as a fixed two decimal string, e.g. 12345 -> "123.45".
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
