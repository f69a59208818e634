// Package randompkg provides functionality gor generating random applications common items.
package randompkg

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// Intn is a shortcut for generating a random integer between 0 and max using crypto/rand.
func Intn(max int64) int64 {
	nBig, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		panic(err)
	}

	return nBig.Int64()
}

// IntBetween generates a random integer between min and max inclusive.
func IntBetween(min, max int64) int64 {
	return min + Intn(max-min+1)
}

// String generates a random string of length n.
func String(n int) string {
	var sb strings.Builder

	k := int64(len(alphabet))

	for i := 0; i < n; i++ {
		c := alphabet[Intn(k)]

		_ = sb.WriteByte(c) // The returned err is always nil.
	}

	return sb.String()
}

// ID generates a random positive identifier.
func ID() int64 {
	return IntBetween(1, 1_000_000)
}

// Name generates a random user name.
func Name() string {
	return String(8)
}

// Email generates a random email.
func Email() string {
	return fmt.Sprintf("%s@email.com", String(10))
}

// Cents generates a random amount in the smallest currency unit between min and max.
func Cents(min, max int64) int64 {
	return IntBetween(min, max)
}

// AccountKind generates a random account kind.
func AccountKind() string {
	kinds := []string{"checking", "savings", "credit"}
	return kinds[Intn(int64(len(kinds)))]
}

// IdempotencyKey generates a random idempotency key.
func IdempotencyKey() string {
	return "req-" + String(16)
}
