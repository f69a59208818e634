// Package errorspkg provides common app errors.
package errorspkg

import "errors"

var (
	// ErrInternal indicates internal server error.
	ErrInternal = errors.New("internal")
	// ErrUnauthenticated indicates that the request carries no verified identity.
	ErrUnauthenticated = errors.New("unauthenticated")
)
