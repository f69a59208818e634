// Package web defines common components for a web application.
package web

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// JSONError provides type for explicit json encoded error response.
type JSONError struct {
	Error string `json:"error"`
}

// Error wraps a given err into json frinedly struct.
func Error(err error) JSONError {
	return JSONError{Error: err.Error()}
}

// Response holds the common response type for all APIs.
type Response struct {
	AccessToken           string     `json:"access_token,omitempty"`
	AccessTokenExpiresAt  *time.Time `json:"access_token_expires_at,omitempty"`
	RefreshToken          string     `json:"refresh_token,omitempty"`
	RefreshTokenExpiresAt *time.Time `json:"refresh_token_expires_at,omitempty"`
	Data                  any        `json:"data,omitempty"`
	Error                 string     `json:"error,omitempty"`
}

// GetErrorMsg returns a human readable message for the first failed validation rule.
func GetErrorMsg(ve validator.ValidationErrors) string {
	if len(ve) == 0 {
		return ""
	}

	fe := ve[0]
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required":
		return field + " field is required"
	case "email":
		return field + " field must be a valid email"
	case "min":
		return fmt.Sprintf("%s field must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s field must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s field must be greater than %s", field, fe.Param())
	case "account_kind":
		return field + " field must be one of checking, savings, credit"
	case "transaction_kind":
		return field + " field must be one of credit, debit"
	}

	return field + " field is invalid"
}

// BindingErrorMsg returns the message for a failed request binding.
func BindingErrorMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return GetErrorMsg(ve)
	}

	return "invalid request"
}
