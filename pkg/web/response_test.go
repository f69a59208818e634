package web

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestBindingErrorMsg(t *testing.T) {
	type request struct {
		Email  string `validate:"required,email"`
		Amount int64  `validate:"gt=0"`
		Name   string `validate:"max=3"`
		Key    string `validate:"omitempty,min=6"`
	}

	v := validator.New()

	testCases := []struct {
		name string
		req  request
		want string
	}{
		{
			name: "Required",
			req:  request{Amount: 1},
			want: "email field is required",
		},
		{
			name: "Email",
			req:  request{Email: "nope", Amount: 1},
			want: "email field must be a valid email",
		},
		{
			name: "GreaterThan",
			req:  request{Email: "a@b.co"},
			want: "amount field must be greater than 0",
		},
		{
			name: "Max",
			req:  request{Email: "a@b.co", Amount: 1, Name: "abcd"},
			want: "name field must be at most 3",
		},
		{
			name: "Min",
			req:  request{Email: "a@b.co", Amount: 1, Key: "abc"},
			want: "key field must be at least 6",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(tc.req)
			if err == nil {
				t.Fatalf("v.Struct(%+v) returned nil error", tc.req)
			}

			if got := BindingErrorMsg(err); got != tc.want {
				t.Errorf("BindingErrorMsg() = %q, want %q", got, tc.want)
			}
		})
	}

	syntaxErr := &json.SyntaxError{}
	if got := BindingErrorMsg(syntaxErr); got != "invalid request" {
		t.Errorf("BindingErrorMsg(syntax error) = %q, want %q", got, "invalid request")
	}
}
