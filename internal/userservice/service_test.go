package userservice

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/passpkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
)

func randomUser(t *testing.T) (domain.User, string) {
	password := randompkg.String(10)

	hashedPassword, err := passpkg.Hash(password)
	if err != nil {
		t.Fatalf("passpkg.Hash(%v) failed: %v", password, err)
	}

	user := domain.User{
		ID:             randompkg.ID(),
		Email:          randompkg.Email(),
		Name:           randompkg.Name(),
		HashedPassword: hashedPassword,
	}

	return user, password
}

type eqCreateUserParamsMatcher struct {
	arg      domain.CreateUserParams
	password string
}

func (e eqCreateUserParamsMatcher) Matches(x interface{}) bool {
	arg, ok := x.(domain.CreateUserParams)
	if !ok {
		return false
	}

	if err := passpkg.Check(e.password, arg.HashedPassword); err != nil {
		return false
	}

	e.arg.HashedPassword = arg.HashedPassword

	return reflect.DeepEqual(e.arg, arg)
}

func (e eqCreateUserParamsMatcher) String() string {
	return fmt.Sprintf("matches arg %v and password %v", e.arg, e.password)
}

func EqCreateUserParams(arg domain.CreateUserParams, password string) gomock.Matcher {
	return eqCreateUserParamsMatcher{arg, password}
}

func TestCreate(t *testing.T) {
	t.Parallel()

	user, password := randomUser(t)

	type input struct {
		Email    string
		Name     string
		Password string
	}

	testCases := []struct {
		name          string
		input         input
		buildStubs    func(userRepo *MockRepo)
		checkResponse func(t *testing.T, got domain.UserWihtoutPassword)
		wantError     error
	}{
		{
			name:  "OK",
			input: input{strings.ToUpper(user.Email), user.Name, password},
			buildStubs: func(userRepo *MockRepo) {
				userRepo.EXPECT().
					Create(gomock.Any(), EqCreateUserParams(
						domain.CreateUserParams{
							Email: user.Email,
							Name:  user.Name,
						}, password)).
					Times(1).
					Return(user, nil)
			},
			checkResponse: func(t *testing.T, got domain.UserWihtoutPassword) {
				want := user.WithoutPassword()

				if !cmp.Equal(got, want) {
					t.Errorf("domain.UserWihtoutPassword = %+v, want %+v", got, want)
				}
			},
		},
		{
			name:  "HashPasswordErr",
			input: input{user.Email, user.Name, strings.Repeat("long", 100)},
			buildStubs: func(userRepo *MockRepo) {
				userRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			wantError: errorspkg.ErrInternal,
		},
		{
			name:  "EmailTaken",
			input: input{user.Email, user.Name, password},
			buildStubs: func(userRepo *MockRepo) {
				userRepo.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.User{}, domain.ErrEmailAlreadyExists)
			},
			wantError: domain.ErrEmailAlreadyExists,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			userRepo := NewMockRepo(ctrl)
			userService := New(userRepo)

			tc.buildStubs(userRepo)

			got, err := userService.Create(context.Background(), tc.input.Email, tc.input.Name, tc.input.Password)
			if tc.wantError != nil {
				if !errors.Is(err, tc.wantError) {
					t.Fatalf("userService.Create(%+v) got error %v, want %v", tc.input, err, tc.wantError)
				}

				return
			}

			if err != nil {
				t.Fatalf("userService.Create(%+v) returned error: %v", tc.input, err)
			}

			tc.checkResponse(t, got)
		})
	}
}

func TestCheckPassword(t *testing.T) {
	t.Parallel()

	user, password := randomUser(t)

	testCases := []struct {
		name       string
		email      string
		password   string
		buildStubs func(userRepo *MockRepo)
		wantError  error
	}{
		{
			name:     "OK",
			email:    " " + strings.ToUpper(user.Email),
			password: password,
			buildStubs: func(userRepo *MockRepo) {
				userRepo.EXPECT().GetByEmail(gomock.Any(), gomock.Eq(user.Email)).Times(1).Return(user, nil)
			},
		},
		{
			name:     "WrongPassword",
			email:    user.Email,
			password: "wrong-" + password,
			buildStubs: func(userRepo *MockRepo) {
				userRepo.EXPECT().GetByEmail(gomock.Any(), gomock.Eq(user.Email)).Times(1).Return(user, nil)
			},
			wantError: domain.ErrWrongCredentials,
		},
		{
			name:     "UnknownEmail",
			email:    user.Email,
			password: password,
			buildStubs: func(userRepo *MockRepo) {
				userRepo.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Times(1).Return(domain.User{}, domain.ErrUserNotFound)
			},
			wantError: domain.ErrWrongCredentials,
		},
		{
			name:     "RepoErr",
			email:    user.Email,
			password: password,
			buildStubs: func(userRepo *MockRepo) {
				userRepo.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Times(1).Return(domain.User{}, errorspkg.ErrInternal)
			},
			wantError: errorspkg.ErrInternal,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			userRepo := NewMockRepo(ctrl)
			tc.buildStubs(userRepo)

			got, err := New(userRepo).CheckPassword(context.Background(), tc.email, tc.password)
			if !errors.Is(err, tc.wantError) {
				t.Fatalf("CheckPassword() got error %v, want %v", err, tc.wantError)
			}

			if tc.wantError == nil && !cmp.Equal(got, user.WithoutPassword()) {
				t.Errorf("CheckPassword() = %+v, want %+v", got, user.WithoutPassword())
			}
		})
	}
}

func TestGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	user, _ := randomUser(t)

	userRepo := NewMockRepo(ctrl)
	userRepo.EXPECT().Get(gomock.Any(), gomock.Eq(user.ID)).Times(1).Return(user, nil)

	got, err := New(userRepo).Get(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Get(%v) returned error: %v", user.ID, err)
	}

	if diff := cmp.Diff(user.WithoutPassword(), got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}
