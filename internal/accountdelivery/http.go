// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Create(ctx context.Context, ownerID int64, kind string, openingBalance int64) (domain.Account, error)
	Get(ctx context.Context, callerID, id int64) (domain.Account, error)
	List(ctx context.Context, ownerID int64, pageSize, pageID int32) ([]domain.Account, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) Handler {
	return Handler{service: as}
}

// Account is an account with display balances.
type Account struct {
	domain.Account
	BalanceDisplay string `json:"balance_display"`
}

func newAccount(a domain.Account) Account {
	return Account{
		Account:        a,
		BalanceDisplay: moneypkg.Format(a.Balance),
	}
}

type data struct {
	Account Account `json:"account"`
}

type createRequest struct {
	Kind           string `json:"kind" binding:"required,account_kind"`
	OpeningBalance int64  `json:"opening_balance" binding:"min=0"`
}

// Create handles http request to create account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindingErrorMsg(err)})

		return
	}

	createdAccount, err := h.service.Create(ctx, middleware.CallerID(gctx), req.Kind, req.OpeningBalance)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOwnerNotFound),
			errors.Is(err, domain.ErrInvalidAccountKind),
			errors.Is(err, domain.ErrNegativeOpeningBalance):
			l.Info().Err(err).Send()
			gctx.JSON(http.StatusBadRequest, web.Error(err))

			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: data{newAccount(createdAccount)}})
}

type getRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// Get handles http request to get account.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindingErrorMsg(err)})

		return
	}

	acc, err := h.service.Get(ctx, middleware.CallerID(gctx), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAccountNotFound):
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		case errors.Is(err, domain.ErrAccountOwnerMismatch):
			gctx.JSON(http.StatusForbidden, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{newAccount(acc)}})
}

type listRequest struct {
	PageID   int32 `form:"page_id" binding:"required,min=1,max=1000000"`
	PageSize int32 `form:"page_size" binding:"required,min=1,max=100"`
}

type dataAccounts struct {
	Accounts []Account `json:"accounts"`
}

// List handles http request to list the caller accounts, newest first.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindingErrorMsg(err)})

		return
	}

	accounts, err := h.service.List(ctx, middleware.CallerID(gctx), req.PageSize, req.PageID)
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		return
	}

	items := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, newAccount(a))
	}

	gctx.JSON(http.StatusOK, web.Response{Data: dataAccounts{items}})
}
