// Package transactiondelivery manages delivery layer of transactions.
package transactiondelivery

import (
	"context"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

const (
	// IdempotencyKeyHeader may carry the idempotency key instead of the request body.
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayHeader is set on responses answered from an earlier request.
	ReplayHeader = "X-Idempotent-Replay"

	minKeyLen = 6
	maxKeyLen = 100

	// keyRule matches the idempotency_key binding tag of createRequest.
	keyRule = "min=6,max=100"
)

var (
	// ErrKeyMismatch indicates different idempotency keys in the header and the body.
	ErrKeyMismatch = errors.New("idempotency key in header and body differ")
	// ErrBadKeyLength indicates an idempotency key header outside 6 to 100 characters.
	ErrBadKeyLength = errors.New("idempotency key must be 6 to 100 characters long")
)

// Service provides service layer interface needed by transaction delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transactiondelivery
type Service interface {
	Apply(ctx context.Context, callerID int64, arg domain.ApplyTransactionParams) (domain.ApplyResult, error)
	History(ctx context.Context, callerID, accountID int64, pageSize, pageID int32) ([]domain.Transaction, error)
	Audit(ctx context.Context, callerID, accountID int64) (domain.AuditReport, error)
}

// Handler facilitates transaction delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transaction handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

// Transaction is a ledger entry with display amounts.
type Transaction struct {
	domain.Transaction
	AmountDisplay       string `json:"amount_display"`
	BalanceAfterDisplay string `json:"balance_after_display"`
}

func newTransaction(t domain.Transaction) Transaction {
	return Transaction{
		Transaction:         t,
		AmountDisplay:       moneypkg.Format(t.Amount),
		BalanceAfterDisplay: moneypkg.Format(t.BalanceAfter),
	}
}

type createRequest struct {
	AccountID      int64  `json:"account_id" binding:"required,min=1"`
	Kind           string `json:"kind" binding:"required,transaction_kind"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	Description    string `json:"description" binding:"max=256"`
	IdempotencyKey string `json:"idempotency_key" binding:"omitempty,min=6,max=100"`
}

type createData struct {
	Transaction Transaction `json:"transaction"`
	Replayed    bool        `json:"replayed"`
}

// idempotencyKey resolves the key from the request body and the Idempotency-Key header.
func idempotencyKey(gctx *gin.Context, fromBody string) (string, error) {
	fromHeader := gctx.GetHeader(IdempotencyKeyHeader)

	switch {
	case fromHeader == "":
		return fromBody, nil
	case !validKeyLength(fromHeader):
		return "", ErrBadKeyLength
	case fromBody != "" && fromBody != fromHeader:
		return "", ErrKeyMismatch
	}

	return fromHeader, nil
}

// validKeyLength checks the key length in characters with the same rule as the body field.
func validKeyLength(key string) bool {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return v.Var(key, keyRule) == nil
	}

	n := utf8.RuneCountInString(key)

	return n >= minKeyLen && n <= maxKeyLen
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidTransactionKind):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAccountOwnerMismatch):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrIdempotencyKeyReused):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

func (h *Handler) fail(gctx *gin.Context, err error) {
	l := zerolog.Ctx(gctx.Request.Context())

	status := statusFor(err)

	switch {
	case errors.Is(err, domain.ErrLedgerInconsistent):
		l.Error().Err(err).Send()
		gctx.JSON(status, web.Error(domain.ErrLedgerInconsistent))
	case errors.Is(err, domain.ErrLedgerAppendFailed):
		l.Error().Err(err).Send()
		gctx.JSON(status, web.Error(domain.ErrLedgerAppendFailed))
	case status == http.StatusInternalServerError:
		l.Error().Err(err).Send()
		gctx.JSON(status, web.Error(errorspkg.ErrInternal))
	default:
		l.Info().Err(err).Send()
		gctx.JSON(status, web.Error(err))
	}
}

// Create handles http request to apply a credit or debit to an account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindingErrorMsg(err)})

		return
	}

	key, err := idempotencyKey(gctx, req.IdempotencyKey)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return
	}

	result, err := h.service.Apply(ctx, middleware.CallerID(gctx), domain.ApplyTransactionParams{
		AccountID:      req.AccountID,
		Kind:           req.Kind,
		Amount:         req.Amount,
		Description:    req.Description,
		IdempotencyKey: key,
	})
	if err != nil {
		h.fail(gctx, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
		gctx.Header(ReplayHeader, "true")
	}

	gctx.JSON(status, web.Response{
		Data: createData{
			Transaction: newTransaction(result.Transaction),
			Replayed:    result.Replayed,
		},
	})
}

type accountURI struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

type listRequest struct {
	PageID   int32 `form:"page_id" binding:"required,min=1,max=1000000"`
	PageSize int32 `form:"page_size" binding:"required,min=1,max=100"`
}

type listData struct {
	Transactions []Transaction `json:"transactions"`
}

// List handles http request to list account transactions, newest first.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri accountURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindingErrorMsg(err)})

		return
	}

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindingErrorMsg(err)})

		return
	}

	txs, err := h.service.History(ctx, middleware.CallerID(gctx), uri.ID, req.PageSize, req.PageID)
	if err != nil {
		h.fail(gctx, err)
		return
	}

	items := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		items = append(items, newTransaction(t))
	}

	gctx.JSON(http.StatusOK, web.Response{Data: listData{Transactions: items}})
}

type auditData struct {
	Audit domain.AuditReport `json:"audit"`
}

// Audit handles http request to replay the account ledger.
func (h *Handler) Audit(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri accountURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindingErrorMsg(err)})

		return
	}

	report, err := h.service.Audit(ctx, middleware.CallerID(gctx), uri.ID)
	if err != nil {
		h.fail(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: auditData{Audit: report}})
}
