//go:build integration

package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/integrationtest"
	"github.com/go-petr/pet-ledger/internal/transactiondelivery"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/stretchr/testify/require"
)

const configPath = "../../../configs"

type envelope struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Data         json.RawMessage `json:"data"`
	Error        string          `json:"error"`
}

type client struct {
	t      *testing.T
	server *httpserver.Server
	token  string
}

func (c client) do(method, url string, body any, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(c.t, err)

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	for k, v := range header {
		req.Header.Set(k, v)
	}

	recorder := httptest.NewRecorder()
	c.server.ServeHTTP(recorder, req)

	var res envelope
	require.NoError(c.t, json.Unmarshal(recorder.Body.Bytes(), &res))

	return recorder, res
}

func register(t *testing.T, server *httpserver.Server) client {
	t.Helper()

	c := client{t: t, server: server}

	recorder, res := c.do(http.MethodPost, "/users", map[string]string{
		"email":    randompkg.Email(),
		"name":     randompkg.Name(),
		"password": randompkg.String(10),
	}, nil)
	require.Equal(t, http.StatusCreated, recorder.Code, res.Error)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)

	c.token = res.AccessToken

	return c
}

func openAccount(t *testing.T, c client, opening int64) domain.Account {
	t.Helper()

	recorder, res := c.do(http.MethodPost, "/accounts", map[string]any{
		"kind":            domain.AccountKindChecking,
		"opening_balance": opening,
	}, nil)
	require.Equal(t, http.StatusCreated, recorder.Code, res.Error)

	var data struct {
		Account domain.Account `json:"account"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &data))

	return data.Account
}

type transactionData struct {
	Transaction domain.Transaction `json:"transaction"`
	Replayed    bool               `json:"replayed"`
}

func TestHealth(t *testing.T) {
	server := integrationtest.SetupServer(t, configPath)

	recorder := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)

	server.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
}

func TestApplyTransactionFlow(t *testing.T) {
	server := integrationtest.SetupServer(t, configPath)
	owner := register(t, server)
	account := openAccount(t, owner, 1000)

	credit := map[string]any{
		"account_id":      account.ID,
		"kind":            domain.TransactionKindCredit,
		"amount":          500,
		"idempotency_key": "credit-0001",
	}

	recorder, res := owner.do(http.MethodPost, "/transactions", credit, nil)
	require.Equal(t, http.StatusCreated, recorder.Code, res.Error)

	var first transactionData
	require.NoError(t, json.Unmarshal(res.Data, &first))
	require.False(t, first.Replayed)
	require.Equal(t, int64(1500), first.Transaction.BalanceAfter)

	// Same key again is answered from the log.
	recorder, res = owner.do(http.MethodPost, "/transactions", credit, nil)
	require.Equal(t, http.StatusOK, recorder.Code, res.Error)
	require.Equal(t, "true", recorder.Header().Get(transactiondelivery.ReplayHeader))

	var replay transactionData
	require.NoError(t, json.Unmarshal(res.Data, &replay))
	require.True(t, replay.Replayed)
	require.Equal(t, first.Transaction.ID, replay.Transaction.ID)

	// Same key for a different amount returns the recorded transaction.
	credit["amount"] = 501
	recorder, res = owner.do(http.MethodPost, "/transactions", credit, nil)
	require.Equal(t, http.StatusOK, recorder.Code, res.Error)

	replay = transactionData{}
	require.NoError(t, json.Unmarshal(res.Data, &replay))
	require.True(t, replay.Replayed)
	require.Equal(t, int64(500), replay.Transaction.Amount)
	require.Equal(t, int64(1500), replay.Transaction.BalanceAfter)

	recorder, _ = owner.do(http.MethodPost, "/transactions", map[string]any{
		"account_id": account.ID,
		"kind":       domain.TransactionKindDebit,
		"amount":     1501,
	}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	recorder, res = owner.do(http.MethodPost, "/transactions", map[string]any{
		"account_id": account.ID,
		"kind":       domain.TransactionKindDebit,
		"amount":     1500,
	}, map[string]string{transactiondelivery.IdempotencyKeyHeader: "debit-0001"})
	require.Equal(t, http.StatusCreated, recorder.Code, res.Error)

	var debit transactionData
	require.NoError(t, json.Unmarshal(res.Data, &debit))
	require.Equal(t, int64(0), debit.Transaction.BalanceAfter)
	require.Equal(t, "debit-0001", debit.Transaction.IdempotencyKey)

	url := fmt.Sprintf("/accounts/%d/transactions?page_id=1&page_size=10", account.ID)
	recorder, res = owner.do(http.MethodGet, url, nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code, res.Error)

	var history struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &history))
	require.Len(t, history.Transactions, 2)
	require.Equal(t, debit.Transaction.ID, history.Transactions[0].ID)

	recorder, res = owner.do(http.MethodGet, fmt.Sprintf("/accounts/%d/audit", account.ID), nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code, res.Error)

	var audit struct {
		Audit domain.AuditReport `json:"audit"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &audit))
	require.True(t, audit.Audit.Consistent)
	require.Equal(t, 2, audit.Audit.Entries)
}

func TestForeignAccount(t *testing.T) {
	server := integrationtest.SetupServer(t, configPath)
	owner := register(t, server)
	stranger := register(t, server)
	account := openAccount(t, owner, 1000)

	recorder, _ := stranger.do(http.MethodPost, "/transactions", map[string]any{
		"account_id": account.ID,
		"kind":       domain.TransactionKindDebit,
		"amount":     1,
	}, nil)
	require.Equal(t, http.StatusForbidden, recorder.Code)

	recorder, _ = stranger.do(http.MethodGet, fmt.Sprintf("/accounts/%d", account.ID), nil, nil)
	require.Equal(t, http.StatusForbidden, recorder.Code)

	recorder, _ = stranger.do(http.MethodPost, "/transactions", map[string]any{
		"account_id": account.ID + 1_000_000,
		"kind":       domain.TransactionKindDebit,
		"amount":     1,
	}, nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)

	recorder, _ = client{t: t, server: server}.do(http.MethodGet, "/users/me", nil, nil)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestConcurrentDebits(t *testing.T) {
	server := integrationtest.SetupServer(t, configPath)
	owner := register(t, server)
	account := openAccount(t, owner, 1000)

	const workers = 8

	var wg sync.WaitGroup

	codes := make(chan int, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			body, _ := json.Marshal(map[string]any{
				"account_id": account.ID,
				"kind":       domain.TransactionKindDebit,
				"amount":     400,
			})

			req, _ := http.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(body))
			req.Header.Set("Authorization", "Bearer "+owner.token)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			codes <- recorder.Code
		}()
	}

	wg.Wait()
	close(codes)

	created := 0

	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusUnprocessableEntity:
		default:
			t.Errorf("unexpected status %d", code)
		}
	}

	require.Equal(t, 2, created)

	recorder, res := owner.do(http.MethodGet, fmt.Sprintf("/accounts/%d/audit", account.ID), nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code, res.Error)

	var audit struct {
		Audit domain.AuditReport `json:"audit"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &audit))
	require.True(t, audit.Audit.Consistent)
	require.Equal(t, int64(200), audit.Audit.CurrentBalance)
}

func TestRenewAccessToken(t *testing.T) {
	server := integrationtest.SetupServer(t, configPath)

	c := client{t: t, server: server}

	recorder, res := c.do(http.MethodPost, "/users", map[string]string{
		"email":    randompkg.Email(),
		"name":     randompkg.Name(),
		"password": randompkg.String(10),
	}, nil)
	require.Equal(t, http.StatusCreated, recorder.Code, res.Error)

	recorder, renewed := c.do(http.MethodPost, "/sessions", map[string]string{
		"refresh_token": res.RefreshToken,
	}, nil)
	require.Equal(t, http.StatusOK, recorder.Code, renewed.Error)
	require.NotEmpty(t, renewed.AccessToken)

	c.token = renewed.AccessToken

	recorder, me := c.do(http.MethodGet, "/users/me", nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code, me.Error)
}
