// Package eventbus announces ledger events over NATS.
package eventbus

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// SubjectTransactionApplied receives an event for every newly recorded transaction.
const SubjectTransactionApplied = "transactions.applied"

// Conn is the part of *nats.Conn used by the publisher.
type Conn interface {
	PublishMsg(m *nats.Msg) error
}

// TransactionApplied is the payload published on SubjectTransactionApplied.
type TransactionApplied struct {
	TransactionID  int64     `json:"transaction_id"`
	AccountID      int64     `json:"account_id"`
	Kind           string    `json:"kind"`
	Amount         int64     `json:"amount"`
	AmountDisplay  string    `json:"amount_display"`
	BalanceAfter   int64     `json:"balance_after"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Publisher publishes ledger events.
type Publisher struct {
	conn Conn
}

// NewPublisher returns Publisher over the NATS connection.
func NewPublisher(conn Conn) *Publisher {
	return &Publisher{conn: conn}
}

// Publish sends a TransactionApplied event for t.
//
// The message id header lets JetStream streams drop duplicates.
func (p *Publisher) Publish(ctx context.Context, t domain.Transaction) error {
	data, err := json.Marshal(TransactionApplied{
		TransactionID:  t.ID,
		AccountID:      t.AccountID,
		Kind:           t.Kind,
		Amount:         t.Amount,
		AmountDisplay:  moneypkg.Format(t.Amount),
		BalanceAfter:   t.BalanceAfter,
		IdempotencyKey: t.IdempotencyKey,
		CreatedAt:      t.CreatedAt,
	})
	if err != nil {
		return err
	}

	msg := nats.NewMsg(SubjectTransactionApplied)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, strconv.FormatInt(t.ID, 10))

	if err := p.conn.PublishMsg(msg); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().Int64("transaction_id", t.ID).Str("subject", SubjectTransactionApplied).Msg("published")

	return nil
}

// Connect dials NATS at url. An empty url returns a nil connection.
func Connect(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}

	return nats.Connect(url, nats.Name("pet-ledger"))
}
