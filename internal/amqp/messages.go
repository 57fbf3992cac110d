package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message kinds carried on the queues.
const (
	KindTransactionSync   = "transaction.sync"
	KindTransactionDelete = "transaction.delete"
	KindPasswordReset     = "password.reset"
)

// Envelope wraps every message so a consumer can route on Kind before
// unmarshaling the payload.
type Envelope struct {
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// TransactionSyncMessage asks the backup worker to export one transaction.
// It carries only identifiers; the worker fetches the row itself.
type TransactionSyncMessage struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
}

// TransactionDeleteMessage records that a transaction was removed so the
// backup can be annotated.
type TransactionDeleteMessage struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
}

// PasswordResetMessage is handed to the reset-delivery channel. The core only
// decides whether to send it; delivery is someone else's job.
type PasswordResetMessage struct {
	Email       string    `json:"email"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewEnvelope(kind string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return &Envelope{Kind: kind, Timestamp: time.Now().UTC(), Payload: raw}, nil
}

func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if e.Kind == "" {
		return nil, fmt.Errorf("envelope without kind")
	}
	return &e, nil
}

// Decode unmarshals the payload into out.
func (e *Envelope) Decode(out any) error {
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Kind, err)
	}
	return nil
}
