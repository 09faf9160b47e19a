package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"khata/internal/core"
)

// Op names the persistence operation a message carries.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Message is the queued persistence envelope. Upserts carry the full
// transaction so the worker never has to reach back into the publisher's
// state; deletes carry only the id.
type Message struct {
	Op            Op                `json:"op"`
	Identity      string            `json:"identity"`
	TransactionID string            `json:"transactionId"`
	Transaction   *core.Transaction `json:"transaction,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

func NewUpsertMessage(identity string, tx core.Transaction) *Message {
	return &Message{
		Op:            OpUpsert,
		Identity:      identity,
		TransactionID: tx.ID,
		Transaction:   &tx,
		Timestamp:     time.Now().UTC(),
	}
}

func NewDeleteMessage(identity, id string) *Message {
	return &Message{
		Op:            OpDelete,
		Identity:      identity,
		TransactionID: id,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *Message) validate() error {
	switch m.Op {
	case OpUpsert:
		if m.Transaction == nil {
			return fmt.Errorf("upsert message without transaction payload")
		}
	case OpDelete:
		if m.TransactionID == "" {
			return fmt.Errorf("delete message without transaction id")
		}
	default:
		return fmt.Errorf("unknown op %q", m.Op)
	}
	if m.Identity == "" {
		return fmt.Errorf("message without identity")
	}
	return nil
}
