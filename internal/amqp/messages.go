package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mutation actions carried by transaction events.
const (
	ActionAdd    = "add"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// TransactionEventMessage describes one committed mutation of the
// Transactions table. Row carries the full serialized row for add and
// update; it is empty for delete. RowIndex is 0 for add (the consumer
// appends) and the 1-based target position otherwise.
type TransactionEventMessage struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Username  string    `json:"username"`
	RowIndex  int       `json:"rowIndex"`
	Row       []string  `json:"row,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEventMessage(action, username string, rowIndex int, row []string) *TransactionEventMessage {
	return &TransactionEventMessage{
		ID:        uuid.NewString(),
		Action:    action,
		Username:  username,
		RowIndex:  rowIndex,
		Row:       row,
		Timestamp: time.Now(),
	}
}

func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Action == "" {
		return nil, fmt.Errorf("message has no action")
	}
	return &msg, nil
}
