// Package worker replays transaction mutation events onto a mirror row
// store, keeping a second backend in step with the primary.
package worker

import (
	"context"
	"fmt"

	"finpro/internal/amqp"
	"finpro/internal/log"
	"finpro/internal/tabular"
)

// Mirror applies transaction events to a row store. Events arrive in
// publish order on a single queue, so positions in update and delete
// events are valid against the mirror as long as it started empty or in
// sync with the primary.
type Mirror struct {
	store  tabular.RowStore
	logger *log.Logger
}

func NewMirror(store tabular.RowStore, logger *log.Logger) *Mirror {
	return &Mirror{
		store:  store,
		logger: logger.WithComponent(log.ComponentMirror),
	}
}

// Apply replays one event. Unknown actions are an error so the consumer
// rejects the message instead of silently dropping it.
func (m *Mirror) Apply(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	if err := m.store.Ensure(ctx, tabular.TransactionsTable); err != nil {
		return fmt.Errorf("ensure transactions table: %w", err)
	}

	switch msg.Action {
	case amqp.ActionAdd:
		if err := m.store.Append(ctx, tabular.TransactionsTable, msg.Row); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	case amqp.ActionUpdate:
		if err := m.store.Overwrite(ctx, tabular.TransactionsTable, msg.RowIndex, msg.Row); err != nil {
			return fmt.Errorf("overwrite row %d: %w", msg.RowIndex, err)
		}
	case amqp.ActionDelete:
		if err := m.store.Delete(ctx, tabular.TransactionsTable, msg.RowIndex); err != nil {
			return fmt.Errorf("delete row %d: %w", msg.RowIndex, err)
		}
	default:
		return fmt.Errorf("unknown action %q", msg.Action)
	}

	m.logger.Info("applied transaction event",
		log.FieldEventID, msg.ID,
		log.FieldAction, msg.Action,
		log.FieldRowIndex, msg.RowIndex,
		log.FieldUsername, msg.Username)

	return nil
}
