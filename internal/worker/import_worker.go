package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fincoach/internal/amqp"
	"fincoach/internal/core"
	"fincoach/internal/importer"
)

// TransactionStore is the slice of storage the worker needs.
type TransactionStore interface {
	ReplaceTransactions(ctx context.Context, sid string, txns []core.Transaction) error
}

// ImportWorker parses queued CSV statements, categorizes the rows and
// stores them for the owning session.
type ImportWorker struct {
	store TransactionStore
}

func NewImportWorker(store TransactionStore) *ImportWorker {
	return &ImportWorker{store: store}
}

// HandleImportMessage processes a single statement import message from AMQP
func (w *ImportWorker) HandleImportMessage(ctx context.Context, msg *amqp.ImportStatementMessage) error {
	slog.InfoContext(ctx, "Processing import statement message",
		"session_id", msg.SessionID,
		"csv_bytes", len(msg.CSV))

	rows, err := importer.Parse(msg.CSV)
	if err != nil {
		return fmt.Errorf("parse statement: %w", err)
	}

	txns := importer.Enrich(rows)

	if err := w.store.ReplaceTransactions(ctx, msg.SessionID, txns); err != nil {
		return fmt.Errorf("store transactions: %w", err)
	}

	slog.InfoContext(ctx, "Statement imported",
		"session_id", msg.SessionID,
		"row_count", len(txns))

	return nil
}
