package ingester

import (
	"context"
	"fmt"
	"math/big"
	"time"

	gethlog "github.com/ethereum/go-ethereum/log"

	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/store"
)

// backfill fetches every transaction since lastProcessedBlock+1 via
// the explorer history endpoint, persists them (advancing counters
// atomically per spec.md §4.2), then replays each inserted
// transaction through the rest of the pipeline in the background so
// bring-up isn't blocked on analysis.
func (ing *Ingester) backfill(ctx context.Context) error {
	contract, err := ing.store.ContractByAddress(ctx, ing.address)
	if err != nil {
		return fmt.Errorf("lookup contract: %w", err)
	}

	_ = ing.store.UpdateContractStatus(ctx, ing.address, store.ContractAnalyzing, nil)

	start := parseBlockNumber(contract.LastProcessedBlock)
	start.Add(start, big.NewInt(1))

	inserted, err := ing.fetchAndPersist(ctx, start.Uint64())
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	if len(inserted) == 0 {
		return nil
	}

	go ing.replayBackfill(context.Background(), inserted)
	return nil
}

// fetchAndPersist pulls the explorer history starting at startBlock
// and persists every transaction not already known, returning the
// newly-inserted rows in chain order.
func (ing *Ingester) fetchAndPersist(ctx context.Context, startBlock uint64) ([]store.Transaction, error) {
	txs, err := ing.history.TxList(ctx, ing.address, startBlock)
	if err != nil {
		return nil, err
	}

	var insertedRows []store.Transaction
	for _, raw := range txs {
		row := historyTxToStoreTx(raw, ing.address)

		exists, err := ing.store.TransactionExists(ctx, row.Hash)
		if err != nil {
			gethlog.Error("existence check failed", "component", "ingester", "contract", ing.address, "err", err)
			continue
		}
		if exists {
			continue
		}

		didInsert, err := ing.store.UpsertTransactionAndAdvance(ctx, row, row.BlockNumber)
		if err != nil {
			gethlog.Error("failed to persist backfilled transaction", "component", "ingester", "contract", ing.address, "hash", row.Hash, "err", err)
			continue
		}
		if didInsert {
			insertedRows = append(insertedRows, row)
		}
	}
	return insertedRows, nil
}

// replayBackfill drives each inserted transaction through the
// downstream pipeline, reporting progress every 10 transactions via a
// single SYSTEM alert updated in place, then removed on completion.
func (ing *Ingester) replayBackfill(ctx context.Context, txs []store.Transaction) {
	alertID := newID()
	description := fmt.Sprintf("Backfill analysis in progress: 0/%d", len(txs))
	if err := ing.store.CreateAlert(ctx, store.Alert{
		ID:              alertID,
		ContractAddress: ing.address,
		Type:            "SYSTEM",
		Severity:        store.SeverityInfo,
		Description:     description,
		CreatedAt:       time.Now(),
	}); err != nil {
		gethlog.Error("failed to create backfill progress alert", "component", "ingester", "err", err)
	}

	ing.sink.Emit("backfill_analysis_progress", map[string]any{
		"contractAddress": ing.address,
		"processed":       0,
		"total":           len(txs),
	})

	for i, tx := range txs {
		if err := ing.processTransaction(ctx, tx); err != nil {
			gethlog.Error("backfill replay failed for transaction", "component", "ingester", "hash", tx.Hash, "err", err)
		}

		if (i+1)%progressEveryN == 0 {
			ing.sink.Emit("backfill_analysis_progress", map[string]any{
				"contractAddress": ing.address,
				"processed":       i + 1,
				"total":           len(txs),
			})
			desc := fmt.Sprintf("Backfill analysis in progress: %d/%d", i+1, len(txs))
			_ = ing.store.UpdateAlertDescription(ctx, alertID, desc)
		}
	}

	_ = ing.store.DeleteAlert(ctx, alertID)
	ing.sink.Emit("backfill_analysis_complete", map[string]any{
		"contractAddress": ing.address,
		"total":           len(txs),
	})
	_ = ing.store.UpdateContractStatus(ctx, ing.address, store.ContractHealthy, nil)
}
