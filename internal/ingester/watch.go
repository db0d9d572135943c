package ingester

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	gethlog "github.com/ethereum/go-ethereum/log"

	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/store"
)

// watchLoop is the ingester's steady-state delivery loop: a primary
// block-watcher subscription with a polling fallback that takes over
// when the subscription drops, grounded on pgeth_monitoring.go's
// startHeadListener select shape (head channel + ticker + subscription
// error channel). It runs as a single state machine — primary mode and
// polling-fallback mode share one loop — so that falling back never
// loses the ability to retry the primary subscription: every
// reconnectInterval while polling, it re-attempts SubscribeNewHead and,
// on success, resumes primary mode in place, per spec.md §4.2.
func (ing *Ingester) watchLoop(ctx context.Context) {
	headCh := make(chan *types.Header, 16)
	sub, err := ing.chain.SubscribeNewHead(ctx, headCh)
	primary := err == nil

	// stale fires when primary mode has gone reconnectInterval without a
	// new head; retry fires the periodic resubscribe attempt while in
	// polling fallback. Exactly one of the two is ever running.
	stale := time.NewTimer(reconnectInterval)
	defer stale.Stop()
	retry := time.NewTicker(reconnectInterval)
	defer retry.Stop()
	pollTicker := time.NewTicker(fallbackPollPeriod)
	defer pollTicker.Stop()

	if primary {
		retry.Stop()
	} else {
		gethlog.Warn("head subscription failed, starting in polling mode", "component", "ingester", "contract", ing.address, "err", err)
		ing.activateFallback(ctx)
		stale.Stop()
		pollTicker.Reset(fallbackPollPeriod)
	}

	for {
		if primary {
			select {
			case <-ctx.Done():
				sub.Unsubscribe()
				return

			case header := <-headCh:
				stale.Reset(reconnectInterval)
				ing.setFallbackActive(false)
				if err := ing.processBlock(ctx, header.Number); err != nil {
					gethlog.Error("failed processing head block", "component", "ingester", "contract", ing.address, "block", header.Number, "err", err)
				}

			case err := <-sub.Err():
				if err != nil {
					gethlog.Error("head subscription dropped, falling back to polling", "component", "ingester", "contract", ing.address, "err", err)
				}
				sub.Unsubscribe()
				primary = false
				ing.activateFallback(ctx)
				stale.Stop()
				pollTicker.Reset(fallbackPollPeriod)
				retry.Reset(reconnectInterval)

			case <-stale.C:
				// No new head in reconnectInterval: the node may be
				// stalled. Fall back to polling until it recovers.
				sub.Unsubscribe()
				primary = false
				ing.activateFallback(ctx)
				pollTicker.Reset(idlePollPeriod)
				retry.Reset(reconnectInterval)
			}
			continue
		}

		// Polling fallback: keep re-polling history, and every
		// reconnectInterval try to re-establish the primary subscription.
		// On success, resume primary mode in place — control never
		// returns to the caller here; Run's bring-up retry loop is a
		// separate, coarser budget that only applies to total failure.
		select {
		case <-ctx.Done():
			return

		case <-pollTicker.C:
			ing.pollOnce(ctx)

		case <-retry.C:
			newHeadCh := make(chan *types.Header, 16)
			newSub, err := ing.chain.SubscribeNewHead(ctx, newHeadCh)
			if err != nil {
				gethlog.Warn("reconnect attempt failed, continuing polling fallback", "component", "ingester", "contract", ing.address, "err", err)
				continue
			}
			gethlog.Info("block watcher re-established, resuming primary mode", "component", "ingester", "contract", ing.address)
			sub, headCh = newSub, newHeadCh
			ing.setFallbackActive(false)
			_ = ing.store.UpdateContractStatus(ctx, ing.address, store.ContractHealthy, nil)
			primary = true
			retry.Stop()
			pollTicker.Stop()
			stale.Reset(reconnectInterval)
		}
	}
}

// activateFallback flips the fallback flag exactly once and records
// the contract as running in degraded mode, idempotent across
// repeated watcher failures.
func (ing *Ingester) activateFallback(ctx context.Context) {
	if ing.isFallbackActive() {
		return
	}
	ing.setFallbackActive(true)
	_ = ing.store.UpdateContractStatus(ctx, ing.address, store.ContractWarning, ptr("block watcher unavailable, polling fallback active"))
}

// pollOnce re-runs the history fetch-and-persist path once, used by
// watchLoop's polling-fallback state on every pollTicker tick.
func (ing *Ingester) pollOnce(ctx context.Context) {
	contract, err := ing.store.ContractByAddress(ctx, ing.address)
	if err != nil {
		gethlog.Error("polling fallback: contract lookup failed", "component", "ingester", "contract", ing.address, "err", err)
		return
	}
	start := parseBlockNumber(contract.LastProcessedBlock)
	start.Add(start, big.NewInt(1))

	inserted, err := ing.fetchAndPersist(ctx, start.Uint64())
	if err != nil {
		gethlog.Error("polling fallback: fetch failed", "component", "ingester", "contract", ing.address, "err", err)
		return
	}
	for _, tx := range inserted {
		if err := ing.processTransaction(ctx, tx); err != nil {
			gethlog.Error("polling fallback: pipeline failed", "component", "ingester", "contract", ing.address, "hash", tx.Hash, "err", err)
		}
	}
}

// processBlock fetches a block by number and runs every transaction
// in it through the downstream pipeline, deduplicating by hash.
func (ing *Ingester) processBlock(ctx context.Context, number *big.Int) error {
	block, err := ing.chain.BlockByNumber(ctx, number)
	if err != nil {
		return err
	}

	blockNumStr := blockNumberString(number)
	for _, tx := range block.Transactions() {
		row, err := ing.blockTxToStoreTx(ctx, tx, blockNumStr, block.Time())
		if err != nil {
			gethlog.Error("failed to build transaction row", "component", "ingester", "contract", ing.address, "hash", tx.Hash().Hex(), "err", err)
			continue
		}
		if row == nil {
			continue // not addressed to/from the monitored contract
		}

		inserted, err := ing.store.UpsertTransactionAndAdvance(ctx, *row, blockNumStr)
		if err != nil {
			gethlog.Error("failed to persist live transaction", "component", "ingester", "contract", ing.address, "hash", row.Hash, "err", err)
			continue
		}
		if !inserted {
			continue
		}
		if err := ing.processTransaction(ctx, *row); err != nil {
			gethlog.Error("pipeline failed for live transaction", "component", "ingester", "contract", ing.address, "hash", row.Hash, "err", err)
		}
	}
	return nil
}
