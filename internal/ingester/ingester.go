// Package ingester implements the per-contract ingester (C5): block
// watcher, polling fallback, startup backfill, and the per-transaction
// pipeline (risk engine -> persist -> validation queue -> publisher ->
// push) described in spec.md §4.2.
package ingester

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	gethlog "github.com/ethereum/go-ethereum/log"

	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/chainclient"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/publisher"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/queue"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/riskengine"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/store"
)

const (
	reconnectInterval   = 30 * time.Second
	fallbackPollPeriod  = 5 * time.Minute
	idlePollPeriod      = 60 * time.Second
	progressEveryN      = 10
	maxBringUpAttempts  = 10
	bringUpInitialDelay = 5 * time.Second
	bringUpMaxDelay     = 60 * time.Second
	bringUpBackoff      = 1.5
)

// EventSink is the push-fan-out surface the ingester emits to. It is
// a narrow interface (not the concrete push.Bus) so the ingester can
// be tested without a real bus.
type EventSink interface {
	Emit(topic string, payload any)
}

// FailureHandler is the Supervisor's hook for end-to-end bring-up
// exhaustion, per spec.md §4.2/§4.7.
type FailureHandler interface {
	OnIngesterFailed(address string, network chainclient.Network, reason string)
}

// Ingester drives one (contract, network) pair end to end.
type Ingester struct {
	address string
	network chainclient.Network

	chain   *chainclient.Client
	history *chainclient.HistoryClient
	store   *store.Store
	engine  *riskengine.Engine
	queue   *queue.Queue
	pub     *publisher.Publisher
	sink    EventSink
	onFail  FailureHandler

	mu             sync.Mutex
	fallbackActive bool
	retrying       bool
	chainSigner    types.Signer
}

type Config struct {
	Address string
	Network chainclient.Network

	Chain   *chainclient.Client
	History *chainclient.HistoryClient
	Store   *store.Store
	Engine  *riskengine.Engine
	Queue   *queue.Queue
	Pub     *publisher.Publisher
	Sink    EventSink
	OnFail  FailureHandler
}

func New(cfg Config) *Ingester {
	return &Ingester{
		address: cfg.Address,
		network: cfg.Network,
		chain:   cfg.Chain,
		history: cfg.History,
		store:   cfg.Store,
		engine:  cfg.Engine,
		queue:   cfg.Queue,
		pub:     cfg.Pub,
		sink:    cfg.Sink,
		onFail:  cfg.OnFail,
	}
}

// Run brings the ingester up with a supervised retry budget, then
// blocks running backfill followed by the watch loop until ctx is
// cancelled.
func (ing *Ingester) Run(ctx context.Context) {
	delay := bringUpInitialDelay
	for attempt := 1; attempt <= maxBringUpAttempts; attempt++ {
		if err := ing.bringUp(ctx); err != nil {
			gethlog.Error("ingester bring-up failed", "component", "ingester", "contract", ing.address, "attempt", attempt, "err", err)
			ing.setRetrying(true)
			select {
			case <-ctx.Done():
				ing.setRetrying(false)
				return
			case <-time.After(delay):
			}
			ing.setRetrying(false)
			delay = time.Duration(float64(delay) * bringUpBackoff)
			if delay > bringUpMaxDelay {
				delay = bringUpMaxDelay
			}
			continue
		}
		return // bringUp only returns nil once ctx is cancelled (watch loop ended cleanly)
	}

	reason := fmt.Sprintf("exhausted %d bring-up attempts", maxBringUpAttempts)
	gethlog.Error("ingester bring-up exhausted, handing off to supervisor", "component", "ingester", "contract", ing.address)
	_ = ing.store.UpdateContractStatus(context.Background(), ing.address, store.ContractError, &reason)
	_ = ing.store.InsertFailedMonitor(context.Background(), store.FailedMonitor{
		ID:              newID(),
		ContractAddress: ing.address,
		Network:         store.Network(ing.network),
		Reason:          reason,
		Attempts:        maxBringUpAttempts,
		LastAttempt:     time.Now(),
	})
	if ing.onFail != nil {
		ing.onFail.OnIngesterFailed(ing.address, ing.network, reason)
	}
	ing.sink.Emit("monitoring_failure", map[string]any{
		"contractAddress": ing.address,
		"reason":          reason,
	})
}

func (ing *Ingester) bringUp(ctx context.Context) error {
	if err := ing.backfill(ctx); err != nil {
		_ = ing.store.UpdateContractStatus(ctx, ing.address, store.ContractError, ptr(err.Error()))
		return fmt.Errorf("ingester: backfill: %w", err)
	}

	_ = ing.store.UpdateContractStatus(ctx, ing.address, store.ContractHealthy, nil)
	ing.watchLoop(ctx)
	return nil
}

// FallbackActive reports whether this ingester is currently running in
// polling-fallback mode, for the Supervisor's health reporting.
func (ing *Ingester) FallbackActive() bool {
	return ing.isFallbackActive()
}

func (ing *Ingester) isFallbackActive() bool {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.fallbackActive
}

func (ing *Ingester) setFallbackActive(active bool) {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	ing.fallbackActive = active
}

// Retrying reports whether this ingester is currently between bring-up
// attempts (backed off, waiting to retry after a failed attempt), for
// the Supervisor's health reporting.
func (ing *Ingester) Retrying() bool {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.retrying
}

func (ing *Ingester) setRetrying(retrying bool) {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	ing.retrying = retrying
}

func blockNumberString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func parseBlockNumber(s string) *big.Int {
	n := new(big.Int)
	n.SetString(s, 10)
	return n
}

func ptr(s string) *string { return &s }
