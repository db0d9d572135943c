// Package supervisor implements the Monitor Supervisor (C6): the
// per-contract control-block map, lifecycle operations, schema
// registration, and the push-fan-out surface described in
// spec.md §4.3.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	gethlog "github.com/ethereum/go-ethereum/log"

	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/chainclient"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/ingester"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/publisher"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/push"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/queue"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/riskengine"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/store"
)

// controlBlock tracks one monitored contract's ingester, mirroring
// spec.md §4.3's {network, fallbackActive, retryTimer?, ...} shape;
// the watcher/polling/reconnect timer handles themselves live inside
// the Ingester and are reached only through it.
type controlBlock struct {
	network chainclient.Network
	ing     *ingester.Ingester
	cancel  context.CancelFunc
	started time.Time
	failed  bool
}

// eventCounters is the per-contract coarse counter set backing
// EventStats.
type eventCounters struct {
	transactions int
	findings     int
	alerts       int
}

// Supervisor owns every per-contract ingester's lifecycle, the
// validation queue worker, and the push bus.
type Supervisor struct {
	store   *store.Store
	engine  *riskengine.Engine
	queue   *queue.Queue
	worker  *queue.Worker
	pub     *publisher.Publisher
	bus     *push.Bus
	chains  map[chainclient.Network]*chainclient.Client
	history map[chainclient.Network]*chainclient.HistoryClient

	mu       sync.Mutex
	controls map[string]*controlBlock
	counters map[string]*eventCounters
	paused   bool
	wg       sync.WaitGroup
}

// Config wires every dependency the Supervisor coordinates.
type Config struct {
	Store     *store.Store
	Engine    *riskengine.Engine
	Queue     *queue.Queue
	Validator queue.Validator
	Publisher *publisher.Publisher
	Bus       *push.Bus
	Chains    map[chainclient.Network]*chainclient.Client
	History   map[chainclient.Network]*chainclient.HistoryClient
}

// New constructs the Supervisor, registers the two on-chain schemas
// (best-effort, per spec.md §4.3), and starts the validation queue
// worker.
func New(ctx context.Context, cfg Config) *Supervisor {
	s := &Supervisor{
		store:    cfg.Store,
		engine:   cfg.Engine,
		queue:    cfg.Queue,
		pub:      cfg.Publisher,
		bus:      cfg.Bus,
		chains:   cfg.Chains,
		history:  cfg.History,
		controls: make(map[string]*controlBlock),
		counters: make(map[string]*eventCounters),
	}
	s.worker = queue.NewWorker(cfg.Queue, cfg.Validator, s)

	cfg.Publisher.RegisterSchemas(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker.Run(ctx)
	}()

	return s
}

// Start is idempotent: starting an already-running contract is a
// no-op. It spawns one supervised ingester goroutine per (contract,
// network).
func (s *Supervisor) Start(ctx context.Context, address string, network chainclient.Network) error {
	s.mu.Lock()
	if _, exists := s.controls[address]; exists {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	chain, err := s.chainFor(network)
	if err != nil {
		return err
	}
	history, ok := s.history[network]
	if !ok {
		return fmt.Errorf("supervisor: no history client configured for network %s", network)
	}

	ingCtx, cancel := context.WithCancel(ctx)
	ing := ingester.New(ingester.Config{
		Address: address,
		Network: network,
		Chain:   chain,
		History: history,
		Store:   s.store,
		Engine:  s.engine,
		Queue:   s.queue,
		Pub:     s.pub,
		Sink:    eventSink{s: s, address: address},
		OnFail:  s,
	})

	cb := &controlBlock{network: network, ing: ing, cancel: cancel, started: time.Now()}

	s.mu.Lock()
	s.controls[address] = cb
	s.counters[address] = &eventCounters{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ing.Run(ingCtx)
	}()

	gethlog.Info("supervisor: started monitoring", "component", "supervisor", "contract", address, "network", network)
	return nil
}

// Stop cancels the contract's ingester context and clears its control
// block. It does not join the goroutine (the ingester's own select
// loops return promptly on context cancellation); callers that need a
// hard join should cancel the parent context and wait on Wait.
func (s *Supervisor) Stop(address string) error {
	s.mu.Lock()
	cb, exists := s.controls[address]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("supervisor: %s is not being monitored", address)
	}
	delete(s.controls, address)
	delete(s.counters, address)
	s.mu.Unlock()

	cb.cancel()
	return s.store.UpdateContractStatus(context.Background(), address, store.ContractStopped, nil)
}

// Pause is the global switch from spec.md §4.3: while true, the
// Supervisor's result handlers drop validator outcomes without
// persisting them, and the validation queue worker itself pauses.
func (s *Supervisor) Pause(paused bool) {
	s.mu.Lock()
	s.paused = paused
	s.mu.Unlock()
	s.worker.Pause(paused)
}

func (s *Supervisor) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Wait blocks until every spawned goroutine (ingesters and the queue
// worker) has returned, used by graceful shutdown.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) chainFor(network chainclient.Network) (*chainclient.Client, error) {
	chain, ok := s.chains[network]
	if !ok {
		return nil, fmt.Errorf("supervisor: no chain client configured for network %s", network)
	}
	return chain, nil
}
