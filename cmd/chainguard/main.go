// Command chainguard is ChainGuard's entrypoint: it loads and
// validates configuration, wires every component (store, chain
// clients, risk engine, validation queue, publisher, push bus,
// Supervisor, HTTP surface, baseline job), starts monitoring for every
// contract already on record, and then blocks serving until signaled
// to stop. Grounded on the teacher's cmd/stress-engine sequential
// init-functions-then-main-loop shape, generalized from a flat global
// init to an explicit wiring function, and from log.Fatalf to the
// structured logger's Crit (which also terminates the process).
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/baseline"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/chainclient"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/config"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/httpapi"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/publisher"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/push"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/queue"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/riskengine"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/store"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/supervisor"
)

func main() {
	app := &cli.App{
		Name:  "chainguard",
		Usage: "ChainGuard real-time contract monitoring engine",
		Action: func(c *cli.Context) error {
			run()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		gethlog.Crit("chainguard: fatal", "component", "main", "err", err)
	}
}

func run() {
	gethlog.Info("[init] chainguard starting")

	cfg, err := config.Load()
	if err != nil {
		gethlog.Crit("[init] invalid configuration", "component", "main", "err", err)
	}
	gethlog.Info("[init] configuration loaded", "nodeEnv", cfg.NodeEnv, "logLevel", cfg.LogLevel)

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		gethlog.Crit("[init] cannot open store", "component", "main", "err", err)
	}
	gethlog.Info("[init] store connected")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr, chains, histories := connectChains(ctx, cfg)
	defer mgr.Close()

	engine := riskengine.NewEngine()
	go engine.RunSweeper(ctx)

	q := queue.New()
	validator := queue.NewHTTPValidator(cfg.LLMWebhookURL)

	pub := newPublisher(cfg)

	bus := push.New()
	if cfg.PushFanoutEnabled() {
		fanout, err := push.NewRedisFanout(cfg.RedisURL, bus)
		if err != nil {
			gethlog.Error("[init] redis fanout unavailable, continuing single-instance", "component", "main", "err", err)
		} else {
			bus = bus.WithFanout(fanout)
			gethlog.Info("[init] redis cross-instance fanout enabled")
		}
	}

	sup := supervisor.New(ctx, supervisor.Config{
		Store:     st,
		Engine:    engine,
		Queue:     q,
		Validator: validator,
		Publisher: pub,
		Bus:       bus,
		Chains:    chains,
		History:   histories,
	})

	startExistingContracts(ctx, st, sup)

	go baseline.New(st).Run(ctx)

	srv := httpapi.New(httpapi.Config{
		Addr:       ":" + strconv.Itoa(cfg.Port),
		Supervisor: sup,
		Bus:        bus,
		InstanceID: cfg.InstanceID,
	})

	gethlog.Info("[init] entering serve loop", "port", cfg.Port)
	if err := srv.Run(ctx); err != nil {
		gethlog.Error("chainguard: http server stopped with error", "component", "main", "err", err)
	}

	sup.Wait()
	gethlog.Info("chainguard: shutdown complete")
}

// connectChains dials every configured network through
// chainclient.Manager (dial-all, log-and-skip-failures, fail outright
// only if nothing connected) and builds the explorer-style history
// client for each network that came up.
func connectChains(ctx context.Context, cfg *config.Config) (*chainclient.Manager, map[chainclient.Network]*chainclient.Client, map[chainclient.Network]*chainclient.HistoryClient) {
	endpointsByNetwork := map[chainclient.Network]config.NetworkEndpoints{
		chainclient.Testnet: cfg.Testnet,
		chainclient.Mainnet: cfg.Mainnet,
	}

	mgr, failed, err := chainclient.Connect(ctx, []chainclient.EndpointSet{
		{Network: chainclient.Testnet, RPCURL: cfg.Testnet.RPCURL, WSURL: cfg.Testnet.WSURL},
		{Network: chainclient.Mainnet, RPCURL: cfg.Mainnet.RPCURL, WSURL: cfg.Mainnet.WSURL},
	})
	if err != nil {
		gethlog.Crit("[init] no network connected, cannot monitor anything", "component", "main", "err", err)
	}
	for _, n := range failed {
		gethlog.Error("[init] network unavailable, monitoring on it is disabled", "component", "main", "network", n)
	}

	chains := make(map[chainclient.Network]*chainclient.Client)
	histories := make(map[chainclient.Network]*chainclient.HistoryClient)
	for _, n := range []chainclient.Network{chainclient.Testnet, chainclient.Mainnet} {
		client := mgr.Client(n)
		if client == nil {
			continue
		}
		chains[n] = client
		histories[n] = chainclient.NewHistoryClient(endpointsByNetwork[n].ExplorerURL)
	}
	return mgr, chains, histories
}

func newPublisher(cfg *config.Config) *publisher.Publisher {
	if !cfg.PublishingEnabled() {
		gethlog.Info("[init] on-chain publishing disabled: no TESTNET_PRIVATE_KEY configured")
	}
	pub, err := publisher.New(publisher.Config{
		RPCURL:          cfg.Testnet.RPCURL,
		ContractAddress: cfg.OracleContractAddress,
		PrivateKeyHex:   cfg.TestnetPrivateKey,
		ChainID:         cfg.OracleChainID,
	})
	if err != nil {
		gethlog.Crit("[init] cannot construct publisher", "component", "main", "err", err)
	}
	return pub
}

// startExistingContracts mirrors spec.md §4.3: on startup the
// Supervisor brings every already-registered contract under
// monitoring.
func startExistingContracts(ctx context.Context, st *store.Store, sup *supervisor.Supervisor) {
	contracts, err := st.ListActiveContracts(ctx)
	if err != nil {
		gethlog.Error("[init] cannot list active contracts", "component", "main", "err", err)
		return
	}
	for _, c := range contracts {
		network := chainclient.Network(c.Network)
		if err := sup.Start(ctx, c.Address, network); err != nil {
			gethlog.Error("[init] cannot start monitoring", "component", "main", "contract", c.Address, "err", err)
		}
	}
	gethlog.Info("[init] started monitoring for existing contracts", "count", len(contracts))
}

