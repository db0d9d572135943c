package chainclient

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
)

// Manager holds the testnet/mainnet connections. Grounded on the
// teacher's ConnectNodes: dial every configured network, collect
// per-network failures rather than aborting on the first one, and
// only fail outright when nothing at all connected.
type Manager struct {
	clients map[Network]*Client
}

// EndpointSet is one network's RPC/WS pair.
type EndpointSet struct {
	Network Network
	RPCURL  string
	WSURL   string
}

// Connect dials every endpoint set, returning the Manager plus the
// list of networks that failed to connect.
func Connect(ctx context.Context, endpoints []EndpointSet) (*Manager, []Network, error) {
	clients := make(map[Network]*Client)
	var failed []Network

	for _, ep := range endpoints {
		c, err := Dial(ctx, ep.Network, ep.RPCURL, ep.WSURL)
		if err != nil {
			log.Error("cannot connect to network", "component", "chainclient", "network", ep.Network, "err", err)
			failed = append(failed, ep.Network)
			continue
		}
		clients[ep.Network] = c
	}

	if len(clients) == 0 {
		return nil, failed, fmt.Errorf("chainclient: no networks connected")
	}

	log.Info("chain client manager ready", "component", "chainclient", "connected", len(clients), "failed", len(failed))
	return &Manager{clients: clients}, failed, nil
}

// Client returns the connection for network, or nil if it never
// connected or was never configured.
func (m *Manager) Client(network Network) *Client {
	return m.clients[network]
}

func (m *Manager) Close() {
	for _, c := range m.clients {
		c.Close()
	}
}
