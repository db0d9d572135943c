// Package chainclient is ChainGuard's dual-network chain adapter: a
// thin ethclient wrapper plus an explorer-style HTTP history source.
// Grounded on the teacher's node-connection idiom (dial every
// configured endpoint, collect failures rather than aborting on the
// first one), generalized from Filecoin JSON-RPC nodes to
// testnet/mainnet ethclient endpoints.
package chainclient

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
)

type Network string

const (
	Testnet Network = "testnet"
	Mainnet Network = "mainnet"
)

// Client wraps one network's RPC (calls) and WS (subscriptions)
// ethclient connections.
type Client struct {
	Network Network

	rpc *ethclient.Client
	ws  *ethclient.Client
}

// Dial connects both the RPC and WS endpoints for one network. The WS
// connection is used only for SubscribeNewHead; every other call goes
// over RPC.
func Dial(ctx context.Context, network Network, rpcURL, wsURL string) (*Client, error) {
	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chainclient: dial rpc %s: %w", network, err)
	}

	ws, err := ethclient.DialContext(ctx, wsURL)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("chainclient: dial ws %s: %w", network, err)
	}

	log.Info("connected to chain endpoints", "component", "chainclient", "network", network)
	return &Client{Network: network, rpc: rpc, ws: ws}, nil
}

// SubscribeNewHead is the block watcher's primary delivery path.
func (c *Client) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	return c.ws.SubscribeNewHead(ctx, ch)
}

func (c *Client) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	return c.rpc.BlockByNumber(ctx, number)
}

func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return c.rpc.TransactionReceipt(ctx, hash)
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.rpc.BlockNumber(ctx)
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.rpc.ChainID(ctx)
}

func (c *Client) Close() {
	c.rpc.Close()
	c.ws.Close()
}
