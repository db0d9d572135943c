package ingester

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/chainclient"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/riskengine"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/store"
)

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func historyTxToStoreTx(h chainclient.HistoryTx, contractAddress string) store.Transaction {
	status := store.TxSuccess
	if h.Failed() {
		status = store.TxFailed
	}

	ts, _ := new(big.Int).SetString(h.TimeStamp, 10)
	var at time.Time
	if ts != nil {
		at = time.Unix(ts.Int64(), 0)
	} else {
		at = time.Now()
	}

	return store.Transaction{
		ID:              newID(),
		Hash:            strings.ToLower(h.Hash),
		From:            normalizeAddress(h.From),
		To:              normalizeAddress(h.To),
		Value:           defaultZero(h.Value),
		GasUsed:         h.GasUsed,
		Status:          status,
		BlockNumber:     h.BlockNumber,
		Timestamp:       at,
		ContractAddress: contractAddress,
	}
}

func defaultZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// signer lazily resolves the chain's signer from its chain ID,
// cached for the lifetime of the ingester.
func (ing *Ingester) signer(ctx context.Context) (types.Signer, error) {
	ing.mu.Lock()
	if ing.chainSigner != nil {
		s := ing.chainSigner
		ing.mu.Unlock()
		return s, nil
	}
	ing.mu.Unlock()

	chainID, err := ing.chain.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	s := types.LatestSignerForChainID(chainID)

	ing.mu.Lock()
	ing.chainSigner = s
	ing.mu.Unlock()
	return s, nil
}

// blockTxToStoreTx converts a live block transaction into a store row
// if it touches the monitored contract address, fetching its receipt
// for status and gas used. Returns (nil, nil) when the transaction is
// unrelated to this ingester's contract.
func (ing *Ingester) blockTxToStoreTx(ctx context.Context, tx *types.Transaction, blockNumber string, blockTime uint64) (*store.Transaction, error) {
	to := ""
	if tx.To() != nil {
		to = normalizeAddress(tx.To().Hex())
	}

	signer, err := ing.signer(ctx)
	if err != nil {
		return nil, err
	}
	from, err := types.Sender(signer, tx)
	if err != nil {
		return nil, err
	}
	fromAddr := normalizeAddress(from.Hex())

	if to != ing.address && fromAddr != ing.address {
		return nil, nil
	}

	receipt, err := ing.chain.TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, err
	}

	status := store.TxSuccess
	if receipt.Status == 0 {
		status = store.TxFailed
	}

	row := store.Transaction{
		ID:              newID(),
		Hash:            strings.ToLower(tx.Hash().Hex()),
		From:            fromAddr,
		To:              to,
		Value:           defaultZero(tx.Value().String()),
		GasUsed:         receipt.GasUsed,
		Status:          status,
		BlockNumber:     blockNumber,
		Timestamp:       time.Unix(int64(blockTime), 0),
		ContractAddress: ing.address,
	}
	return &row, nil
}

func storeTxToTxView(tx store.Transaction, network chainclient.Network) riskengine.TxView {
	value, ok := new(big.Int).SetString(tx.Value, 10)
	if !ok {
		value = big.NewInt(0)
	}
	status := riskengine.TxSuccess
	if tx.Status == store.TxFailed {
		status = riskengine.TxFailed
	}
	return riskengine.TxView{
		Hash:    tx.Hash,
		From:    tx.From,
		To:      tx.To,
		Value:   value,
		GasUsed: tx.GasUsed,
		Status:  status,
		Network: string(network),
	}
}
