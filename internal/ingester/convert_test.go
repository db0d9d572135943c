package ingester

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/chainclient"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/riskengine"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/store"
)

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0xabc123", normalizeAddress("  0xABC123  "))
}

func TestDefaultZero(t *testing.T) {
	assert.Equal(t, "0", defaultZero(""))
	assert.Equal(t, "42", defaultZero("42"))
}

func TestHistoryTxToStoreTx_MapsFailedStatus(t *testing.T) {
	h := chainclient.HistoryTx{
		Hash:        "0xHASH",
		From:        "0xFROM",
		To:          "0xTO",
		Value:       "1000",
		GasUsed:     21000,
		IsError:     "1",
		TimeStamp:   "1700000000",
		BlockNumber: "12345",
	}
	row := historyTxToStoreTx(h, "0xto")

	assert.Equal(t, store.TxFailed, row.Status)
	assert.Equal(t, "0xhash", row.Hash)
	assert.Equal(t, "0xfrom", row.From)
	assert.Equal(t, "0xto", row.To)
	assert.Equal(t, "1000", row.Value)
	assert.Equal(t, uint64(21000), row.GasUsed)
	assert.Equal(t, "12345", row.BlockNumber)
	assert.NotEmpty(t, row.ID)
}

func TestHistoryTxToStoreTx_MapsSuccessStatusAndEmptyValue(t *testing.T) {
	h := chainclient.HistoryTx{
		Hash:    "0xHASH2",
		From:    "0xFROM2",
		To:      "",
		Value:   "",
		IsError: "0",
	}
	row := historyTxToStoreTx(h, "0xcontract")

	assert.Equal(t, store.TxSuccess, row.Status)
	assert.Equal(t, "0", row.Value)
	assert.Equal(t, "", row.To)
}

func TestStoreTxToTxView(t *testing.T) {
	tx := store.Transaction{
		Hash:    "0xhash",
		From:    "0xfrom",
		To:      "0xto",
		Value:   "5000000000000000000",
		GasUsed: 100000,
		Status:  store.TxFailed,
	}
	view := storeTxToTxView(tx, chainclient.Testnet)

	require.NotNil(t, view.Value)
	assert.Equal(t, "5000000000000000000", view.Value.String())
	assert.Equal(t, riskengine.TxFailed, view.Status)
	assert.Equal(t, "testnet", view.Network)
}

func TestStoreTxToTxView_UnparsableValueDefaultsToZero(t *testing.T) {
	tx := store.Transaction{Value: "not-a-number", Status: store.TxSuccess}
	view := storeTxToTxView(tx, chainclient.Mainnet)

	assert.Equal(t, "0", view.Value.String())
	assert.Equal(t, riskengine.TxSuccess, view.Status)
}
