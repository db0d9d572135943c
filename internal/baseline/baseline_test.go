package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/store"
)

func txWith(gas uint64, value string) store.Transaction {
	return store.Transaction{GasUsed: gas, Value: value}
}

func TestComputeStats_AvgAndStdDev(t *testing.T) {
	txs := []store.Transaction{
		txWith(100, "1000"),
		txWith(200, "2000"),
		txWith(300, "3000"),
	}

	stats := computeStats(txs)

	assert.Equal(t, uint64(200), stats.avgGas.Uint64())
	assert.Equal(t, uint64(100), stats.minGas)
	assert.Equal(t, uint64(300), stats.maxGas)
	assert.Equal(t, "2000", stats.avgValue.String())
	assert.InDelta(t, 3.0/7.0, stats.txFrequency, 1e-9)
}

func TestComputeStats_UnparsableValueDefaultsToZero(t *testing.T) {
	txs := []store.Transaction{
		txWith(100, "not-a-number"),
		txWith(200, "0"),
	}

	stats := computeStats(txs)

	assert.Equal(t, "0", stats.avgValue.String())
}

func TestComputeStats_ConstantSamplesHaveZeroStdDev(t *testing.T) {
	txs := []store.Transaction{
		txWith(500, "1"),
		txWith(500, "1"),
		txWith(500, "1"),
	}

	stats := computeStats(txs)

	assert.Equal(t, uint64(0), stats.gasStdDev.Uint64())
	assert.Equal(t, uint64(0), stats.valueStdDev.Uint64())
}
