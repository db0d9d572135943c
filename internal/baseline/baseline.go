// Package baseline implements the Baseline Job (C7): a periodic
// recomputation of each contract's rolling 7-day gas/value/frequency
// statistics from persisted transactions, described in spec.md §4.6.
package baseline

import (
	"context"
	"math/big"
	"time"

	gethlog "github.com/ethereum/go-ethereum/log"

	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/bigmath"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/store"
)

const (
	// runInterval is how often the job recomputes every contract's
	// baseline, in addition to the one run at startup.
	runInterval = 6 * time.Hour

	// window is the rolling sample period statistics are drawn from.
	window = 7 * 24 * time.Hour

	// minSamples is the minimum successful-transaction count required
	// before a contract's baseline is recomputed; below this the
	// contract is skipped for this run.
	minSamples = 10

	// placeholderSelector is the FunctionGasProfile key used until
	// per-selector ABI data is available (spec.md §9 Open Question).
	placeholderSelector = "0x00000000"
)

// Job runs the baseline recomputation on its own ticker, independent
// of ingestion.
type Job struct {
	store *store.Store
}

func New(s *store.Store) *Job {
	return &Job{store: s}
}

// Run blocks until ctx is cancelled, running one pass immediately and
// then every runInterval.
func (j *Job) Run(ctx context.Context) {
	j.runOnce(ctx)

	ticker := time.NewTicker(runInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *Job) runOnce(ctx context.Context) {
	contracts, err := j.store.ListActiveContracts(ctx)
	if err != nil {
		gethlog.Error("baseline: list contracts failed", "component", "baseline", "err", err)
		return
	}

	since := time.Now().Add(-window)
	for _, c := range contracts {
		if err := j.recompute(ctx, c.Address, since); err != nil {
			gethlog.Error("baseline: recompute failed", "component", "baseline", "contract", c.Address, "err", err)
		}
	}
}

func (j *Job) recompute(ctx context.Context, address string, since time.Time) error {
	txs, err := j.store.SuccessfulTransactionsSince(ctx, address, since)
	if err != nil {
		return err
	}
	if len(txs) < minSamples {
		return nil
	}

	stats := computeStats(txs)

	if err := j.store.UpdateBaseline(ctx, address, stats.avgGas.Uint64(), stats.gasStdDev.Uint64(), stats.avgValue.String(), stats.valueStdDev.String(), stats.txFrequency); err != nil {
		return err
	}

	return j.store.UpsertFunctionGasProfile(ctx, store.FunctionGasProfile{
		ContractAddress:  address,
		FunctionSelector: placeholderSelector,
		AvgGas:           stats.avgGas.Uint64(),
		MinGas:           stats.minGas,
		MaxGas:           stats.maxGas,
		StdDevGas:        stats.gasStdDev.Uint64(),
		CallCount:        uint64(len(txs)),
		LastUpdated:      time.Now(),
	})
}

type sampleStats struct {
	avgGas      *big.Int
	gasStdDev   *big.Int
	avgValue    *big.Int
	valueStdDev *big.Int
	minGas      uint64
	maxGas      uint64
	txFrequency float64
}

// computeStats is the pure statistics core of the baseline job,
// factored out so it can be exercised without a database.
func computeStats(txs []store.Transaction) sampleStats {
	gasSamples := make([]*big.Int, len(txs))
	valueSamples := make([]*big.Int, len(txs))
	minGas, maxGas := txs[0].GasUsed, txs[0].GasUsed

	for i, tx := range txs {
		gasSamples[i] = new(big.Int).SetUint64(tx.GasUsed)
		if tx.GasUsed < minGas {
			minGas = tx.GasUsed
		}
		if tx.GasUsed > maxGas {
			maxGas = tx.GasUsed
		}

		v, ok := new(big.Int).SetString(tx.Value, 10)
		if !ok {
			v = big.NewInt(0)
		}
		valueSamples[i] = v
	}

	avgGas := bigmath.Mean(gasSamples)
	avgValue := bigmath.Mean(valueSamples)
	return sampleStats{
		avgGas:      avgGas,
		gasStdDev:   bigmath.StdDev(gasSamples, avgGas),
		avgValue:    avgValue,
		valueStdDev: bigmath.StdDev(valueSamples, avgValue),
		minGas:      minGas,
		maxGas:      maxGas,
		txFrequency: float64(len(txs)) / 7.0,
	}
}
