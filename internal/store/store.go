package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var serializableTxOptions = &sql.TxOptions{Isolation: sql.LevelSerializable}

// Store wraps the GORM/Postgres connection and the serializable-
// isolation transaction helper the ingester uses to advance a
// contract's counters.
type Store struct {
	db *gorm.DB
}

// Open connects to databaseURL and migrates the schema.
func Open(databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	if err := db.AutoMigrate(
		&User{}, &Contract{}, &Transaction{}, &Finding{}, &Alert{},
		&FailedMonitor{}, &FunctionGasProfile{},
	); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) DB() *gorm.DB { return s.db }

// ErrWriteConflict is returned by WithSerializable when the database
// reports a serialization failure (Postgres SQLSTATE 40001).
var ErrWriteConflict = errors.New("store: write conflict")

// WithSerializable runs fn inside a SERIALIZABLE transaction, retrying
// once after a 100-300ms jitter on write conflict, per spec §5/§7.
func (s *Store) WithSerializable(ctx context.Context, fn func(tx *gorm.DB) error) error {
	run := func() error {
		return s.db.WithContext(ctx).Transaction(fn, serializableTxOptions)
	}

	err := run()
	if err == nil {
		return nil
	}
	if !isSerializationFailure(err) {
		return err
	}

	jitter := time.Duration(100+rand.Intn(200)) * time.Millisecond
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Warn("retrying after write conflict", "component", "store")
	if err := run(); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %v", ErrWriteConflict, err)
		}
		return err
	}
	return nil
}

func isSerializationFailure(err error) bool {
	// Postgres reports serialization failures as SQLSTATE 40001; the
	// pgx driver surfaces it in the error string when wrapped, so match
	// defensively rather than depending on pgconn internals here.
	return err != nil && (errors.Is(err, ErrWriteConflict) ||
		containsCode(err.Error(), "40001"))
}

func containsCode(s, code string) bool {
	for i := 0; i+len(code) <= len(s); i++ {
		if s[i:i+len(code)] == code {
			return true
		}
	}
	return false
}

// UpsertTransactionAndAdvance inserts tx if its hash is new, and if so
// atomically advances the owning Contract's totalTxs/failedTxs,
// avgGas and lastProcessedBlock. Returns inserted=false for a
// duplicate hash with no side effects, matching the dedup invariant.
func (s *Store) UpsertTransactionAndAdvance(ctx context.Context, tx Transaction, blockNumber string) (inserted bool, err error) {
	err = s.WithSerializable(ctx, func(dbTx *gorm.DB) error {
		res := dbTx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash"}},
			DoNothing: true,
		}).Create(&tx)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			inserted = false
			return nil
		}
		inserted = true

		var c Contract
		if err := dbTx.Where("address = ?", tx.ContractAddress).First(&c).Error; err != nil {
			return err
		}

		c.TotalTxs++
		if tx.Status == TxFailed {
			c.FailedTxs++
		}
		c.AvgGas = runningAverage(c.AvgGas, c.TotalTxs-1, tx.GasUsed)
		if compareBigDecimal(blockNumber, c.LastProcessedBlock) > 0 {
			c.LastProcessedBlock = blockNumber
		}
		now := time.Now()
		c.LastActivity = &now

		return dbTx.Model(&Contract{}).Where("address = ?", c.Address).Updates(map[string]any{
			"total_txs":             c.TotalTxs,
			"failed_txs":            c.FailedTxs,
			"avg_gas":               c.AvgGas,
			"last_processed_block":  c.LastProcessedBlock,
			"last_activity":         c.LastActivity,
		}).Error
	})
	return inserted, err
}

// runningAverage implements newAvg = round((oldAvg*oldCount + newGas) / (oldCount+1)).
func runningAverage(oldAvg uint64, oldCount uint64, newGas uint64) uint64 {
	sum := oldAvg*oldCount + newGas
	count := oldCount + 1
	return (sum + count/2) / count // round to nearest
}

// compareBigDecimal compares two non-negative base-10 integer strings
// without parsing into a fixed-width type, since block numbers are
// arbitrary-precision per spec §3.
func compareBigDecimal(a, b string) int {
	a, b = trimLeadingZeros(a), trimLeadingZeros(b)
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func trimLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}
