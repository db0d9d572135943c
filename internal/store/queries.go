package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

func (s *Store) ContractByAddress(ctx context.Context, address string) (*Contract, error) {
	var c Contract
	if err := s.db.WithContext(ctx).Where("address = ?", address).First(&c).Error; err != nil {
		return nil, fmt.Errorf("store: contract lookup: %w", err)
	}
	return &c, nil
}

func (s *Store) ListActiveContracts(ctx context.Context) ([]Contract, error) {
	var cs []Contract
	if err := s.db.WithContext(ctx).
		Where("status <> ?", ContractStopped).
		Find(&cs).Error; err != nil {
		return nil, fmt.Errorf("store: list contracts: %w", err)
	}
	return cs, nil
}

func (s *Store) UpdateContractStatus(ctx context.Context, address string, status ContractStatus, message *string) error {
	return s.db.WithContext(ctx).Model(&Contract{}).
		Where("address = ?", address).
		Updates(map[string]any{"status": status, "status_message": message}).Error
}

// CreateFinding persists one finding for a heuristic firing.
func (s *Store) CreateFinding(ctx context.Context, f Finding) error {
	return s.db.WithContext(ctx).Create(&f).Error
}

// MarkFindingValidated flips a finding's validated bit once the queue
// has resolved it, whether or not the validator accepted it.
func (s *Store) MarkFindingValidated(ctx context.Context, findingID string) error {
	return s.db.WithContext(ctx).Model(&Finding{}).
		Where("id = ?", findingID).
		Update("validated", true).Error
}

// CreateAlert persists a user-visible alert. Used both for validator-
// confirmed findings and for Supervisor-raised operational events.
func (s *Store) CreateAlert(ctx context.Context, a Alert) error {
	return s.db.WithContext(ctx).Create(&a).Error
}

// InsertFailedMonitor records that supervision has abandoned a contract.
func (s *Store) InsertFailedMonitor(ctx context.Context, fm FailedMonitor) error {
	return s.db.WithContext(ctx).Create(&fm).Error
}

// UpdateBaseline writes the Baseline Job's per-contract statistics.
func (s *Store) UpdateBaseline(ctx context.Context, address string, avgGas, gasStdDev uint64, avgValue, valueStdDev string, txFrequency float64) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&Contract{}).
		Where("address = ?", address).
		Updates(map[string]any{
			"baseline_gas":            avgGas,
			"baseline_gas_std_dev":    gasStdDev,
			"baseline_value":          avgValue,
			"baseline_value_std_dev":  valueStdDev,
			"baseline_tx_frequency":   txFrequency,
			"baseline_last_updated":   now,
		}).Error
}

// SuccessfulTransactionsSince returns a contract's successful
// transactions with timestamp >= since, used by the Baseline Job.
func (s *Store) SuccessfulTransactionsSince(ctx context.Context, contractAddress string, since time.Time) ([]Transaction, error) {
	var txs []Transaction
	if err := s.db.WithContext(ctx).
		Where("contract_address = ? AND status = ? AND timestamp >= ?", contractAddress, TxSuccess, since).
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("store: baseline query: %w", err)
	}
	return txs, nil
}

// UpsertFunctionGasProfile updates (or creates) the profile keyed by
// (contractAddress, functionSelector).
func (s *Store) UpsertFunctionGasProfile(ctx context.Context, p FunctionGasProfile) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contract_address"}, {Name: "function_selector"}},
		DoUpdates: clause.AssignmentColumns([]string{"function_name", "avg_gas", "min_gas", "max_gas", "std_dev_gas", "call_count", "last_updated"}),
	}).Create(&p).Error
}

// UpdateAlertDescription overwrites an alert's description in place,
// used by the ingester's backfill-progress SYSTEM alert.
func (s *Store) UpdateAlertDescription(ctx context.Context, alertID, description string) error {
	return s.db.WithContext(ctx).Model(&Alert{}).
		Where("id = ?", alertID).
		Update("description", description).Error
}

// DeleteAlert removes an alert, used once the backfill-progress
// SYSTEM alert's job is done.
func (s *Store) DeleteAlert(ctx context.Context, alertID string) error {
	return s.db.WithContext(ctx).Where("id = ?", alertID).Delete(&Alert{}).Error
}

// TransactionExists reports whether hash is already persisted, used
// by the ingester to skip downstream work before any side effects.
func (s *Store) TransactionExists(ctx context.Context, hash string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Transaction{}).Where("hash = ?", hash).Count(&count).Error; err != nil {
		return false, fmt.Errorf("store: existence check: %w", err)
	}
	return count > 0, nil
}
