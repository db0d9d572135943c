// Package store implements ChainGuard's relational persistence layer
// over GORM/Postgres: the seven entities from the data model, their
// invariants, and the serializable-isolation transaction helper the
// ingester uses to advance a contract's counters.
package store

import "time"

type Network string

const (
	NetworkTestnet Network = "testnet"
	NetworkMainnet Network = "mainnet"
)

type ContractStatus string

const (
	ContractPending   ContractStatus = "pending"
	ContractAnalyzing ContractStatus = "analyzing"
	ContractHealthy   ContractStatus = "healthy"
	ContractWarning   ContractStatus = "warning"
	ContractCritical  ContractStatus = "critical"
	ContractError     ContractStatus = "error"
	ContractStopped   ContractStatus = "stopped"
)

type TxStatus string

const (
	TxSuccess TxStatus = "success"
	TxFailed  TxStatus = "failed"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// User is one per wallet, created at first sign-in and never deleted
// by the core.
type User struct {
	ID        string `gorm:"primaryKey"`
	Address   string `gorm:"uniqueIndex;size:42;not null"`
	CreatedAt time.Time
}

// Contract is globally unique by lowercase address; the core never
// deletes one, only marks it status=error after repeated failure.
type Contract struct {
	ID      string  `gorm:"primaryKey"`
	Address string  `gorm:"uniqueIndex;size:42;not null"`
	Name    *string
	Network Network        `gorm:"size:16;not null"`
	Status  ContractStatus `gorm:"size:16;not null;default:pending"`

	StatusMessage *string
	OwnerID       *string `gorm:"index"`

	TotalTxs  uint64 `gorm:"not null;default:0"`
	FailedTxs uint64 `gorm:"not null;default:0"`
	AvgGas    uint64 `gorm:"not null;default:0"`

	// LastProcessedBlock is an arbitrary-precision block number stored
	// as a decimal string per the wire-format invariant in spec §6.
	LastProcessedBlock string `gorm:"size:78;not null;default:'0'"`

	BaselineGas           uint64
	BaselineGasStdDev     uint64
	BaselineTxFrequency   float64
	BaselineValue         string `gorm:"size:100"` // decimal wei string
	BaselineValueStdDev   string `gorm:"size:100"`
	BaselineLastUpdated   *time.Time

	LastActivity *time.Time
	CreatedAt    time.Time
}

// Transaction is deduplicated by hash: inserting a duplicate is a no-op.
type Transaction struct {
	ID     string `gorm:"primaryKey"`
	Hash   string `gorm:"uniqueIndex;size:66;not null"`
	From   string `gorm:"size:42;not null;index"`
	To     string `gorm:"size:42;index"` // empty for contract deployment
	Value  string `gorm:"size:100;not null"`
	GasUsed uint64 `gorm:"not null"`
	Status TxStatus `gorm:"size:16;not null"`

	BlockNumber string `gorm:"size:78;not null"`
	Timestamp   time.Time

	ContractAddress string `gorm:"size:42;not null;index"`
}

// Finding is one per heuristic firing; many per transaction are allowed.
type Finding struct {
	ID              string `gorm:"primaryKey"`
	ContractAddress string `gorm:"size:42;not null;index"`
	Type            string `gorm:"size:64;not null"`
	Severity        Severity `gorm:"size:16;not null"`
	RuleConfidence  float64

	FunctionName *string
	Line         *int
	CodeSnippet  *string

	Description string `gorm:"not null"`
	Validated   bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
}

// Alert is user-visible; it exists only because a Finding was
// validated true, or because the Supervisor raised an operational
// event directly.
type Alert struct {
	ID              string `gorm:"primaryKey"`
	ContractAddress string `gorm:"size:42;not null;index"`
	Type            string `gorm:"size:64;not null"`
	Severity        Severity `gorm:"size:16;not null"`
	Description     string `gorm:"not null"`
	Recommendation  *string

	Dismissed bool `gorm:"not null;default:false"`

	LLMValid      *bool
	LLMConfidence *float64
	LLMReason     *string
	LLMContext    *string

	CreatedAt time.Time
}

// FailedMonitor is appended when supervision abandons a contract.
type FailedMonitor struct {
	ID              string  `gorm:"primaryKey"`
	ContractAddress string  `gorm:"size:42;not null;index"`
	Network         Network `gorm:"size:16;not null"`
	Reason          string  `gorm:"not null"`
	Attempts        int     `gorm:"not null"`
	LastAttempt     time.Time
	Resolved        bool `gorm:"not null;default:false"`
}

// FunctionGasProfile is keyed by (contractAddress, functionSelector).
type FunctionGasProfile struct {
	ContractAddress string `gorm:"primaryKey;size:42"`
	FunctionSelector string `gorm:"primaryKey;size:10"`
	FunctionName     *string

	AvgGas    uint64
	MinGas    uint64
	MaxGas    uint64
	StdDevGas uint64
	CallCount uint64

	LastUpdated time.Time
}
