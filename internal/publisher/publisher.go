// Package publisher emits ChainGuard's two on-chain event schemas
// (SecurityAlert, RiskScore) through the monitored network's oracle
// contract. Grounded on the pack's on-chain-oracle publish idiom:
// nonce + gas-price fetch, ABI-encoded call, signed transaction
// submit, best-effort on failure.
package publisher

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
)

// chainGuardOracleABI is the ABI for the data-registry + event-emit
// surface both schemas publish through: an opaque (schemaId,
// publisher, dataId) -> data store, plus a generic indexed-topic
// event emit.
const chainGuardOracleABI = `[
	{
		"inputs": [
			{"name": "schemaId", "type": "bytes32"},
			{"name": "dataId", "type": "bytes32"},
			{"name": "topic1", "type": "bytes32"},
			{"name": "topic2", "type": "bytes32"},
			{"name": "data", "type": "bytes"}
		],
		"name": "publishRecord",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "schemaId", "type": "bytes32"}, {"name": "schemaJSON", "type": "string"}],
		"name": "registerSchema",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// Schema names registered once at Supervisor construction.
const (
	SchemaSecurityAlert = "SecurityAlert"
	SchemaRiskScore     = "RiskScore"
)

// SecurityAlertPayload is emitted for every Finding produced.
type SecurityAlertPayload struct {
	Timestamp       int64
	ContractAddress string
	TxHash          string
	AlertType       string
	Severity        string
	Description     string
	Value           *big.Int
	GasUsed         uint64
	Confidence      float64
}

// RiskScorePayload is emitted only when riskScore >= 30.
type RiskScorePayload struct {
	Timestamp       int64
	ContractAddress string
	Sender          string
	TxHash          string
	RiskScore       int
	RiskLevel       string
	PrimaryFactor   string
	Value           *big.Int
	GasUsed         uint64
}

// Publisher submits the two event schemas to the oracle contract.
// Publishing is disabled (a no-op, never an error) when no signing
// key is configured, so ingestion proceeds regardless.
type Publisher struct {
	mu sync.Mutex

	client       *ethclient.Client
	contractAddr common.Address
	contractABI  abi.ABI
	privateKey   *ecdsa.PrivateKey
	fromAddress  common.Address
	chainID      *big.Int

	enabled bool

	schemaIDs map[string]common.Hash

	totalPublished int
	totalFailed    int
}

type Config struct {
	RPCURL          string
	ContractAddress string
	PrivateKeyHex   string // hex-encoded; "" disables publishing
	ChainID         int64
}

// New connects to the chain (always, so reads still work) and enables
// signing only when a private key is supplied.
func New(cfg Config) (*Publisher, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("publisher: dial: %w", err)
	}

	contractABI, err := abi.JSON(strings.NewReader(chainGuardOracleABI))
	if err != nil {
		return nil, fmt.Errorf("publisher: parse abi: %w", err)
	}

	p := &Publisher{
		client:       client,
		contractAddr: common.HexToAddress(cfg.ContractAddress),
		contractABI:  contractABI,
		chainID:      big.NewInt(cfg.ChainID),
		schemaIDs:    make(map[string]common.Hash),
	}

	if cfg.PrivateKeyHex == "" {
		log.Info("publisher disabled: no signing key configured", "component", "publisher")
		return p, nil
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("publisher: invalid private key: %w", err)
	}
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("publisher: could not derive public key")
	}

	p.privateKey = key
	p.fromAddress = crypto.PubkeyToAddress(*pub)
	p.enabled = true
	return p, nil
}

// Enabled reports whether signing is configured.
func (p *Publisher) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// RegisterSchemas registers both schemas if not already present.
// Failure is logged but never stops ingestion — publish attempts
// simply skip when a schema id is unset.
func (p *Publisher) RegisterSchemas(ctx context.Context) {
	for _, name := range []string{SchemaSecurityAlert, SchemaRiskScore} {
		id := schemaID(name)
		if err := p.registerSchema(ctx, name, id); err != nil {
			log.Warn("failed to register schema", "component", "publisher", "schema", name, "err", err)
			continue
		}
		p.mu.Lock()
		p.schemaIDs[name] = id
		p.mu.Unlock()
	}
}

func schemaID(name string) common.Hash {
	return crypto.Keccak256Hash([]byte(name))
}

func (p *Publisher) registerSchema(ctx context.Context, name string, id common.Hash) error {
	if !p.Enabled() {
		return nil
	}
	data, err := p.contractABI.Pack("registerSchema", id, name)
	if err != nil {
		return fmt.Errorf("encode registerSchema: %w", err)
	}
	_, err = p.submit(ctx, data, 80_000)
	return err
}

// PublishSecurityAlert emits a SecurityAlert event for a Finding. A
// missing schema id or signing key is a silent skip, per spec.md §7's
// schema-publishing error policy. Per spec.md §4.5 the indexed topics
// are (contractAddress, publisher) — the signing identity, not the
// transaction hash, which already travels in the JSON payload.
func (p *Publisher) PublishSecurityAlert(ctx context.Context, payload SecurityAlertPayload) {
	p.publish(ctx, SchemaSecurityAlert, payload.ContractAddress, p.fromAddress.Hex(), func() ([]byte, error) {
		return encodeSecurityAlert(payload)
	})
}

// PublishRiskScore emits a RiskScore event. Callers must only invoke
// this when riskScore >= 30, per spec.md §4.5; the publisher itself
// does not re-check the threshold.
func (p *Publisher) PublishRiskScore(ctx context.Context, payload RiskScorePayload) {
	p.publish(ctx, SchemaRiskScore, payload.ContractAddress, payload.Sender, func() ([]byte, error) {
		return encodeRiskScore(payload)
	})
}

func (p *Publisher) publish(ctx context.Context, schema, topic1, topic2 string, encode func() ([]byte, error)) {
	if !p.Enabled() {
		return
	}

	p.mu.Lock()
	id, ok := p.schemaIDs[schema]
	p.mu.Unlock()
	if !ok {
		log.Debug("skipping publish: schema not registered", "component", "publisher", "schema", schema)
		return
	}

	data, err := encode()
	if err != nil {
		log.Error("failed to encode payload", "component", "publisher", "schema", schema, "err", err)
		return
	}

	dataID := make([]byte, 32)
	if _, err := rand.Read(dataID); err != nil {
		log.Error("failed to generate data id", "component", "publisher", "err", err)
		return
	}

	callData, err := p.contractABI.Pack(
		"publishRecord",
		id,
		common.BytesToHash(dataID),
		common.HexToHash(topic1),
		padTopic(topic2),
		data,
	)
	if err != nil {
		log.Error("failed to encode publish call", "component", "publisher", "schema", schema, "err", err)
		return
	}

	if _, err := p.submit(ctx, callData, 150_000); err != nil {
		p.mu.Lock()
		p.totalFailed++
		p.mu.Unlock()
		log.Warn("publish failed", "component", "publisher", "schema", schema, "err", err)
		return
	}

	p.mu.Lock()
	p.totalPublished++
	p.mu.Unlock()
}

func padTopic(s string) common.Hash {
	if common.IsHexAddress(s) {
		return common.BytesToHash(common.HexToAddress(s).Bytes())
	}
	return common.HexToHash(s)
}

func (p *Publisher) submit(ctx context.Context, data []byte, gasLimit uint64) (*types.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	nonce, err := p.client.PendingNonceAt(ctx, p.fromAddress)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, p.contractAddr, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(p.chainID), p.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	if err := p.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	return signed, nil
}

// Stats returns cumulative publish counters.
func (p *Publisher) Stats() (published, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalPublished, p.totalFailed
}

func (p *Publisher) Close() error {
	p.client.Close()
	return nil
}
