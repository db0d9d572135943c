package publisher

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityAlertRoundTrip(t *testing.T) {
	original := SecurityAlertPayload{
		Timestamp:       1700000000,
		ContractAddress: "0xabc",
		TxHash:          "0xdef",
		AlertType:       "SUSPICIOUS_ACTIVITY",
		Severity:        "MEDIUM",
		Description:     "High value transfer",
		Value:           new(big.Int).Mul(big.NewInt(11), big.NewInt(1e18)),
		GasUsed:         100000,
		Confidence:      0.6,
	}

	encoded, err := encodeSecurityAlert(original)
	require.NoError(t, err)

	decoded, err := decodeSecurityAlert(encoded)
	require.NoError(t, err)

	assert.Equal(t, original.Timestamp, decoded.Timestamp)
	assert.Equal(t, original.ContractAddress, decoded.ContractAddress)
	assert.Equal(t, original.TxHash, decoded.TxHash)
	assert.Equal(t, original.AlertType, decoded.AlertType)
	assert.Equal(t, original.Severity, decoded.Severity)
	assert.Equal(t, original.Description, decoded.Description)
	assert.Equal(t, original.Value.String(), decoded.Value)
	assert.Equal(t, original.GasUsed, decoded.GasUsed)
	assert.Equal(t, original.Confidence, decoded.Confidence)
}

func TestRiskScoreRoundTrip(t *testing.T) {
	original := RiskScorePayload{
		Timestamp:       1700000000,
		ContractAddress: "0xabc",
		Sender:          "0x123",
		TxHash:          "0xdef",
		RiskScore:       85,
		RiskLevel:       "CRITICAL",
		PrimaryFactor:   "Governance attack pattern",
		Value:           new(big.Int).Mul(big.NewInt(50), big.NewInt(1e18)),
		GasUsed:         1_100_000,
	}

	encoded, err := encodeRiskScore(original)
	require.NoError(t, err)

	decoded, err := decodeRiskScore(encoded)
	require.NoError(t, err)

	assert.Equal(t, original.RiskScore, decoded.RiskScore)
	assert.Equal(t, original.RiskLevel, decoded.RiskLevel)
	assert.Equal(t, original.PrimaryFactor, decoded.PrimaryFactor)
	assert.Equal(t, original.Value.String(), decoded.Value)
	assert.Equal(t, original.GasUsed, decoded.GasUsed)
}

func TestSecurityAlertEncode_NilValueDefaultsToZero(t *testing.T) {
	encoded, err := encodeSecurityAlert(SecurityAlertPayload{})
	require.NoError(t, err)

	decoded, err := decodeSecurityAlert(encoded)
	require.NoError(t, err)
	assert.Equal(t, "0", decoded.Value)
}
