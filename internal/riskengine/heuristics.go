package riskengine

import (
	"math/big"
	"strings"
	"time"
)

var (
	oneEth        = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	tenEth        = new(big.Int).Mul(big.NewInt(10), oneEth)
	twentyFiveEth = new(big.Int).Mul(big.NewInt(25), oneEth)
	hundredEth    = new(big.Int).Mul(big.NewInt(100), oneEth)
)

func isZeroValue(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

// evalH1 scores the flash-loan composite heuristic. It only fires
// once the weighted total reaches 50; below that it contributes
// nothing even though individual terms may be non-zero.
func evalH1(tx TxView) (Finding, bool) {
	term1 := 0
	if tx.Value != nil && tx.Value.Cmp(tenEth) > 0 {
		multiplier := new(big.Int).Div(tx.Value, tenEth)
		term1 = minInt(30, 10+5*int(multiplier.Int64()))
	}

	term2 := 0
	if tx.GasUsed > 300_000 {
		term2 = minInt(20, int((tx.GasUsed-300_000)/10_000))
	}

	term3 := 0
	if tx.GasUsed > 1_000_000 {
		term3 = 25
	}

	term4 := 0
	if tx.Status == TxFailed && tx.Value != nil && tx.Value.Cmp(hundredEth) > 0 {
		term4 = 15
	}

	total := term1 + term2 + term3 + term4
	if total < 50 {
		return Finding{}, false
	}

	score := minInt(100, total)
	return Finding{
		Type:           "FLASH_LOAN_ATTACK",
		Severity:       severityForScore(score),
		RuleConfidence: 0.8,
		Description:    "Flash-loan pattern detected",
		Score:          score,
	}, true
}

func severityForScore(score int) Severity {
	switch {
	case score >= 80:
		return SeverityCritical
	case score >= 65:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// evalH2 fires on the 6th transaction from the same sender within the
// window, not the 5th.
func (e *Engine) evalH2(tx TxView, now time.Time) (Finding, bool) {
	if tx.From == "" {
		return Finding{}, false
	}
	count := e.senderFreq.record(strings.ToLower(tx.From), now)
	if count <= 5 {
		return Finding{}, false
	}
	return Finding{
		Type:           "HIGH_FREQUENCY_BOT",
		Severity:       SeverityMedium,
		RuleConfidence: 0.7,
		Description:    "High-frequency sender",
		Score:          45,
	}, true
}

// evalH3 fires on the 11th transaction to the same contract within the
// window, not the 10th.
func (e *Engine) evalH3(tx TxView, now time.Time) (Finding, bool) {
	if tx.To == "" {
		return Finding{}, false
	}
	count := e.contractFreq.record(strings.ToLower(tx.To), now)
	if count <= 10 {
		return Finding{}, false
	}
	return Finding{
		Type:           "DDOS_ATTACK",
		Severity:       SeverityHigh,
		RuleConfidence: 0.7,
		Description:    "High-frequency traffic to contract",
		Score:          70,
	}, true
}

func evalH4(tx TxView) (Finding, bool) {
	if tx.Value == nil || tx.Value.Cmp(tenEth) <= 0 {
		return Finding{}, false
	}
	return Finding{
		Type:           "SUSPICIOUS_ACTIVITY",
		Severity:       SeverityMedium,
		RuleConfidence: 0.6,
		Description:    "High value transfer",
		Score:          40,
	}, true
}

func evalH5(tx TxView) (Finding, bool) {
	if tx.Status != TxFailed || tx.GasUsed <= 200_000 {
		return Finding{}, false
	}
	return Finding{
		Type:           "SUSPICIOUS_ACTIVITY",
		Severity:       SeverityLow,
		RuleConfidence: 0.5,
		Description:    "Failed high-gas transaction",
		Score:          25,
	}, true
}

func evalH6(tx TxView) (Finding, bool) {
	if tx.GasUsed <= 1_000_000 || !isZeroValue(tx.Value) {
		return Finding{}, false
	}
	return Finding{
		Type:           "SPAM_ATTACK",
		Severity:       SeverityHigh,
		RuleConfidence: 0.7,
		Description:    "Spam or state-bloat transaction",
		Score:          65,
	}, true
}

func evalH7(tx TxView) (Finding, bool) {
	if tx.Value == nil || tx.Value.Cmp(twentyFiveEth) <= 0 || tx.GasUsed <= 500_000 {
		return Finding{}, false
	}
	return Finding{
		Type:           "GOVERNANCE_ATTACK",
		Severity:       SeverityCritical,
		RuleConfidence: 0.9,
		Description:    "Governance attack pattern",
		Score:          85,
	}, true
}

func evalH8(tx TxView) (Finding, bool) {
	if tx.To != "" {
		return Finding{}, false
	}
	return Finding{
		Type:           "CONTRACT_DEPLOYMENT",
		Severity:       SeverityInfo,
		RuleConfidence: 1.0,
		Description:    "Contract deployment",
		Score:          0,
	}, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
