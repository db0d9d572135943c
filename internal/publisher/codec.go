package publisher

import "encoding/json"

// The on-chain event carries only indexed topics plus an opaque data
// blob; the payload itself is JSON-encoded the same way the rest of
// the pipeline serialises big integers — as decimal strings — so a
// reader reconstructing SecurityAlert/RiskScore off-chain needs no
// schema beyond the registered one.

type securityAlertWire struct {
	Timestamp       int64  `json:"timestamp"`
	ContractAddress string `json:"contractAddress"`
	TxHash          string `json:"txHash"`
	AlertType       string `json:"alertType"`
	Severity        string `json:"severity"`
	Description     string `json:"description"`
	Value           string `json:"value"`
	GasUsed         uint64 `json:"gasUsed"`
	Confidence      float64 `json:"confidence"`
}

func encodeSecurityAlert(p SecurityAlertPayload) ([]byte, error) {
	value := "0"
	if p.Value != nil {
		value = p.Value.String()
	}
	return json.Marshal(securityAlertWire{
		Timestamp:       p.Timestamp,
		ContractAddress: p.ContractAddress,
		TxHash:          p.TxHash,
		AlertType:       p.AlertType,
		Severity:        p.Severity,
		Description:     p.Description,
		Value:           value,
		GasUsed:         p.GasUsed,
		Confidence:      p.Confidence,
	})
}

func decodeSecurityAlert(data []byte) (securityAlertWire, error) {
	var w securityAlertWire
	err := json.Unmarshal(data, &w)
	return w, err
}

type riskScoreWire struct {
	Timestamp       int64  `json:"timestamp"`
	ContractAddress string `json:"contractAddress"`
	Sender          string `json:"sender"`
	TxHash          string `json:"txHash"`
	RiskScore       int    `json:"riskScore"`
	RiskLevel       string `json:"riskLevel"`
	PrimaryFactor   string `json:"primaryFactor"`
	Value           string `json:"value"`
	GasUsed         uint64 `json:"gasUsed"`
}

func encodeRiskScore(p RiskScorePayload) ([]byte, error) {
	value := "0"
	if p.Value != nil {
		value = p.Value.String()
	}
	return json.Marshal(riskScoreWire{
		Timestamp:       p.Timestamp,
		ContractAddress: p.ContractAddress,
		Sender:          p.Sender,
		TxHash:          p.TxHash,
		RiskScore:       p.RiskScore,
		RiskLevel:       p.RiskLevel,
		PrimaryFactor:   p.PrimaryFactor,
		Value:           value,
		GasUsed:         p.GasUsed,
	})
}

func decodeRiskScore(data []byte) (riskScoreWire, error) {
	var w riskScoreWire
	err := json.Unmarshal(data, &w)
	return w, err
}
