package ingester

import (
	"context"
	"time"

	gethlog "github.com/ethereum/go-ethereum/log"

	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/publisher"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/queue"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/store"
)

// riskScorePublishFloor is the minimum composite score at which a
// RiskScore record is published on-chain, per spec.md §4.5.
const riskScorePublishFloor = 30

// processTransaction is the shared per-transaction downstream
// pipeline used by both the live watch loop and the backfill replay.
// Order: evaluate -> push "transaction" -> for each finding: persist,
// push "new_finding", enqueue validation, publish SecurityAlert ->
// push "new_findings" -> publish RiskScore (score >= 30) -> push
// "contract_update". Pushes are not held back until the publishes
// finish: the "transaction" push precedes finding persistence, and each
// "new_finding" push precedes that finding's enqueue and publish.
// Contract counters are not touched here; the store advances them when
// the transaction row is inserted, before this runs.
func (ing *Ingester) processTransaction(ctx context.Context, tx store.Transaction) error {
	view := storeTxToTxView(tx, ing.network)
	result := ing.engine.Evaluate(view, time.Now())

	ing.sink.Emit("transaction", map[string]any{
		"contractAddress": ing.address,
		"hash":            tx.Hash,
		"riskScore":       result.RiskScore,
		"riskLevel":       result.RiskLevel,
	})

	if len(result.Findings) == 0 {
		return nil
	}

	findingIDs := make([]string, 0, len(result.Findings))
	for _, f := range result.Findings {
		findingID := newID()
		findingIDs = append(findingIDs, findingID)

		storeFinding := store.Finding{
			ID:              findingID,
			ContractAddress: ing.address,
			Type:            f.Type,
			Severity:        store.Severity(f.Severity),
			RuleConfidence:  f.RuleConfidence,
			Description:     f.Description,
			CreatedAt:       time.Now(),
		}
		if err := ing.store.CreateFinding(ctx, storeFinding); err != nil {
			gethlog.Error("failed to persist finding", "component", "ingester", "contract", ing.address, "hash", tx.Hash, "err", err)
			continue
		}

		ing.sink.Emit("new_finding", map[string]any{
			"contractAddress": ing.address,
			"findingId":       findingID,
			"type":            f.Type,
			"severity":        f.Severity,
		})

		item := &queue.Item{
			Finding: queue.Finding{
				ID:              findingID,
				ContractAddress: ing.address,
				Type:            f.Type,
				RuleConfidence:  f.RuleConfidence,
			},
			Priority:   queue.SeverityToPriority(string(f.Severity)),
			EnqueuedAt: time.Now(),
		}
		ing.queue.Enqueue(item)

		ing.pub.PublishSecurityAlert(ctx, publisher.SecurityAlertPayload{
			Timestamp:       time.Now().Unix(),
			ContractAddress: ing.address,
			TxHash:          tx.Hash,
			AlertType:       f.Type,
			Severity:        string(f.Severity),
			Description:     f.Description,
			Value:           view.Value,
			GasUsed:         tx.GasUsed,
			Confidence:      f.RuleConfidence,
		})
	}

	ing.sink.Emit("new_findings", map[string]any{
		"contractAddress": ing.address,
		"findingIds":      findingIDs,
	})

	if result.RiskScore >= riskScorePublishFloor {
		ing.pub.PublishRiskScore(ctx, publisher.RiskScorePayload{
			Timestamp:       time.Now().Unix(),
			ContractAddress: ing.address,
			Sender:          tx.From,
			TxHash:          tx.Hash,
			RiskScore:       result.RiskScore,
			RiskLevel:       string(result.RiskLevel),
			PrimaryFactor:   result.PrimaryFactor,
			Value:           view.Value,
			GasUsed:         tx.GasUsed,
		})
	}

	ing.sink.Emit("contract_update", map[string]any{
		"contractAddress": ing.address,
		"primaryFactor":   result.PrimaryFactor,
	})

	return nil
}
