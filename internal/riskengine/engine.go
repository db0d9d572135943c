package riskengine

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// frequencyWindow is the trailing span H2/H3 count transactions over.
const frequencyWindow = 60 * time.Second

// Engine evaluates transactions against heuristics H1-H8 and owns the
// bounded frequency state H2/H3 depend on. An Engine is safe for
// concurrent use.
type Engine struct {
	senderFreq   *slidingWindowTracker
	contractFreq *slidingWindowTracker
}

func NewEngine() *Engine {
	return &Engine{
		senderFreq:   newSlidingWindowTracker(frequencyWindow),
		contractFreq: newSlidingWindowTracker(frequencyWindow),
	}
}

// Evaluate scores tx against every heuristic and returns the composite
// result. The composite score is the maximum of the fired heuristics'
// contributions, not their sum.
func (e *Engine) Evaluate(tx TxView, now time.Time) Result {
	var findings []Finding

	if f, ok := evalH1(tx); ok {
		findings = append(findings, f)
	}
	if f, ok := e.evalH2(tx, now); ok {
		findings = append(findings, f)
	}
	if f, ok := e.evalH3(tx, now); ok {
		findings = append(findings, f)
	}
	if f, ok := evalH4(tx); ok {
		findings = append(findings, f)
	}
	if f, ok := evalH5(tx); ok {
		findings = append(findings, f)
	}
	if f, ok := evalH6(tx); ok {
		findings = append(findings, f)
	}
	if f, ok := evalH7(tx); ok {
		findings = append(findings, f)
	}
	if f, ok := evalH8(tx); ok {
		findings = append(findings, f)
	}

	return compose(findings)
}

func compose(findings []Finding) Result {
	if len(findings) == 0 {
		return Result{RiskScore: 0, RiskLevel: levelFor(0)}
	}

	top := findings[0]
	for _, f := range findings[1:] {
		if f.Score > top.Score {
			top = f
		}
	}

	return Result{
		RiskScore:     top.Score,
		RiskLevel:     levelFor(top.Score),
		PrimaryFactor: top.Description,
		Findings:      findings,
	}
}

func levelFor(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskLevelCritical
	case score >= 65:
		return RiskLevelHigh
	case score >= 30:
		return RiskLevelMedium
	case score >= 10:
		return RiskLevelLow
	default:
		return RiskLevelSafe
	}
}

// RunSweeper drops stale frequency-window entries every 5 minutes
// until ctx is cancelled. Run it once per Engine alongside the
// ingesters that feed it.
func (e *Engine) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			e.senderFreq.sweep(t)
			e.contractFreq.sweep(t)
			log.Debug("frequency window sweep complete", "component", "riskengine")
		}
	}
}
