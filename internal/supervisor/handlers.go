package supervisor

import (
	"context"
	"time"

	gethlog "github.com/ethereum/go-ethereum/log"

	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/chainclient"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/queue"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/store"
)

// eventSink adapts the Supervisor's push bus into a per-contract
// ingester.EventSink, tallying coarse per-contract counters for
// EventStats alongside the actual push emit.
type eventSink struct {
	s       *Supervisor
	address string
}

func (e eventSink) Emit(topic string, payload any) {
	e.s.mu.Lock()
	if c, ok := e.s.counters[e.address]; ok {
		switch topic {
		case "transaction":
			c.transactions++
		case "new_finding":
			c.findings++
		}
	}
	e.s.mu.Unlock()

	e.s.bus.Emit(topic, payload)
}

// OnIngesterFailed implements ingester.FailureHandler: the per-contract
// bring-up budget was exhausted, per spec.md §4.7's retry-exhaustion
// transition to error/stopped plus a CRITICAL operational alert.
func (s *Supervisor) OnIngesterFailed(address string, network chainclient.Network, reason string) {
	s.mu.Lock()
	if cb, ok := s.controls[address]; ok {
		cb.failed = true
	}
	s.mu.Unlock()

	if err := s.store.CreateAlert(context.Background(), store.Alert{
		ID:              address + "-monitoring-failure-" + time.Now().Format(time.RFC3339Nano),
		ContractAddress: address,
		Type:            "MONITORING_FAILURE",
		Severity:        store.SeverityCritical,
		Description:     reason,
		CreatedAt:       time.Now(),
	}); err != nil {
		gethlog.Error("supervisor: failed to persist monitoring_failure alert", "component", "supervisor", "contract", address, "err", err)
	}
}

// OnValid implements queue.ResultHandler: the validator confirmed a
// finding, so it is promoted to a user-visible Alert.
func (s *Supervisor) OnValid(ctx context.Context, item *queue.Item, resp queue.ValidationResponse) error {
	if s.isPaused() {
		return nil
	}
	if err := s.store.MarkFindingValidated(ctx, item.Finding.ID); err != nil {
		return err
	}

	s.mu.Lock()
	if c, ok := s.counters[item.Finding.ContractAddress]; ok {
		c.alerts++
	}
	s.mu.Unlock()

	severity := store.Severity(resp.Severity)
	switch severity {
	case store.SeverityCritical, store.SeverityHigh, store.SeverityMedium, store.SeverityLow, store.SeverityInfo:
	default:
		severity = severityFromConfidence(resp.Confidence)
	}

	var recommendation *string
	if resp.Recommendation != "" {
		recommendation = &resp.Recommendation
	}
	var llmContext *string
	if resp.AdditionalContext != "" {
		llmContext = &resp.AdditionalContext
	}

	return s.store.CreateAlert(ctx, store.Alert{
		ID:              item.Finding.ID + "-alert",
		ContractAddress: item.Finding.ContractAddress,
		Type:            item.Finding.Type,
		Severity:        severity,
		Description:     resp.Reason,
		Recommendation:  recommendation,
		LLMValid:        &resp.Valid,
		LLMConfidence:   &resp.Confidence,
		LLMReason:       &resp.Reason,
		LLMContext:      llmContext,
		CreatedAt:       time.Now(),
	})
}

// OnInvalid implements queue.ResultHandler: the validator rejected the
// finding; it is marked validated (resolved) but no Alert is created.
func (s *Supervisor) OnInvalid(ctx context.Context, item *queue.Item) error {
	if s.isPaused() {
		return nil
	}
	return s.store.MarkFindingValidated(ctx, item.Finding.ID)
}

// OnDropped implements queue.ResultHandler: the validator call
// exhausted its retry budget; the finding is left unvalidated.
func (s *Supervisor) OnDropped(ctx context.Context, item *queue.Item) error {
	if s.isPaused() {
		return nil
	}
	gethlog.Warn("supervisor: finding dropped after retry exhaustion", "component", "supervisor", "findingId", item.Finding.ID)
	return nil
}

func severityFromConfidence(confidence float64) store.Severity {
	switch {
	case confidence >= 0.85:
		return store.SeverityCritical
	case confidence >= 0.65:
		return store.SeverityHigh
	case confidence >= 0.4:
		return store.SeverityMedium
	default:
		return store.SeverityLow
	}
}
