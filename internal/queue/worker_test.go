package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	resp ValidationResponse
	err  error
	n    int
}

func (f *fakeValidator) Validate(ctx context.Context, req ValidationRequest) (ValidationResponse, error) {
	f.n++
	return f.resp, f.err
}

type fakeHandler struct {
	validCalls   []*Item
	invalidCalls []*Item
	droppedCalls []*Item
}

func (h *fakeHandler) OnValid(ctx context.Context, item *Item, resp ValidationResponse) error {
	h.validCalls = append(h.validCalls, item)
	return nil
}
func (h *fakeHandler) OnInvalid(ctx context.Context, item *Item) error {
	h.invalidCalls = append(h.invalidCalls, item)
	return nil
}
func (h *fakeHandler) OnDropped(ctx context.Context, item *Item) error {
	h.droppedCalls = append(h.droppedCalls, item)
	return nil
}

func TestWorker_ProcessValid_CreatesAlertAndMarksValidated(t *testing.T) {
	q := New()
	v := &fakeValidator{resp: ValidationResponse{Valid: true, Severity: "HIGH"}}
	h := &fakeHandler{}
	w := NewWorker(q, v, h)

	item := &Item{Finding: Finding{ID: "f1"}, Priority: PriorityHigh, EnqueuedAt: time.Now()}
	w.process(context.Background(), item)

	require.Len(t, h.validCalls, 1)
	assert.Equal(t, "f1", h.validCalls[0].Finding.ID)
	assert.Equal(t, 1, w.Stats().Completed)
}

func TestWorker_ProcessInvalid_MarksValidatedNoAlert(t *testing.T) {
	q := New()
	v := &fakeValidator{resp: ValidationResponse{Valid: false}}
	h := &fakeHandler{}
	w := NewWorker(q, v, h)

	item := &Item{Finding: Finding{ID: "f1"}, Priority: PriorityLow, EnqueuedAt: time.Now()}
	w.process(context.Background(), item)

	assert.Len(t, h.invalidCalls, 1)
	assert.Empty(t, h.validCalls)
}

func TestWorker_RetriesThenDropsAfterThreeAttempts(t *testing.T) {
	q := New()
	v := &fakeValidator{err: assertErr("validator unavailable")}
	h := &fakeHandler{}
	w := NewWorker(q, v, h)

	item := &Item{Finding: Finding{ID: "f1"}, Priority: PriorityMedium, EnqueuedAt: time.Now()}

	// Each failed attempt requeues the item until maxAttempts is hit.
	for i := 0; i < maxAttempts; i++ {
		w.process(context.Background(), item)
	}

	require.Len(t, h.droppedCalls, 1)
	assert.Equal(t, maxAttempts, item.Attempts)
	assert.Equal(t, 1, w.Stats().Failed)
}

func TestWorker_BudgetExhaustion_PausesForDay(t *testing.T) {
	q := New()
	v := &fakeValidator{resp: ValidationResponse{Valid: true}}
	h := &fakeHandler{}
	w := NewWorker(q, v, h)
	w.costToday = dailyBudget - costPerItem // one item away from the cap

	item := &Item{Finding: Finding{ID: "f1"}, Priority: PriorityLow, EnqueuedAt: time.Now()}
	w.process(context.Background(), item)

	assert.True(t, w.Stats().Paused)
}

func TestWorker_ResetIfNewDay(t *testing.T) {
	q := New()
	w := NewWorker(q, &fakeValidator{}, &fakeHandler{})
	w.costToday = 5
	w.paused = true
	w.dayStart = startOfDay(time.Now()).Add(-48 * time.Hour)

	w.resetIfNewDay(time.Now())

	assert.Zero(t, w.costToday)
	assert.False(t, w.paused)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
