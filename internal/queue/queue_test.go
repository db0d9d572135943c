package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RejectsDuplicateID(t *testing.T) {
	q := New()
	item := &Item{Finding: Finding{ID: "f1"}, Priority: PriorityHigh, EnqueuedAt: time.Now()}

	assert.True(t, q.Enqueue(item))
	assert.False(t, q.Enqueue(item))
	assert.Equal(t, 1, q.Len())
}

func TestQueue_OrdersByPriorityThenEnqueueTime(t *testing.T) {
	q := New()
	now := time.Now()

	low := &Item{Finding: Finding{ID: "low"}, Priority: PriorityLow, EnqueuedAt: now}
	medium := &Item{Finding: Finding{ID: "medium"}, Priority: PriorityMedium, EnqueuedAt: now.Add(time.Second)}
	highLater := &Item{Finding: Finding{ID: "high-later"}, Priority: PriorityHigh, EnqueuedAt: now.Add(2 * time.Second)}
	highEarlier := &Item{Finding: Finding{ID: "high-earlier"}, Priority: PriorityHigh, EnqueuedAt: now.Add(-time.Second)}

	require.True(t, q.Enqueue(low))
	require.True(t, q.Enqueue(medium))
	require.True(t, q.Enqueue(highLater))
	require.True(t, q.Enqueue(highEarlier))

	var order []string
	for {
		item, ok := q.Dequeue()
		if !ok {
			break
		}
		order = append(order, item.Finding.ID)
	}

	assert.Equal(t, []string{"high-earlier", "high-later", "medium", "low"}, order)
}

func TestQueue_ContainsAndClear(t *testing.T) {
	q := New()
	item := &Item{Finding: Finding{ID: "f1"}, Priority: PriorityLow, EnqueuedAt: time.Now()}
	q.Enqueue(item)

	assert.True(t, q.Contains("f1"))
	q.Clear()
	assert.False(t, q.Contains("f1"))
	assert.Equal(t, 0, q.Len())
}

func TestSeverityToPriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, SeverityToPriority("CRITICAL"))
	assert.Equal(t, PriorityMedium, SeverityToPriority("HIGH"))
	assert.Equal(t, PriorityLow, SeverityToPriority("MEDIUM"))
	assert.Equal(t, PriorityLow, SeverityToPriority("LOW"))
	assert.Equal(t, PriorityLow, SeverityToPriority("INFO"))
}
