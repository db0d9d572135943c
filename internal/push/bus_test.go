package push

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_EmitDeliversToSubscribers(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.Emit("transaction", map[string]any{"hash": "0xabc"})

	select {
	case ev := <-ch:
		assert.Equal(t, "transaction", ev.Topic)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe()
	unsubscribe()

	b.Emit("transaction", nil)

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestBus_MultipleSubscribersEachReceive(t *testing.T) {
	b := New()
	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	b.Emit("new_finding", nil)

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "new_finding", ev.Topic)
		case <-time.After(time.Second):
			t.Fatal("event not delivered to one subscriber")
		}
	}
}

func TestBus_StatsTracksClientsAndEmitted(t *testing.T) {
	b := New()
	_, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.Emit("transaction", nil)
	b.Emit("transaction", nil)

	clients, emitted, _ := b.Stats()
	require.Equal(t, 1, clients)
	assert.Equal(t, uint64(2), emitted)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ev := Event{Topic: "contract_update", Payload: map[string]any{"contractAddress": "0xabc"}, Timestamp: 1700000000}

	data, err := encode(ev)
	require.NoError(t, err)

	got, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, ev.Topic, got.Topic)
	assert.Equal(t, ev.Timestamp, got.Timestamp)
}
