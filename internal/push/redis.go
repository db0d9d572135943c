package push

import (
	"context"
	"time"

	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/redis/go-redis/v9"
)

// pushChannel is the single Redis pub/sub channel every instance
// publishes to and subscribes from, grounded on the pack's
// publish-then-expire call-trace broadcast idiom.
const pushChannel = "chainguard:push"

// eventTTL is the expiry set on pushChannel after every publish,
// mirroring the pack's Expire-after-Publish pattern. PUBLISH stores no
// key under the channel name, so the EXPIRE only takes effect if a key
// of that name exists for some other reason.
const eventTTL = 1 * time.Hour

// RedisFanout relays Bus events across instances over a Redis pub/sub
// channel, so every instance's websocket clients see every other
// instance's events.
type RedisFanout struct {
	client *redis.Client
	cancel context.CancelFunc
}

// NewRedisFanout connects to redisURL and starts relaying events
// published on pushChannel back into bus.
func NewRedisFanout(redisURL string, bus *Bus) (*RedisFanout, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithCancel(context.Background())
	f := &RedisFanout{client: client, cancel: cancel}

	sub := client.Subscribe(ctx, pushChannel)
	go f.relay(ctx, sub, bus)

	return f, nil
}

func (f *RedisFanout) relay(ctx context.Context, sub *redis.PubSub, bus *Bus) {
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = sub.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ev, err := decode([]byte(msg.Payload))
			if err != nil {
				gethlog.Error("push: failed to decode relayed event", "component", "push", "err", err)
				continue
			}
			bus.deliver(ev)
		}
	}
}

// Publish relays a locally-emitted event to every other instance.
func (f *RedisFanout) Publish(ev Event) {
	data, err := encode(ev)
	if err != nil {
		gethlog.Error("push: failed to encode event for fanout", "component", "push", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := f.client.Publish(ctx, pushChannel, data).Err(); err != nil {
		gethlog.Error("push: redis publish failed", "component", "push", "err", err)
		return
	}
	if err := f.client.Expire(ctx, pushChannel, eventTTL).Err(); err != nil {
		gethlog.Error("push: redis expire failed", "component", "push", "err", err)
	}
}

func (f *RedisFanout) Close() error {
	f.cancel()
	return f.client.Close()
}
