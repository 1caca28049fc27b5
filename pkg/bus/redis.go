package bus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/meshly/backend/pkg/logger"
	"github.com/meshly/backend/pkg/notification"
)

// DefaultChannel is the Redis pub/sub channel events travel on.
const DefaultChannel = "notifications:events"

// ConnectFunc produces a ready Redis client. Called at most once per
// process under the single-flight guard; a failed attempt is retried by
// the next Publish.
type ConnectFunc func(ctx context.Context) (redis.UniversalClient, error)

// RedisBus replicates events across backend instances over Redis pub/sub.
// One subscription per process feeds all registered handlers, so the
// publishing process hears its own events the same way the others do.
type RedisBus struct {
	channel string
	connect ConnectFunc
	logger  *slog.Logger

	sf singleflight.Group

	mu       sync.RWMutex
	client   redis.UniversalClient
	sub      *redis.PubSub
	handlers []Handler
	closed   bool

	wg sync.WaitGroup
}

// RedisBusOption configures a RedisBus.
type RedisBusOption func(*RedisBus)

// WithChannel overrides the pub/sub channel name.
func WithChannel(channel string) RedisBusOption {
	return func(b *RedisBus) {
		if channel != "" {
			b.channel = channel
		}
	}
}

// WithBusLogger sets the logger for the RedisBus.
func WithBusLogger(log *slog.Logger) RedisBusOption {
	return func(b *RedisBus) {
		if log != nil {
			b.logger = log
		}
	}
}

// NewRedisBus creates the distributed bus adapter. The connection is not
// opened here; it is established lazily on the first RegisterHandler or
// Publish call.
func NewRedisBus(connect ConnectFunc, opts ...RedisBusOption) *RedisBus {
	if connect == nil {
		panic("bus: connect cannot be nil")
	}

	b := &RedisBus{
		channel: DefaultChannel,
		connect: connect,
		logger:  logger.NewNoop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *RedisBus) Publish(ctx context.Context, event notification.Event) (bool, error) {
	client, err := b.ensure(ctx)
	if err != nil {
		return false, err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return false, errors.Join(ErrPublish, err)
	}

	if err := client.Publish(ctx, b.channel, data).Err(); err != nil {
		return false, errors.Join(ErrPublish, err)
	}

	return true, nil
}

// RegisterHandler adds a fan-out callback and schedules connection setup
// in the background. It never blocks the caller and never fails
// synchronously; a setup failure is logged and retried on the next call
// that needs the connection.
func (b *RedisBus) RegisterHandler(h Handler) {
	if h == nil {
		return
	}

	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	closed := b.closed
	b.mu.Unlock()

	if closed {
		return
	}

	go func() {
		if _, err := b.ensure(context.Background()); err != nil && !errors.Is(err, ErrBusClosed) {
			b.logger.LogAttrs(context.Background(), slog.LevelWarn, "bus subscription setup failed",
				logger.Component("bus"),
				logger.Error(err),
			)
		}
	}()
}

// Client returns the connected Redis client, establishing the connection
// on first use. Readiness probes use it to ping the broker the bus
// publishes on.
func (b *RedisBus) Client(ctx context.Context) (redis.UniversalClient, error) {
	return b.ensure(ctx)
}

// Close shuts the subscription and the client down. Safe to call more
// than once.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	sub, client := b.sub, b.client
	b.sub, b.client = nil, nil
	b.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Close()
	}
	if client != nil {
		err = errors.Join(err, client.Close())
	}

	b.wg.Wait()
	return err
}

// ensure returns the connected client, establishing the connection and the
// process-wide subscription on first use. Concurrent first callers share a
// single in-flight attempt.
func (b *RedisBus) ensure(ctx context.Context) (redis.UniversalClient, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, ErrBusClosed
	}
	if c := b.client; c != nil {
		b.mu.RUnlock()
		return c, nil
	}
	b.mu.RUnlock()

	v, err, _ := b.sf.Do("connect", func() (any, error) {
		b.mu.RLock()
		if b.closed {
			b.mu.RUnlock()
			return nil, ErrBusClosed
		}
		if c := b.client; c != nil {
			b.mu.RUnlock()
			return c, nil
		}
		b.mu.RUnlock()

		client, err := b.connect(ctx)
		if err != nil {
			return nil, errors.Join(ErrConnect, err)
		}

		// The subscription context is deliberately not the caller's: the
		// subscription outlives the first request that triggered it.
		sub := client.Subscribe(context.Background(), b.channel)
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			_ = client.Close()
			return nil, errors.Join(ErrConnect, err)
		}

		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			_ = sub.Close()
			_ = client.Close()
			return nil, ErrBusClosed
		}
		b.client = client
		b.sub = sub
		b.mu.Unlock()

		b.wg.Add(1)
		go b.listen(sub)

		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(redis.UniversalClient), nil
}

// listen fans every subscribed message out to the registered handlers.
// Runs until the subscription channel closes.
func (b *RedisBus) listen(sub *redis.PubSub) {
	defer b.wg.Done()

	ctx := context.Background()
	for msg := range sub.Channel() {
		ev, err := decodeEvent([]byte(msg.Payload))
		if err != nil {
			b.logger.LogAttrs(ctx, slog.LevelWarn, "dropping malformed bus payload",
				logger.Component("bus"),
				logger.Error(err),
			)
			continue
		}

		b.mu.RLock()
		handlers := slices.Clone(b.handlers)
		b.mu.RUnlock()

		for _, h := range handlers {
			h(ctx, ev)
		}
	}
}

// decodeEvent parses and shape-checks an inbound bus payload.
func decodeEvent(data []byte) (notification.Event, error) {
	var ev notification.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return notification.Event{}, err
	}
	if err := ev.Validate(); err != nil {
		return notification.Event{}, err
	}
	return ev, nil
}
