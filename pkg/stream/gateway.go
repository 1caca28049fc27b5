package stream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meshly/backend/pkg/logger"
	"github.com/meshly/backend/pkg/notification"
)

// DefaultHeartbeatInterval keeps idle connections alive through
// idle-timeout proxies without meaningful bandwidth cost.
const DefaultHeartbeatInterval = 25 * time.Second

// Gateway manages the live connections held by this process.
type Gateway struct {
	heartbeat time.Duration
	logger    *slog.Logger

	mu     sync.RWMutex
	conns  map[string]map[string]*Connection // userID -> connID -> conn
	closed bool

	wg sync.WaitGroup
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithHeartbeatInterval overrides the heartbeat period.
func WithHeartbeatInterval(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.heartbeat = d
		}
	}
}

// WithGatewayLogger sets the logger for the Gateway.
func WithGatewayLogger(log *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if log != nil {
			g.logger = log
		}
	}
}

// NewGateway creates an empty gateway.
func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{
		heartbeat: DefaultHeartbeatInterval,
		logger:    logger.NewNoop(),
		conns:     make(map[string]map[string]*Connection),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connect initializes w as a long-lived SSE stream: writes the connected
// acknowledgment, flushes the replay backlog in order, registers the
// connection for live fan-out and starts its heartbeat. It returns without
// blocking; the caller must keep the handler alive until Done fires.
//
// ctx is the connection lifecycle. Its cancellation (client disconnect,
// server shutdown) is the only teardown trigger besides failed writes.
func (g *Gateway) Connect(ctx context.Context, userID string, w http.ResponseWriter, replay []notification.Event) (*Connection, error) {
	g.mu.RLock()
	closed := g.closed
	g.mu.RUnlock()
	if closed {
		return nil, ErrGatewayClosed
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	connCtx, cancel := context.WithCancel(ctx)
	conn := &Connection{
		id:      uuid.NewString(),
		userID:  userID,
		w:       w,
		flusher: flusher,
		ctx:     connCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	if err := conn.writeComment("connected"); err != nil {
		cancel()
		close(conn.done)
		return nil, err
	}

	// The backlog is flushed completely before the connection joins live
	// fan-out, so the merged stream stays monotonic in id for the client.
	for _, ev := range replay {
		if err := conn.writeEvent(ev); err != nil {
			cancel()
			close(conn.done)
			return nil, errors.Join(ErrReplayFailed, err)
		}
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		cancel()
		close(conn.done)
		return nil, ErrGatewayClosed
	}
	set, ok := g.conns[userID]
	if !ok {
		set = make(map[string]*Connection)
		g.conns[userID] = set
	}
	set[conn.id] = conn
	// Add before the lock drops. Close sets closed under this lock, so any
	// registration that got here precedes Close's Wait and the counter
	// covers every registered connection.
	g.wg.Add(1)
	g.mu.Unlock()

	go g.run(conn)

	g.logger.LogAttrs(ctx, slog.LevelDebug, "stream connected",
		logger.Component("stream"),
		logger.ConnectionID(conn.id),
		logger.UserID(userID),
	)

	return conn, nil
}

// PublishToUser writes one event frame to every live connection of the
// event's user. Zero connections is a silent no-op; the event stays
// durable in the store for replay. A failed write tears the connection
// down; there is no retry, the client reconnects and resumes by cursor.
func (g *Gateway) PublishToUser(ctx context.Context, event notification.Event) {
	g.mu.RLock()
	set := g.conns[event.UserID]
	conns := make([]*Connection, 0, len(set))
	for _, c := range set {
		conns = append(conns, c)
	}
	g.mu.RUnlock()

	for _, c := range conns {
		if err := c.writeEvent(event); err != nil {
			g.logger.LogAttrs(ctx, slog.LevelWarn, "stream write failed, dropping connection",
				logger.Component("stream"),
				logger.ConnectionID(c.id),
				logger.UserID(c.userID),
				logger.EventID(event.ID),
				logger.Error(err),
			)
			c.cancel()
		}
	}
}

// ConnectionCount returns the number of live connections for a user.
func (g *Gateway) ConnectionCount(userID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns[userID])
}

// Close tears down every connection and waits for their goroutines.
// Subsequent Connect calls fail with ErrGatewayClosed.
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	conns := make([]*Connection, 0)
	for _, set := range g.conns {
		for _, c := range set {
			conns = append(conns, c)
		}
	}
	g.mu.Unlock()

	for _, c := range conns {
		c.cancel()
	}
	g.wg.Wait()
	return nil
}

// run owns the connection lifecycle: heartbeats while alive, teardown
// once the context is cancelled. The heartbeat timer stops exactly once,
// when this returns.
func (g *Gateway) run(conn *Connection) {
	defer g.wg.Done()

	ticker := time.NewTicker(g.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-conn.ctx.Done():
			g.remove(conn)
			conn.markDead()
			close(conn.done)
			return
		case <-ticker.C:
			if err := conn.writeComment("heartbeat"); err != nil {
				conn.cancel()
			}
		}
	}
}

func (g *Gateway) remove(conn *Connection) {
	g.mu.Lock()
	if set, ok := g.conns[conn.userID]; ok {
		delete(set, conn.id)
		if len(set) == 0 {
			delete(g.conns, conn.userID)
		}
	}
	g.mu.Unlock()

	g.logger.LogAttrs(context.Background(), slog.LevelDebug, "stream disconnected",
		logger.Component("stream"),
		logger.ConnectionID(conn.id),
		logger.UserID(conn.userID),
	)
}
