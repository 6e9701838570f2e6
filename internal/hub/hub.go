// Package hub broadcasts domain events to WebSocket clients by topic.
//
// Each client has its own bounded send queue drained by a dedicated
// writer goroutine. Delivery never blocks on a client: a client whose
// queue is full is disconnected.
package hub

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"launchpad-indexer/internal/cache"
	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/observability"
)

// ErrClosed is returned after Shutdown.
var ErrClosed = errors.New("hub closed")

// Config configures the hub.
type Config struct {
	// SendBuffer is the per-client queue length.
	SendBuffer int
	// BroadcastBuffer is the length of the hub's inbound event queue.
	BroadcastBuffer int
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// PingInterval is the keepalive period; the read deadline is twice that.
	PingInterval time.Duration
	// MaxMessageSize caps inbound client frames.
	MaxMessageSize int64
	// AllowedOrigins lists accepted Origin headers. Empty allows all.
	AllowedOrigins []string
	Logger         *logrus.Entry
}

// DefaultConfig returns the default hub configuration.
func DefaultConfig() Config {
	return Config{
		SendBuffer:      256,
		BroadcastBuffer: 4096,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
	}
}

// ValueSource answers get_price and get_metrics from cache only.
type ValueSource interface {
	CachedPrice(ctx context.Context, token string) (*cache.Price, bool)
	CachedMetrics(ctx context.Context, token string) (*domain.TokenMetrics, bool)
}

// Hub owns the client registry and the broadcast queue.
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader
	values   ValueSource
	logger   *logrus.Entry
	now      func() time.Time

	clients sync.Map // session id -> *client
	count   atomic.Int64

	pubMu     sync.RWMutex
	closed    bool
	broadcast chan domain.Event

	wg      sync.WaitGroup
	runDone chan struct{}
}

// New creates a hub. values may be nil, in which case lookups answer null.
func New(cfg Config, values ValueSource) *Hub {
	def := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.BroadcastBuffer <= 0 {
		cfg.BroadcastBuffer = def.BroadcastBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	h := &Hub{
		cfg:       cfg,
		values:    values,
		logger:    cfg.Logger.WithField("component", "hub"),
		now:       time.Now,
		broadcast: make(chan domain.Event, cfg.BroadcastBuffer),
		runDone:   make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range h.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Publish enqueues an event for broadcast without blocking.
func (h *Hub) Publish(ev domain.Event) error {
	h.pubMu.RLock()
	defer h.pubMu.RUnlock()
	if h.closed {
		return ErrClosed
	}
	select {
	case h.broadcast <- ev:
		return nil
	default:
		observability.RecordHubDropped("hub_queue_full")
		h.logger.WithField("event", ev.Type()).Warn("broadcast queue full, event dropped")
		return nil
	}
}

// Handle publishes ev. It never fails the caller.
func (h *Hub) Handle(_ context.Context, ev domain.Event) error {
	if err := h.Publish(ev); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}

// Run delivers queued events until Shutdown or ctx is done, then closes
// every client after its queue has been flushed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.runDone)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			h.drain()
			return
		case ev, ok := <-h.broadcast:
			if !ok {
				return
			}
			h.deliverEvent(ev)
		}
	}
}

// drain delivers whatever is already queued.
func (h *Hub) drain() {
	for {
		select {
		case ev, ok := <-h.broadcast:
			if !ok {
				return
			}
			h.deliverEvent(ev)
		default:
			return
		}
	}
}

func (h *Hub) deliverEvent(ev domain.Event) {
	topics := Topics(ev)
	msg := mustMarshal(eventMessage{
		Type:      ev.Type(),
		Data:      ev.Data(),
		Timestamp: h.now().UnixMilli(),
	})

	h.clients.Range(func(_, v any) bool {
		c := v.(*client)
		if c.matches(topics) {
			h.deliver(c, msg)
		}
		return true
	})
}

// deliver enqueues msg on c, disconnecting c if its queue is full.
func (h *Hub) deliver(c *client, msg []byte) bool {
	if c.enqueue(msg) {
		observability.RecordHubSent()
		return true
	}
	observability.RecordHubDropped("slow_consumer")
	h.logger.WithField("session_id", c.id).Warn("client send queue full, disconnecting")
	h.remove(c)
	return false
}

func (h *Hub) register(c *client) {
	h.clients.Store(c.id, c)
	observability.UpdateHubClients(int(h.count.Add(1)))
}

// remove unregisters c and closes its send queue. Safe to call repeatedly.
func (h *Hub) remove(c *client) {
	if _, ok := h.clients.LoadAndDelete(c.id); !ok {
		return
	}
	observability.UpdateHubClients(int(h.count.Add(-1)))
	c.closeSend()
}

func (h *Hub) closeAll() {
	h.clients.Range(func(_, v any) bool {
		h.remove(v.(*client))
		return true
	})
}

func (h *Hub) isClosed() bool {
	h.pubMu.RLock()
	defer h.pubMu.RUnlock()
	return h.closed
}

// ServeHTTP upgrades the request and starts the client's pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.isClosed() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	c := newClient(h, uuid.NewString(), conn, h.cfg.SendBuffer)
	h.register(c)
	c.enqueue(mustMarshal(welcomeMessage{
		Type:      TypeWelcome,
		SessionID: c.id,
		Timestamp: h.now().UnixMilli(),
	}))

	h.wg.Add(2)
	go c.writePump()
	go c.readPump()

	if h.isClosed() {
		h.remove(c)
	}
	h.logger.WithFields(logrus.Fields{
		"session_id": c.id,
		"remote":     r.RemoteAddr,
	}).Debug("client connected")
}

// Shutdown stops accepting events and connections, waits for queued
// broadcasts to reach client queues, then waits for every client writer
// to flush and close. Run must be running.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.pubMu.Lock()
	if !h.closed {
		h.closed = true
		close(h.broadcast)
	}
	h.pubMu.Unlock()

	select {
	case <-h.runDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
