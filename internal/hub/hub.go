// Package hub fans kiosk state and events out to connected dashboard
// subscribers. Every subscriber gets a snapshot on connect, a periodic
// update from its own poller and best-effort pushed events.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HerbHall/kioskwatch/internal/clock"
	"github.com/HerbHall/kioskwatch/internal/telemetry"
	"github.com/HerbHall/kioskwatch/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrClosed is returned by Connect after Close.
var ErrClosed = errors.New("hub is closed")

// Default subscriber settings.
const (
	DefaultUpdateInterval = 2000 * time.Millisecond
	DefaultOutboxSize     = 64
)

// Sink is the transport a subscriber's messages are written to.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// StateSource provides point-in-time kiosk state.
type StateSource interface {
	GetAll() map[models.KioskID]models.KioskStatus
}

// MetricsSource provides the last cached system metrics sample.
type MetricsSource interface {
	Last() (models.SystemMetrics, bool)
}

// Options configures a Hub. Zero values fall back to defaults.
type Options struct {
	UpdateInterval time.Duration
	OutboxSize     int
	// Metrics is optional.
	Metrics MetricsSource
	// Telemetry is optional.
	Telemetry *telemetry.Metrics
}

// Hub tracks connected subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscriber
	closed bool

	state     StateSource
	metrics   MetricsSource
	clock     clock.Clock
	interval  time.Duration
	outbox    int
	telemetry *telemetry.Metrics
	logger    *zap.Logger
}

// New creates a Hub reading state from state.
func New(state StateSource, clk clock.Clock, opts Options, logger *zap.Logger) *Hub {
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = DefaultUpdateInterval
	}
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = DefaultOutboxSize
	}
	return &Hub{
		subs:      make(map[string]*Subscriber),
		state:     state,
		metrics:   opts.Metrics,
		clock:     clk,
		interval:  opts.UpdateInterval,
		outbox:    opts.OutboxSize,
		telemetry: opts.Telemetry,
		logger:    logger,
	}
}

// Subscriber is one connected dashboard.
type Subscriber struct {
	id          string
	topics      []string
	sink        Sink
	outbox      chan Message
	ticker      clock.Ticker
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	connectedAt time.Time
	dropped     atomic.Int64
}

// ID returns the subscriber id.
func (s *Subscriber) ID() string { return s.id }

// Done is closed once the subscriber's loop has exited.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// wants reports whether topic passes the subscriber's filter. An empty filter
// accepts everything; "*" and "prefix.*" patterns are supported.
func (s *Subscriber) wants(topic string) bool {
	if len(s.topics) == 0 {
		return true
	}
	for _, f := range s.topics {
		switch {
		case f == topic, f == "*":
			return true
		case strings.HasSuffix(f, ".*") && strings.HasPrefix(topic, strings.TrimSuffix(f, "*")):
			return true
		}
	}
	return false
}

// SubscriberInfo describes a connected subscriber.
type SubscriberInfo struct {
	ID          string    `json:"id"`
	Topics      []string  `json:"topics"`
	ConnectedAt time.Time `json:"connected_at"`
	Dropped     int64     `json:"dropped"`
}

// Connect registers sink as a subscriber, sends it the snapshot and starts
// its poller. The subscriber lives until ctx is cancelled, Disconnect is
// called, or the sink fails.
func (h *Hub) Connect(ctx context.Context, sink Sink, topics ...string) (*Subscriber, error) {
	subCtx, cancel := context.WithCancel(ctx)
	s := &Subscriber{
		id:          uuid.NewString(),
		topics:      topics,
		sink:        sink,
		outbox:      make(chan Message, h.outbox),
		ctx:         subCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
		connectedAt: h.clock.Now(),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	// Registered before the snapshot so no pushed event falls between the
	// two; the outbox is only drained after the snapshot is sent.
	h.subs[s.id] = s
	n := len(h.subs)
	h.mu.Unlock()

	if err := h.send(s, h.stateMessage(TypeSnapshot)); err != nil {
		h.detach(s)
		close(s.done)
		return nil, fmt.Errorf("send snapshot: %w", err)
	}

	s.ticker = h.clock.NewTicker(h.interval)
	go h.run(s)

	h.telemetry.SetSubscribers(n)
	h.logger.Info("subscriber connected",
		zap.String("subscriber_id", s.id),
		zap.Strings("topics", topics),
	)
	return s, nil
}

// Disconnect stops a subscriber and waits for its loop to exit. Unknown or
// already disconnected ids are ignored.
func (h *Hub) Disconnect(id string) {
	h.mu.RLock()
	s, ok := h.subs[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	s.cancel()
	<-s.done
}

// Publish enqueues an event for every subscriber whose filter matches topic
// and returns how many accepted it. A full outbox drops the event for that
// subscriber.
func (h *Hub) Publish(topic string, payload any) int {
	msg := Message{Type: TypeEvent, Topic: topic, Timestamp: h.clock.Now(), Data: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()

	accepted := 0
	for _, s := range h.subs {
		if !s.wants(topic) {
			continue
		}
		select {
		case s.outbox <- msg:
			accepted++
		default:
			s.dropped.Add(1)
			h.telemetry.HubDropped()
			h.logger.Debug("subscriber outbox full, event dropped",
				zap.String("subscriber_id", s.id),
				zap.String("topic", topic),
			)
		}
	}
	return accepted
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Subscribers lists connected subscribers ordered by connect time.
func (h *Hub) Subscribers() []SubscriberInfo {
	h.mu.RLock()
	out := make([]SubscriberInfo, 0, len(h.subs))
	for _, s := range h.subs {
		out = append(out, SubscriberInfo{
			ID:          s.id,
			Topics:      append([]string(nil), s.topics...),
			ConnectedAt: s.connectedAt,
			Dropped:     s.dropped.Load(),
		})
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.Disconnect(id)
	}
}

// run is the subscriber's poller. It exits when the subscriber context is
// cancelled or a delivery fails.
func (h *Hub) run(s *Subscriber) {
	defer close(s.done)
	defer h.detach(s)
	defer s.ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.ticker.C():
			if err := h.send(s, h.stateMessage(TypeUpdate)); err != nil {
				h.dropOnError(s, err)
				return
			}
		case msg := <-s.outbox:
			if err := h.send(s, msg); err != nil {
				h.dropOnError(s, err)
				return
			}
		}
	}
}

// send delivers one message. A panic in the sink is recovered and returned
// as an error so it only affects this subscriber.
func (h *Hub) send(s *Subscriber, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic in subscriber sink",
				zap.String("subscriber_id", s.id),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()

	if err := s.sink.Send(s.ctx, msg); err != nil {
		return err
	}
	h.telemetry.HubMessage(string(msg.Type))
	return nil
}

func (h *Hub) dropOnError(s *Subscriber, err error) {
	// A push cut short by disconnect is discarded silently.
	if s.ctx.Err() != nil {
		return
	}
	h.logger.Warn("subscriber send failed, disconnecting",
		zap.String("subscriber_id", s.id),
		zap.Error(err),
	)
}

// detach cancels s and removes it from the subscriber set.
func (h *Hub) detach(s *Subscriber) {
	s.cancel()

	h.mu.Lock()
	_, ok := h.subs[s.id]
	delete(h.subs, s.id)
	n := len(h.subs)
	h.mu.Unlock()

	if ok {
		h.telemetry.SetSubscribers(n)
		h.logger.Info("subscriber disconnected", zap.String("subscriber_id", s.id))
	}
}

func (h *Hub) stateMessage(typ MessageType) Message {
	st := State{Kiosks: h.state.GetAll()}
	if h.metrics != nil {
		if m, ok := h.metrics.Last(); ok {
			st.Metrics = &m
		}
	}
	return Message{Type: typ, Timestamp: h.clock.Now(), Data: st}
}
