package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angeloszaimis/fusebox"
)

type EventType string

const (
	EventStateChanged EventType = "state_changed"
	EventCallRejected EventType = "call_rejected"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Peer      string
	From      fusebox.State
	To        fusebox.State
	Failures  int
}

// Collector consumes breaker events off a buffered channel and feeds both
// the Prometheus vectors and the JSON aggregate. Breaker hooks only enqueue;
// all bookkeeping happens on the collector's own goroutine, started by
// Start.
type Collector struct {
	eventCh chan Event
	metrics *Metrics
	logger  *slog.Logger

	state          *prometheus.GaugeVec
	transitions    *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	windowFailures *prometheus.GaugeVec
}

func NewCollector(namespace string, bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan Event, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,

		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Current circuit state per peer (0=closed, 1=open, 2=half-open).",
		}, []string{"peer"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "transitions_total",
			Help:      "Circuit state transitions per peer.",
		}, []string{"peer", "from", "to"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "rejections_total",
			Help:      "Calls denied because the circuit was open.",
		}, []string{"peer"}),
		windowFailures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "window_failures",
			Help:      "Classified failures inside the sliding window at the last transition.",
		}, []string{"peer"}),
	}
}

// Register adds the collector's metrics to r, stopping at the first error.
func (c *Collector) Register(r prometheus.Registerer) error {
	for _, col := range c.collectors() {
		if err := r.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister adds the collector's metrics to r and panics on conflict.
func (c *Collector) MustRegister(r prometheus.Registerer) {
	r.MustRegister(c.collectors()...)
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{c.state, c.transitions, c.rejections, c.windowFailures}
}

// EventChannel exposes the queue for callers that produce events directly.
// Most callers should use StateHook and RejectHook instead.
func (c *Collector) EventChannel() chan<- Event {
	return c.eventCh
}

// StateHook returns a transition observer to pass to fusebox.OnStateChange.
func (c *Collector) StateHook() fusebox.StateChangeFunc {
	return func(peer string, from, to fusebox.State, failures int) {
		c.emit(Event{
			Type:      EventStateChanged,
			Timestamp: time.Now(),
			Peer:      peer,
			From:      from,
			To:        to,
			Failures:  failures,
		})
	}
}

// RejectHook returns a denial observer to pass to fusebox.OnReject.
func (c *Collector) RejectHook() fusebox.RejectFunc {
	return func(peer string) {
		c.emit(Event{
			Type:      EventCallRejected,
			Timestamp: time.Now(),
			Peer:      peer,
		})
	}
}

// emit enqueues without blocking. Hooks run inside the breaker's critical
// section, so a full buffer drops the event rather than stalling calls.
func (c *Collector) emit(event Event) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("metrics buffer full, dropping event",
			slog.String("type", string(event.Type)),
			slog.String("peer", event.Peer))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("metrics collector started")
	defer c.logger.Info("metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventStateChanged:
		c.state.WithLabelValues(event.Peer).Set(float64(event.To))
		c.transitions.WithLabelValues(event.Peer, event.From.String(), event.To.String()).Inc()
		c.windowFailures.WithLabelValues(event.Peer).Set(float64(event.Failures))
		c.metrics.RecordTransition(event.Peer, event.To, event.Failures, event.Timestamp)

	case EventCallRejected:
		c.rejections.WithLabelValues(event.Peer).Inc()
		c.metrics.RecordRejection(event.Peer)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
