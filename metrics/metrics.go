package metrics

import (
	"sync"
	"time"

	"github.com/angeloszaimis/fusebox"
)

// Metrics aggregates breaker activity per peer for the JSON snapshot
// endpoint. The Prometheus side lives on the Collector; this store exists
// so operators can curl one endpoint and see every peer at a glance.
type Metrics struct {
	mutex       sync.RWMutex
	states      map[string]fusebox.State
	transitions map[string]int64
	rejections  map[string]int64
	failures    map[string]int
	lastChange  map[string]time.Time
	startTime   time.Time
}

type Snapshot struct {
	TotalRejections int64                  `json:"total_rejections"`
	Uptime          time.Duration          `json:"uptime"`
	Peers           map[string]PeerMetrics `json:"peers"`
}

type PeerMetrics struct {
	State          string    `json:"state"`
	Transitions    int64     `json:"transitions"`
	Rejections     int64     `json:"rejections"`
	WindowFailures int       `json:"window_failures"`
	LastChange     time.Time `json:"last_change"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		states:      make(map[string]fusebox.State),
		transitions: make(map[string]int64),
		rejections:  make(map[string]int64),
		failures:    make(map[string]int),
		lastChange:  make(map[string]time.Time),
		startTime:   time.Now(),
	}
}

func (m *Metrics) RecordTransition(peer string, to fusebox.State, failures int, at time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.states[peer] = to
	m.transitions[peer]++
	m.failures[peer] = failures
	m.lastChange[peer] = at
}

func (m *Metrics) RecordRejection(peer string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rejections[peer]++
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime: time.Since(m.startTime),
		Peers:  make(map[string]PeerMetrics),
	}

	// Collect every peer any map has seen
	allPeers := make(map[string]bool)
	for peer := range m.states {
		allPeers[peer] = true
	}
	for peer := range m.rejections {
		allPeers[peer] = true
	}

	for peer := range allPeers {
		snap.TotalRejections += m.rejections[peer]

		snap.Peers[peer] = PeerMetrics{
			State:          m.states[peer].String(),
			Transitions:    m.transitions[peer],
			Rejections:     m.rejections[peer],
			WindowFailures: m.failures[peer],
			LastChange:     m.lastChange[peer],
		}
	}

	return snap
}
