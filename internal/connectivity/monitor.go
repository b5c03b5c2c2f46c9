// Package connectivity watches whether the remote record store is
// reachable and surfaces transitions as events, the server-side equivalent
// of the browser online/offline signal the POS front end reacts to.
package connectivity

import (
	"context"
	"log"
	"sync"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Monitor struct {
	pinger   Pinger
	interval time.Duration

	mu     sync.RWMutex
	online bool

	events chan bool
}

// NewMonitor probes once so Online reflects the initial link state before
// Run starts.
func NewMonitor(pinger Pinger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	m := &Monitor{
		pinger:   pinger,
		interval: interval,
		events:   make(chan bool, 8),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	m.online = pinger.Ping(ctx) == nil

	return m
}

// Run probes on the configured interval until ctx is done, emitting an
// event on every state transition.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, m.interval)
			err := m.pinger.Ping(probeCtx)
			cancel()
			m.SetOnline(err == nil)
		}
	}
}

func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Events delivers one value per transition: true for offline->online,
// false for online->offline. The channel is buffered; transitions are
// dropped rather than blocking the probe loop if nobody is draining it.
func (m *Monitor) Events() <-chan bool {
	return m.events
}

// SetOnline records the link state and emits an event when it changed.
// The probe loop calls this; tests and manual overrides may too.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}
	if online {
		log.Println("[connectivity] back online")
	} else {
		log.Println("[connectivity] connection lost")
	}
	select {
	case m.events <- online:
	default:
		log.Println("[connectivity] WARNING: event dropped, subscriber not draining")
	}
}
