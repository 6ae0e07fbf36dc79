// ABOUTME: Probe-based connectivity monitor
// ABOUTME: Polls the remote health endpoint and surfaces edge-triggered online/offline transitions
package sync

import (
	"context"
	"sync"
	"time"
)

// Pinger is the connectivity probe target. Satisfied by *remote.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor derives the online/offline signal by probing the remote server at
// a fixed cadence. There is no portable platform event source for
// connectivity in a headless agent, so edges are detected here and fanned
// out through a single callback.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	onChange func(online bool)

	mu     sync.Mutex
	online bool

	stop chan struct{}
	wg   sync.WaitGroup
}

const defaultProbeInterval = 15 * time.Second

// NewMonitor builds a monitor. onChange fires once per state transition,
// never for repeated probes with the same outcome.
func NewMonitor(pinger Pinger, interval time.Duration, onChange func(online bool)) *Monitor {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	return &Monitor{
		pinger:   pinger,
		interval: interval,
		onChange: onChange,
		stop:     make(chan struct{}),
	}
}

// Start probes once synchronously, so callers observe the initial state
// immediately, then keeps probing in the background until Stop.
func (m *Monitor) Start() {
	m.probe()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.probe()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop halts background probing.
func (m *Monitor) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline applies a state transition directly, bypassing the probe. Used
// by tests and by the API's airplane-mode override; the next probe may flip
// it back.
func (m *Monitor) SetOnline(online bool) {
	m.apply(online)
}

func (m *Monitor) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()
	m.apply(m.pinger.Ping(ctx) == nil)
}

func (m *Monitor) apply(online bool) {
	m.mu.Lock()
	changed := online != m.online
	m.online = online
	m.mu.Unlock()

	if changed && m.onChange != nil {
		m.onChange(online)
	}
}
