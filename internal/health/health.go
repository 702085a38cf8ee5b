// Package health probes the two planning targets and reports reachability.
// Probe results are ephemeral: every cycle recomputes them, nothing persists.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dominggo/ai-osp/internal/dispatch"
	"github.com/dominggo/ai-osp/internal/models"
)

// healthPayload mirrors the body a target serves from GET /health.
type healthPayload struct {
	Status       string               `json:"status"`
	Service      string               `json:"service"`
	ServerID     string               `json:"server_id"`
	Capabilities *models.Capabilities `json:"capabilities"`
}

// Monitor probes both targets independently on a fixed interval. Cycles for
// the same target never overlap: if a probe is still in flight when the next
// tick fires, that target's cycle is skipped.
type Monitor struct {
	client   *dispatch.Client
	policy   dispatch.Policy
	interval time.Duration

	mu       sync.Mutex
	status   map[models.Target]models.HealthStatus
	inflight map[models.Target]bool

	subMu   sync.Mutex
	subs    map[int]func(models.HealthStatus)
	nextSub int
}

// New creates a monitor. probeTimeout applies to both targets; a probe
// failure of any kind degrades the target to offline, never to an error.
func New(client *dispatch.Client, probeTimeout, interval time.Duration) *Monitor {
	return &Monitor{
		client:   client,
		policy:   dispatch.Policy{Timeout: probeTimeout},
		interval: interval,
		status:   make(map[models.Target]models.HealthStatus),
		inflight: make(map[models.Target]bool),
		subs:     make(map[int]func(models.HealthStatus)),
	}
}

// Subscribe registers fn for status updates and returns an unsubscribe func.
func (m *Monitor) Subscribe(fn func(models.HealthStatus)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

// Run probes once at startup and then on the configured interval until ctx
// is canceled.
func (m *Monitor) Run(ctx context.Context) {
	m.cycle(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.cycle(ctx)
		}
	}
}

// cycle launches one probe per target, skipping targets whose previous probe
// has not completed.
func (m *Monitor) cycle(ctx context.Context) {
	for _, target := range []models.Target{models.TargetA, models.TargetB} {
		m.mu.Lock()
		if m.inflight[target] {
			m.mu.Unlock()
			slog.Debug("health probe still in flight, skipping", "target", target)
			continue
		}
		m.inflight[target] = true
		m.mu.Unlock()

		go func(target models.Target) {
			st := m.probe(ctx, target)

			m.mu.Lock()
			m.inflight[target] = false
			m.status[target] = st
			m.mu.Unlock()

			m.publish(st)
		}(target)
	}
}

// ProbeOnce probes both targets concurrently and waits for both results.
// Used by the one-shot health command.
func (m *Monitor) ProbeOnce(ctx context.Context) []models.HealthStatus {
	targets := []models.Target{models.TargetA, models.TargetB}
	results := make([]models.HealthStatus, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target models.Target) {
			defer wg.Done()
			results[i] = m.probe(ctx, target)
		}(i, target)
	}
	wg.Wait()

	m.mu.Lock()
	for _, st := range results {
		m.status[st.Target] = st
	}
	m.mu.Unlock()
	return results
}

func (m *Monitor) probe(ctx context.Context, target models.Target) models.HealthStatus {
	start := time.Now()
	body, err := m.client.Get(ctx, target, "/health", m.policy)
	st := models.HealthStatus{
		Target:    target,
		CheckedAt: time.Now().UTC(),
		Latency:   time.Since(start),
	}
	if err != nil {
		st.State = models.HealthOffline
		st.Err = err.Error()
		slog.Debug("health probe failed", "target", target, "err", err)
		return st
	}

	st.State = models.HealthOnline
	var payload healthPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		st.Capabilities = payload.Capabilities
	}
	return st
}

// Status returns the last probed status for a target. The second return is
// false before the first probe completes.
func (m *Monitor) Status(target models.Target) (models.HealthStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[target]
	return st, ok
}

// Snapshot returns the last status of every probed target.
func (m *Monitor) Snapshot() []models.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.HealthStatus, 0, len(m.status))
	for _, target := range []models.Target{models.TargetA, models.TargetB} {
		if st, ok := m.status[target]; ok {
			out = append(out, st)
		}
	}
	return out
}

func (m *Monitor) publish(st models.HealthStatus) {
	m.subMu.Lock()
	fns := make([]func(models.HealthStatus), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}
