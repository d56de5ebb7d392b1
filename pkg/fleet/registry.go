package fleet

import (
	"github.com/hutchlabs/hutch/pkg/metrics"
)

// Endpoint registry and node selection. The count array tracks
// reserved-or-running containers per endpoint; every mutation happens
// under m.mu so that selection and its increment are one atomic step.

// selectAndReserve picks the least-loaded endpoint and reserves a slot
// on it. Ties resolve to the lowest index. The caller must release the
// slot if the subsequent build or start fails.
func (m *Manager) selectAndReserve() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := 0
	for i, c := range m.counts {
		if c < m.counts[idx] {
			idx = i
		}
	}
	m.counts[idx]++
	metrics.EndpointActiveContainers.WithLabelValues(m.endpoints[idx]).Set(float64(m.counts[idx]))
	return idx
}

// release returns a reserved slot after a failed build or start.
func (m *Manager) release(idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[idx]--
	metrics.EndpointActiveContainers.WithLabelValues(m.endpoints[idx]).Set(float64(m.counts[idx]))
}

// ActiveCount returns the number of reserved-or-running containers on
// endpoint idx.
func (m *Manager) ActiveCount(idx int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[idx]
}

// Endpoints returns the configured daemon addresses in selection order.
func (m *Manager) Endpoints() []string {
	eps := make([]string, len(m.endpoints))
	copy(eps, m.endpoints)
	return eps
}

// EngineAt returns the engine client for endpoint idx, dialing it on
// first use. A bad address only surfaces here, when an operation first
// needs that endpoint.
func (m *Manager) EngineAt(idx int) (Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.engines[idx] != nil {
		return m.engines[idx], nil
	}
	eng, err := m.dial(m.endpoints[idx])
	if err != nil {
		return nil, err
	}
	m.engines[idx] = eng
	return eng, nil
}
