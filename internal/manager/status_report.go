package manager

import (
	"time"

	"streamd/pkg/types"
)

// Status builds the status view served at /managers/{id}.
func (m *Manager) Status() types.ManagerStatus {
	m.mu.RLock()
	resp := types.ManagerStatus{
		ID:        m.id,
		State:     string(m.state),
		Startable: m.loop != nil && !m.closed,
		LastError: m.lastErr,
	}
	if m.cur != nil {
		resp.RunID = m.cur.id
		resp.UptimeSeconds = int64(time.Since(m.cur.startedAt).Seconds())
	}
	m.mu.RUnlock()

	resp.Rovers = make([]types.RoverStatus, 0, len(m.order))
	for _, id := range m.order {
		resp.Rovers = append(resp.Rovers, workerStatus(m.workers[id]))
	}
	return resp
}
