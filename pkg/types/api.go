package types

import "time"

// ManagersResponse wraps the list returned by GET /managers.
type ManagersResponse struct {
	Managers []ManagerStatus `json:"managers"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: manager not found: m9
	Error string `json:"error" example:"manager not found: m9"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// RoverStatus summarizes one rover context.
type RoverStatus struct {
	// example: r1
	ID string `json:"id"`
	// Whether the context has been started and not stopped since.
	Running bool `json:"running"`
	// Upstream address, if any.
	Addr string `json:"addr,omitempty"`
	// Frames delivered through the loop.
	Frames uint64 `json:"frames"`
	// Bytes delivered through the loop.
	Bytes uint64 `json:"bytes"`
	// Upstream (re)connect attempts.
	Reconnects uint64 `json:"reconnects"`
	// Last error seen by the context, if any.
	LastError string `json:"last_error,omitempty"`
}

// ManagerStatus is returned by GET /managers/{id}.
type ManagerStatus struct {
	// example: m1
	ID string `json:"id"`
	// Lifecycle state: stopped or running.
	// example: running
	State string `json:"state"`
	// Identifier of the current dispatch run (empty when stopped).
	RunID string `json:"run_id,omitempty"`
	// Whether the reactor loop could be created.
	Startable bool `json:"startable"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// Seconds since the current run started.
	UptimeSeconds int64 `json:"uptime_seconds"`
	// Rover contexts in deterministic (id) order.
	Rovers []RoverStatus `json:"rovers"`
}

// Frame kinds carried by StreamFrame.
const (
	FrameData      = "data"
	FrameHeartbeat = "heartbeat"
	FrameState     = "state"
)

// StreamFrame is one event produced by a rover context and handed to the
// manager's stream-event extension.
type StreamFrame struct {
	ManagerID string    `json:"manager_id"`
	RoverID   string    `json:"rover_id"`
	Kind      string    `json:"kind"`
	Session   string    `json:"session,omitempty"`
	Data      []byte    `json:"data,omitempty"`
	State     string    `json:"state,omitempty"`
	At        time.Time `json:"at"`
}
