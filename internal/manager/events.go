package manager

// Event represents a manager lifecycle event.
// Minimal and stable: name + ids and optional fields via key/values.
type Event struct {
	Name      string
	ManagerID string
	RoverID   string
	Fields    map[string]any
}

// Lifecycle event names.
const (
	EventInitFailed       = "init_failed"
	EventStartBegin       = "start_begin"
	EventStartDone        = "start_done"
	EventWorkerStartError = "worker_start_error"
	EventWorkerStopError  = "worker_stop_error"
	EventDispatchExit     = "dispatch_exit"
	EventStopBegin        = "stop_begin"
	EventStopDone         = "stop_done"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
