package manager

import "errors"

// notFoundError signals an unknown manager id (404 mapping).
type notFoundError struct{ id string }

func (e notFoundError) Error() string { return "manager not found: " + e.id }

// ErrNotFound returns an error for a manager id that is not configured.
func ErrNotFound(id string) error { return notFoundError{id: id} }

// IsNotFound reports whether err indicates a missing manager id.
func IsNotFound(err error) bool {
	var e notFoundError
	return errors.As(err, &e)
}

// reactorUnavailableError records why a manager could not acquire its loop.
// Such a manager is constructed but can never start.
type reactorUnavailableError struct {
	id  string
	err error
}

func (e reactorUnavailableError) Error() string {
	return "manager " + e.id + ": reactor unavailable: " + e.err.Error()
}

func (e reactorUnavailableError) Unwrap() error { return e.err }

// IsReactorUnavailable reports whether err indicates a failed loop acquisition.
func IsReactorUnavailable(err error) bool {
	var e reactorUnavailableError
	return errors.As(err, &e)
}

// panicError wraps a value recovered from a worker.
type panicError struct{ v any }

func (e panicError) Error() string { return "worker panicked: " + fmtAny(e.v) }

var errNilLoop = errors.New("engine returned nil loop")
