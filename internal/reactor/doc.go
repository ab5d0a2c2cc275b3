// Package reactor provides the event loop that stream managers drive.
//
// A Loop processes callbacks one at a time on the goroutine that calls
// Dispatch. Event sources (timers, network readers) run on their own
// goroutines and hand work to the loop through Post, so every callback
// observes a single-threaded view of the state it touches.
//
//   - reactor.go: Engine, Loop and Source interfaces.
//   - loop.go: the channel-backed Loop used in production.
//   - errors.go: sentinel errors.
//
// Break is sticky: a break requested before Dispatch is entered makes the
// next Dispatch return immediately. This closes the window between a
// manager spawning its dispatch goroutine and that goroutine reaching
// Dispatch.
package reactor
