// Package manager supervises rover contexts on a reactor loop. It is
// structured into small files by concern:
//
//   - manager.go: core Manager type, construction of loop and workers, getters.
//   - config.go: Config and package defaults; New/NewWithConfig apply defaults.
//   - lifecycle.go: Start, Stop, Close and the dispatch goroutine.
//   - types.go: State, Worker, Host, WorkerFactory, StreamEvent.
//   - errors.go: error types and helpers (IsNotFound, IsReactorUnavailable).
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus collectors.
//   - status_report.go: Status reporting.
//
// Lifecycle:
//
//	Stopped --Start--> Running --Stop--> Stopped
//
// Start on a running manager and Stop on a stopped one are no-ops. Start
// returns as soon as the dispatch goroutine is spawned; that goroutine starts
// every worker in id order and then blocks in Dispatch. Stop breaks the
// loop, stops every worker in id order and waits for the goroutine to exit.
// Close is the destructor: Stop, then release the loop.
//
// A manager whose engine fails to create a loop is still constructed. Err
// reports the failure and Start never does anything.
package manager
