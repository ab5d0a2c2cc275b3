// Package rover implements the stream context the manager drives for each
// configured rover.
//
// A Context registers up to two sources on its manager's loop when started:
// a heartbeat timer and an upstream TCP stream. The stream source dials the
// rover address, optionally requests a mountpoint, and hands every chunk it
// reads to the loop. Frames reach the manager's stream-event extension from
// the dispatch goroutine.
package rover
