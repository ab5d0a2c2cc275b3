package manager

import (
	"fmt"
	"sort"

	"streamd/pkg/types"
)

// Helper: sorted worker ids; the order every lifecycle walk uses.
func sortedIDs(workers map[string]Worker) []string {
	ids := make([]string, 0, len(workers))
	for id := range workers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Helper: run fn, converting a panic into an error.
func callSafely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{v: r}
		}
	}()
	return fn()
}

func fmtAny(v any) string { return fmt.Sprint(v) }

// workerStatus describes w, falling back to id/running for plain workers.
func workerStatus(w Worker) types.RoverStatus {
	if sr, ok := w.(StatusReporter); ok {
		return sr.Status()
	}
	return types.RoverStatus{ID: w.ID(), Running: w.Running()}
}
