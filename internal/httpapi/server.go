package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"streamd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Managers() []types.ManagerStatus
	Manager(id string) (types.ManagerStatus, error)
	Start(id string) (types.ManagerStatus, error)
	Stop(id string) (types.ManagerStatus, error)
	Ready() bool
}

// StreamServer serves the websocket event stream of one manager.
type StreamServer interface {
	ServeWS(ctx context.Context, w http.ResponseWriter, r *http.Request, managerID string)
}

// NewMux builds the HTTP API. streams may be nil, in which case the event
// stream endpoint answers 503.
func NewMux(svc Service, streams StreamServer) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)
	if c := corsMiddleware(); c != nil {
		r.Use(c)
	}

	r.Get("/managers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ManagersResponse{Managers: svc.Managers()})
	})

	r.Route("/managers/{id}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			st, err := svc.Manager(chi.URLParam(r, "id"))
			if err != nil {
				writeJSONError(w, statusFor(err), err.Error())
				return
			}
			writeJSON(w, st)
		})

		r.Post("/start", lifecycleHandler("start", svc.Start))
		// Stop blocks until the manager's dispatch goroutine has exited.
		r.Post("/stop", lifecycleHandler("stop", svc.Stop))

		r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			if _, err := svc.Manager(id); err != nil {
				writeJSONError(w, statusFor(err), err.Error())
				return
			}
			if streams == nil {
				writeJSONError(w, http.StatusServiceUnavailable, "event stream not configured")
				return
			}
			ctx, cancel := joinContexts(serverBaseCtx, r.Context())
			defer cancel()
			g := streamSubscribers.WithLabelValues(id)
			g.Inc()
			defer g.Dec()
			streams.ServeWS(ctx, w, r, id)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("starting"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func lifecycleHandler(action string, fn func(id string) (types.ManagerStatus, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		start := time.Now()
		st, err := fn(id)
		if err != nil {
			status := statusFor(err)
			writeJSONError(w, status, err.Error())
			logAction(r, action, id, status, start, err)
			return
		}
		writeJSON(w, st)
		logAction(r, action, id, http.StatusOK, start, nil)
	}
}
