package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MetricRequestDuration is the request latency histogram, in milliseconds.
const MetricRequestDuration = "http_request_duration_ms"

// Observer receives request latency samples.
type Observer interface {
	ObserveHistogram(name string, value float64, labels map[string]string)
}

type timingContextKey struct{}

// RequestStart returns when the request entered the router.
func RequestStart(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(timingContextKey{}).(time.Time)
	return t, ok
}

// timing stores the start time in the request context and, when obs is set,
// records the latency per method, route pattern and status.
func timing(obs Observer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r = r.WithContext(context.WithValue(r.Context(), timingContextKey{}, start))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if obs == nil {
				return
			}

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			obs.ObserveHistogram(MetricRequestDuration,
				float64(time.Since(start).Microseconds())/1000,
				map[string]string{"method": r.Method, "route": route, "status": strconv.Itoa(status)})
		})
	}
}
