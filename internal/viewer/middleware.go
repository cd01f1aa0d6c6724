package viewer

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gridforma/massing/internal/logging"
	"github.com/gridforma/massing/internal/observability"
)

const requestIDHeader = "X-Request-Id"

// withRequestContext ensures a request_id is present on the context, sourcing
// it from the inbound header if provided, and attaches a per-request logger
// annotated with request_id and route plus a server span.
func withRequestContext(base logging.Logger, route string, next http.Handler) http.Handler {
	if base == nil {
		base = logging.Noop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if incoming := r.Header.Get(requestIDHeader); incoming != "" {
			ctx = logging.ContextWithRequestID(ctx, incoming)
		}

		ctx, reqLog := logging.WithRequestLogger(ctx, base.With(logging.String("route", route)))
		ctx = logging.ContextWithLogger(ctx, reqLog)
		w.Header().Set(requestIDHeader, logging.RequestIDFromContext(ctx))

		ctx, span := observability.StartSpan(ctx, "viewer"+route,
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
