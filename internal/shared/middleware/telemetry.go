package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// untraced paths are probes and scrapes that would drown real traffic.
var untraced = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Telemetry adds otelhttp's standard server metrics and propagation-aware
// spans. Tracing refines the span name with the matched route afterwards.
func Telemetry(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "trackify-api",
		otelhttp.WithFilter(func(r *http.Request) bool { return !untraced[r.URL.Path] }),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string { return "HTTP " + r.Method }),
	)
}
