package httpapi

import (
	"net/http"
	"strings"
	"time"

	"salonq/internal/metrics"

	"github.com/rs/zerolog"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(writer, r)
		elapsed := time.Since(start)

		route := routeLabel(r.URL.Path)
		metrics.ObserveHTTP(route, writer.status, elapsed)

		event := logger.Info()
		if writer.status >= http.StatusInternalServerError {
			event = logger.Error()
		} else if writer.status >= http.StatusBadRequest {
			event = logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Dur("duration", elapsed).
			Str("remote", clientIP(r)).
			Msg("request")
	})
}

// routeLabel collapses numeric path segments so metric cardinality stays
// bounded by the route table, not by row IDs.
func routeLabel(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if isNumeric(part) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func isNumeric(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}
