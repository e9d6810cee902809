package middleware

import (
	"net/http"
	"strconv"
	"time"

	"doc-vault-server/internal/metrics"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Prometheus : счётчик и гистограмма запросов по шаблону маршрута
func Prometheus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)

		metrics.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
