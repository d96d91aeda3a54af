package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"ms-deposits/internal/logger"
)

// RequestLogger logs method, path, status and latency of every request.
// Long-lived streams are logged once they close.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				log.LogAPI(r.Method, r.URL.Path, status, time.Since(start).Round(time.Microsecond))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
