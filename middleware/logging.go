package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Logging logs one structured entry per request: method, path, status,
// duration, response size and the request id when present.
func Logging(log *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.Int("bytes", rw.bytesWritten),
				zap.String("remote", r.RemoteAddr),
			}
			if id := GetRequestID(r.Context()); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}

			log.Info("request", fields...)
		})
	}
}
