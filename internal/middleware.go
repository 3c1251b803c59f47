package internal

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the correlation id assigned to every request.
const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns a request id (honoring one supplied by the caller)
// and emits one structured log line per request.
func RequestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rw, r)

			log.WithFields(logrus.Fields{
				"request_id": reqID,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rw.code,
				"duration":   time.Since(start).String(),
				"remote":     r.RemoteAddr,
			}).Info("request completed")
		})
	}
}
