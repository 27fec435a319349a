package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/bnema/mediasrv/internal/infrastructure/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// AccessLog writes one Debug line per request and recovers handler panics
// into a 500.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger.Error.Printf("http: panic serving %s %s: %v\n%s",
					r.Method, logger.SanitizeForLog(r.URL.Path), p, debug.Stack())
				if rec.status == 0 {
					http.Error(rec, "internal server error", http.StatusInternalServerError)
				}
			}
			logger.Debug.Printf("http: method=%s path=%s status=%d bytes=%d duration=%s",
				r.Method, logger.SanitizeForLog(r.URL.Path), rec.status, rec.bytes, time.Since(start))
		}()

		next.ServeHTTP(rec, r)
	})
}
