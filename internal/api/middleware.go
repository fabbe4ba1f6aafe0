package api

import (
	"net/http"
	"time"
)

// cors adds the configured Access-Control-Allow-Origin to every response.
func (s *Server) cors(next http.Handler) http.Handler {
	if s.opts.AllowOrigin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.opts.AllowOrigin)
		next.ServeHTTP(w, r)
	})
}

// instrument records status and latency per matched route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	if s.opts.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.opts.Metrics.ObserveRequest(route, rw.status, time.Since(start))
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
