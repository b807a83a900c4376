package logging

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*accessLog)

// WithSlowThreshold logs completed requests slower than d at warn level.
// Zero disables the check.
func WithSlowThreshold(d time.Duration) MiddlewareOption {
	return func(a *accessLog) { a.slow = d }
}

// WithQuietPaths logs successful requests to the given paths, such as
// /healthz and /metrics, at debug level.
func WithQuietPaths(paths ...string) MiddlewareOption {
	return func(a *accessLog) { a.quiet = append(a.quiet, paths...) }
}

type accessLog struct {
	logger *Logger
	slow   time.Duration
	quiet  []string
}

// Middleware stores a request-scoped logger carrying the request ID, method,
// path and remote address in the request context, and writes one access
// entry per request once the handler returns. Server errors are logged at
// error level and client errors at warn level.
func Middleware(logger *Logger, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	a := &accessLog{logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a.handler
}

func (a *accessLog) handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		reqLogger := a.logger.WithFields(requestFields(r))
		reqLogger.Debug("Request started")

		ctx := (&CtxLogger{reqLogger}).WithContext(r.Context())
		next.ServeHTTP(ww, r.WithContext(ctx))

		a.complete(reqLogger, r, ww, time.Since(start))
	})
}

func requestFields(r *http.Request) map[string]interface{} {
	return map[string]interface{}{
		"request_id": middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
		"remote":     r.RemoteAddr,
	}
}

func (a *accessLog) complete(l *Logger, r *http.Request, ww middleware.WrapResponseWriter, latency time.Duration) {
	status := ww.Status()
	if status == 0 {
		// handler wrote nothing
		status = http.StatusOK
	}
	fields := map[string]interface{}{
		"status":     status,
		"bytes":      ww.BytesWritten(),
		"latency_ms": float64(latency.Microseconds()) / 1000.0,
		"user_agent": r.UserAgent(),
		"protocol":   r.Proto,
	}
	if status >= http.StatusBadRequest {
		fields["error"] = http.StatusText(status)
	}
	slow := a.slow > 0 && latency > a.slow
	if slow {
		fields["slow"] = true
	}

	l = l.WithFields(fields)
	switch {
	case status >= http.StatusInternalServerError:
		l.Error("Request completed")
	case status >= http.StatusBadRequest, slow:
		l.Warn("Request completed")
	case slices.Contains(a.quiet, r.URL.Path):
		l.Debug("Request completed")
	default:
		l.Info("Request completed")
	}
}
