package router

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/archive"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/order"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/utilities"
)

const requestIDHeader = "X-Request-ID"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware tags every request with an X-Request-ID, logs it at debug
// level and, when m is non-nil, records it under its matched route pattern.
func LoggingMiddleware(logger *zap.SugaredLogger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = utilities.NewKSUID()
			}
			w.Header().Set(requestIDHeader, reqID)

			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			// ServeMux fills in Pattern on the shared request
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			if m != nil {
				m.ObserveHTTP(r.Method, route, status, dur)
			}
			logger.Debugw("http request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// HSTS only over TLS
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deps is everything RegisterRoutes mounts.
type Deps struct {
	Users   *user.Handler
	Orders  *order.Handler
	Archive *archive.Handler
	Metrics *metrics.Metrics

	// Tokens guards the today, archive and archival endpoints when
	// RequireAdmin is set.
	Tokens       *auth.Issuer
	RequireAdmin bool

	// LoginRatePerMinute limits register and login per client address; 0 disables.
	LoginRatePerMinute int

	// Ping reports database health for GET /api/health.
	Ping func(ctx context.Context) error
}

// RegisterRoutes mounts the HTTP API on the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		if d.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ping(ctx); err != nil {
				logger.Warnw("health check failed", "err", err)
				httpx.WriteJSON(w, http.StatusServiceUnavailable, httpx.Envelope{Success: false, Message: "Database unavailable"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "ok"})
	})
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	limit := func(h http.HandlerFunc) http.Handler { return h }
	if d.LoginRatePerMinute > 0 {
		rl := NewRateLimiter(d.LoginRatePerMinute, logger)
		limit = func(h http.HandlerFunc) http.Handler { return rl.Handler(h) }
	}
	mux.Handle("POST /api/register", limit(d.Users.Register))
	mux.Handle("POST /api/login", limit(d.Users.Login))
	mux.HandleFunc("POST /api/submit-order", d.Orders.Submit)

	guard := func(h http.HandlerFunc) http.Handler { return h }
	if d.RequireAdmin && d.Tokens != nil {
		mw := auth.RequireBearer(d.Tokens, logger)
		guard = func(h http.HandlerFunc) http.Handler { return mw(h) }
	}
	mux.Handle("GET /api/today-requests", guard(d.Orders.Today))
	mux.Handle("GET /api/archives", guard(d.Archive.Archives))
	mux.Handle("GET /api/archives/{date...}", guard(d.Archive.Detail))
	mux.Handle("POST /api/archive-orders", guard(d.Archive.Run))

	return LoggingMiddleware(logger, d.Metrics)(SecurityHeadersMiddleware()(mux))
}
