package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/biovolt/marketplace-api/internal/platform/requestctx"
)

// InjectLoggerMiddleware attaches the base logger, enriched with the request
// id, to each request context.
func InjectLoggerMiddleware(base *zap.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = requestctx.NoopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				logger = logger.With(zap.String("request_id", reqID))
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithLogger(r.Context(), logger)))
		})
	}
}

// RequestLoggerMiddleware emits one structured access log line per request and
// annotates the active trace span with the response status.
func RequestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		if span := trace.SpanFromContext(r.Context()); span.SpanContext().IsValid() {
			span.SetAttributes(
				attribute.Int("http.response.status_code", status),
				attribute.Int("http.response.body.size", ww.BytesWritten()),
			)
		}

		logger := requestctx.Logger(r.Context())
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	})
}

// RecoveryMiddleware converts panics into a 500 JSON response and logs the
// panic value with a stack trace.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				requestctx.Logger(r.Context()).Error("panic recovered",
					zap.Any("panic", rec),
					zap.Stack("stack"),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"status":"error","code":"internal","message":"internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
