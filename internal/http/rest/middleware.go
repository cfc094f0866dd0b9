package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/bwise1/campus_safety/util/tracing"
	"github.com/bwise1/campus_safety/util/values"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lucsky/cuid"
	"go.uber.org/zap"
)

// RequestTracing handles the request tracing context
func RequestTracing(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestSource := r.Header.Get(values.HeaderRequestSource)
		if requestSource == "" {
			requestSource = "web"
		}

		requestID := r.Header.Get(values.HeaderRequestID)
		if requestID == "" {
			requestID = cuid.New()
		}
		w.Header().Set(values.HeaderRequestID, requestID)

		tracingContext := tracing.Context{
			RequestID:     requestID,
			RequestSource: requestSource,
		}

		ctx = context.WithValue(ctx, values.ContextTracingKey, tracingContext)
		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}

// RequestLogger logs one line per request once it has been served.
func (api *API) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		tc := tracingFrom(r)
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", tc.RequestID),
			zap.String("source", tc.RequestSource),
		}
		switch {
		case ww.Status() >= http.StatusInternalServerError:
			api.Logger.Error("request", fields...)
		case ww.Status() >= http.StatusBadRequest:
			api.Logger.Warn("request", fields...)
		default:
			api.Logger.Info("request", fields...)
		}
	})
}
