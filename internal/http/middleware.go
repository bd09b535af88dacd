package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type contextKey string

const terminalIDKey contextKey = "terminal_id"

// TerminalHeader identifies the till a request comes from. It is optional and only
// recorded in the submission journal.
const TerminalHeader = "X-Terminal-ID"

// RequestIDMiddleware echoes the request ID chi assigned back to the client.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID := middleware.GetReqID(r.Context()); requestID != "" {
			w.Header().Set(middleware.RequestIDHeader, requestID)
		}
		next.ServeHTTP(w, r)
	})
}

// TerminalMiddleware stores the X-Terminal-ID header in the request context.
func TerminalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		terminalID := strings.TrimSpace(r.Header.Get(TerminalHeader))
		if terminalID != "" {
			r = r.WithContext(context.WithValue(r.Context(), terminalIDKey, terminalID))
		}
		next.ServeHTTP(w, r)
	})
}

func getTerminalID(ctx context.Context) string {
	if terminalID, ok := ctx.Value(terminalIDKey).(string); ok {
		return terminalID
	}
	return ""
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if terminalID := getTerminalID(r.Context()); terminalID != "" {
				fields = append(fields, zap.String("terminal_id", terminalID))
			}

			switch {
			case ww.Status() >= http.StatusInternalServerError:
				logger.Error("request", fields...)
			case ww.Status() >= http.StatusBadRequest:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
		})
	}
}
