package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/logger"
)

const userIDHeader = "X-User-ID"

type ctxKey int

const userIDKey ctxKey = iota

// withUser stores the broker id sent by the frontend. Requests without it are anonymous.
func withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(userIDHeader)); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func requestLogger(r *http.Request, base *zap.Logger) *zap.Logger {
	return logger.WithFields(base,
		logger.StringFields(
			logger.StringField{Key: "request_id", Value: middleware.GetReqID(r.Context())},
			logger.StringField{Key: logger.FieldUserID, Value: userID(r.Context())},
		)...,
	)
}

func logRequests(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			requestLogger(r, base).Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
