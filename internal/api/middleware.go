package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicore/consult-booking/internal/booking"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	subjectKey   contextKey = "subject"
)

// Subject is the verified caller identity. Authentication happens
// upstream; by the time a request reaches this service the gateway has
// already validated the token and forwards the outcome in headers.
type Subject struct {
	ID   uuid.UUID
	Role booking.Role
}

// RequestIDMiddleware adds a unique request ID to each request context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SubjectMiddleware lifts X-Subject-ID and X-Subject-Role into the
// context. Requests without a subject pass through; handlers that need a
// caller reject them via requireSubject.
func SubjectMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idHeader := r.Header.Get("X-Subject-ID")
		roleHeader := r.Header.Get("X-Subject-Role")
		if idHeader != "" && roleHeader != "" {
			if id, err := uuid.Parse(idHeader); err == nil {
				subj := Subject{ID: id, Role: booking.Role(roleHeader)}
				r = r.WithContext(context.WithValue(r.Context(), subjectKey, subj))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func requireSubject(w http.ResponseWriter, r *http.Request) (Subject, bool) {
	subj, ok := r.Context().Value(subjectKey).(Subject)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_subject", "X-Subject-ID and X-Subject-Role headers are required")
		return Subject{}, false
	}
	return subj, true
}

// LoggingMiddleware logs each request with method, path, status, duration
// and request ID.
func LoggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", GetRequestID(r.Context())),
			)
		})
	}
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
