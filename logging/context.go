package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const (
	// RequestIDKey carries the request id set by the http layer.
	RequestIDKey ctxKey = "request_id"
	// GUIDKey carries the add-on guid an operation acts on.
	GUIDKey ctxKey = "guid"
)

type loggerKey struct{}

// SetRequestID stores a request id in ctx.
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID returns the request id stored in ctx.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// SetGUID stores an add-on guid in ctx.
func SetGUID(ctx context.Context, guid string) context.Context {
	return context.WithValue(ctx, GUIDKey, guid)
}

// GetGUID returns the add-on guid stored in ctx.
func GetGUID(ctx context.Context) string {
	return stringValue(ctx, GUIDKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// WithContext returns logger with the request id and guid found in ctx.
func WithContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	var fields []zap.Field
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if guid := GetGUID(ctx); guid != "" {
		fields = append(fields, zap.String("guid", guid))
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// ToContext stores logger in ctx.
func ToContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return Global()
}
