package logging

import (
	"context"
)

type contextKey string

const (
	SessionIDKey   = "session_id"
	RequestIDKey   = "request_id"
	ClientAddrKey  = "client_addr"
	ServiceNameKey = "service_name"
)

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKey(SessionIDKey), sessionID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey(RequestIDKey), requestID)
}

func WithClientAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, contextKey(ClientAddrKey), addr)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, contextKey(ServiceNameKey), serviceName)
}

func GetSessionID(ctx context.Context) string {
	return getString(ctx, SessionIDKey)
}

func GetRequestID(ctx context.Context) string {
	return getString(ctx, RequestIDKey)
}

func GetClientAddr(ctx context.Context) string {
	return getString(ctx, ClientAddrKey)
}

func GetServiceName(ctx context.Context) string {
	return getString(ctx, ServiceNameKey)
}

func getString(ctx context.Context, key string) string {
	if v, ok := ctx.Value(contextKey(key)).(string); ok {
		return v
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	for _, key := range []string{SessionIDKey, RequestIDKey, ClientAddrKey, ServiceNameKey} {
		if v := getString(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}

	return fields
}
