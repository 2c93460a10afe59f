package context

import "context"

type ContextKey string

var (
	RequestIDKey = ContextKey("X-Request-Id")
	ReaderIDKey  = ContextKey("X-Reader-Id")
)

func getString(ctx context.Context, key ContextKey) string {
	value, ok := ctx.Value(key).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return getString(ctx, RequestIDKey)
}

// SetReaderID records the RFID reader (gateway) that sent the request, if it
// identified itself with the X-Reader-ID header.
func SetReaderID(ctx context.Context, readerID string) context.Context {
	return context.WithValue(ctx, ReaderIDKey, readerID)
}

func GetReaderID(ctx context.Context) string {
	return getString(ctx, ReaderIDKey)
}
