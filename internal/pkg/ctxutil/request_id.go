package ctxutil

import "context"

// requestIDKeyType private key type so other context keys cannot
// collide with ours
type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

// WithRequestID injects a request ID into the context. The request-ID
// middleware calls this once per request:
//
//	ctx := ctxutil.WithRequestID(c.Request.Context(), id)
//	c.Request = c.Request.WithContext(ctx)
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID extracts the request ID from the context. The second
// return reports whether a non-empty ID was present.
func GetRequestID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v := ctx.Value(requestIDKey)
	id, ok := v.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
