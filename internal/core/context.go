package core

import "context"

type requestInfoKey struct{}

// RequestInfo identifies the client behind an operation. It is copied into
// audit entries.
type RequestInfo struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// WithRequestInfo attaches info to ctx.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext returns the RequestInfo attached to ctx, or the
// zero value for background work.
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}
