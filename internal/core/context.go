package core

import "context"

type contextKey string

const ctxKeyClient contextKey = "client_info"

// ClientInfo identifies who triggered a load. It is stored with the load
// history entry.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// ContextWithClient attaches client details for load history.
func ContextWithClient(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, ctxKeyClient, info)
}

// ClientFromContext returns the client attached by ContextWithClient, or the
// zero value.
func ClientFromContext(ctx context.Context) ClientInfo {
	if v, ok := ctx.Value(ctxKeyClient).(ClientInfo); ok {
		return v
	}
	return ClientInfo{}
}
