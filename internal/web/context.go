package web

import (
	"net/http"

	"github.com/JonMunkholm/sheetsearch/internal/core"
)

// withClient adds the client address and user agent to the request context
// so the service can attribute loads in the history.
func withClient(r *http.Request) *http.Request {
	ctx := core.ContextWithClient(r.Context(), core.ClientInfo{
		IP:        r.RemoteAddr, // already resolved by TrustedRealIP
		UserAgent: r.UserAgent(),
	})
	return r.WithContext(ctx)
}
