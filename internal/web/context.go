package web

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/statspub/internal/core"
	"github.com/JonMunkholm/statspub/internal/web/middleware"
)

// requestInfo attaches the client address, user agent and request id to the
// request context so audit entries can record them. It must run after
// RequestID and TrustedRealIP.
func requestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.WithRequestInfo(r.Context(), core.RequestInfo{
			IPAddress: middleware.ClientIP(r),
			UserAgent: r.UserAgent(),
			RequestID: chimw.GetReqID(r.Context()),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
