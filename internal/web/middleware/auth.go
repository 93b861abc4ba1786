package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/JonMunkholm/statspub/internal/config"
	"github.com/JonMunkholm/statspub/internal/logging"
)

// APIKeyHeader carries the admin API key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth returns middleware that validates the X-API-Key header against
// the configured keys. When RequireAPIKey is false all requests pass.
func APIKeyAuth(cfg config.SecurityConfig) func(http.Handler) http.Handler {
	keys := make([][]byte, len(cfg.APIKeys))
	for i, k := range cfg.APIKeys {
		keys[i] = []byte(k)
	}

	return func(next http.Handler) http.Handler {
		if !cfg.RequireAPIKey {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(APIKeyHeader)
			logger := logging.WithFields(r.Context(),
				"path", r.URL.Path,
				"method", r.Method,
				"ip", ClientIP(r),
			)

			if apiKey == "" {
				logger.Warn("auth: missing API key")
				writeError(w, http.StatusUnauthorized, "Missing API key",
					"Send the key in the "+APIKeyHeader+" header", "AUTH001")
				return
			}
			if !isValidAPIKey([]byte(apiKey), keys) {
				logger.Warn("auth: invalid API key")
				writeError(w, http.StatusForbidden, "Invalid API key",
					"Check the key with your administrator", "AUTH002")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isValidAPIKey compares against every key in constant time, so timing does
// not reveal which key matched.
func isValidAPIKey(key []byte, validKeys [][]byte) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare(key, validKey)
	}
	return valid == 1
}
