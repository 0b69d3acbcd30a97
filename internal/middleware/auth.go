package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/config"
)

// APIKeyAuth middleware validates API key from the "api_key" header
func APIKeyAuth(cfg config.AuthConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("api_key")

			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized: API key required", "unauthorized")
				return
			}

			valid := false
			for _, validKey := range cfg.APIKeys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
					valid = true
					break
				}
			}

			if !valid {
				writeError(w, http.StatusForbidden, "Forbidden: Invalid API key", "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
