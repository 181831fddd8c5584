package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/internal/logging"
)

// MinAPIKeyLength is the shortest key accepted when auth is enabled.
const MinAPIKeyLength = 16

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Enabled bool
	APIKey  string
}

// requestKey finds the client's key: X-API-Key, then a bearer token, then
// the api_key query parameter on /ws for browsers that cannot set headers.
func requestKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if r.URL.Path == "/ws" {
		return r.URL.Query().Get("api_key")
	}
	return ""
}

// AuthMiddleware rejects requests without the configured key. /health is
// always served.
func AuthMiddleware(cfg AuthConfig, next http.Handler) http.Handler {
	want := []byte(cfg.APIKey)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Enabled || isPublicEndpoint(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key := requestKey(r)
		reason, msg := "", ""
		switch {
		case key == "":
			reason, msg = "missing API key", "Missing X-API-Key header"
		case subtle.ConstantTimeCompare([]byte(key), want) != 1:
			reason, msg = "invalid API key", "Invalid API key"
		default:
			next.ServeHTTP(w, r)
			return
		}
		logging.WarnContext(r.Context(), "unauthorized request", "path", r.URL.Path, "reason", reason)
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", msg)
	})
}

func isPublicEndpoint(path string) bool {
	return path == "/health"
}

// ValidateAuthConfig requires a key of at least MinAPIKeyLength bytes when
// auth is enabled.
func ValidateAuthConfig(cfg AuthConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.APIKey == "" {
		return errors.NewValidation("api_key", "required when authentication is enabled")
	}
	if len(cfg.APIKey) < MinAPIKeyLength {
		return errors.NewValidation("api_key",
			fmt.Sprintf("must be at least %d characters (got %d)", MinAPIKeyLength, len(cfg.APIKey)))
	}
	return nil
}
