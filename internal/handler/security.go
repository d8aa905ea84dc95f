package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// apiKeyHeader carries the admin API key.
const apiKeyHeader = "X-API-Key"

// HashAPIKey computes the peppered HMAC-SHA256 hash of a plaintext API key.
// The same function produces the hashes stored in the database.
func HashAPIKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// requireAPIKey wraps an admin endpoint with API key authentication. The
// presented key is hashed with the pepper and looked up; the stored hash is
// then compared in constant time.
func (h *Handler) requireAPIKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			respondError(w, http.StatusUnauthorized, "API key required")
			return
		}

		hash := HashAPIKey(h.pepper, key)
		info, err := h.apikeys.FindByHash(r.Context(), hash)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		// Constant-time compare against the stored hash, independent of
		// how the repository matched the row.
		stored, err := hex.DecodeString(info.KeyHash)
		computed, _ := hex.DecodeString(hash)
		if err != nil || subtle.ConstantTimeCompare(computed, stored) != 1 {
			respondError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		zctx.From(r.Context()).Debug("admin request authenticated",
			zap.String("key_name", info.Name))
		next.ServeHTTP(w, r)
	})
}
