package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// AdminPasswordHeader authenticates admin API calls.
const AdminPasswordHeader = "X-Admin-Password"

// PasswordMatches compares SHA-256 digests in constant time.
func PasswordMatches(expected, given string) bool {
	e := sha256.Sum256([]byte(expected))
	g := sha256.Sum256([]byte(given))
	return subtle.ConstantTimeCompare(e[:], g[:]) == 1
}

// AdminAuth rejects requests whose admin header does not match password.
func AdminAuth(password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !PasswordMatches(password, r.Header.Get(AdminPasswordHeader)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "admin auth failed"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
