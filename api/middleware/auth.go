package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"inventory/logger"

	"github.com/goccy/go-json"
)

// Token is the bearer token a client presents after a successful login.
func Token(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// CheckCredentials compares both values in constant time.
func CheckCredentials(username, password, wantUser, wantPass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(wantUser))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(wantPass))
	return userOK&passOK == 1
}

// parseToken decodes "Bearer base64(user:pass)". Only the first colon
// separates the fields, passwords may contain more.
func parseToken(header string) (user, pass string, ok bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// BearerAuth rejects requests without valid credentials with 401.
func BearerAuth(username, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			user, pass, ok := parseToken(header)
			if !ok || !CheckCredentials(user, pass, username, password) {
				logger.Debug("BearerAuth: rejected credentials for %s %s", r.Method, r.URL.Path)
				writeError(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		logger.Error("Error encoding error response: %v", err)
	}
}
