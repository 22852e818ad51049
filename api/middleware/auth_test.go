package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuth(t *testing.T) {
	h := BearerAuth("admin", "s3cret:with:colons")(okHandler())

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"valid token", "Bearer " + Token("admin", "s3cret:with:colons"), http.StatusOK},
		{"lowercase scheme", "bearer " + Token("admin", "s3cret:with:colons"), http.StatusOK},
		{"wrong password", "Bearer " + Token("admin", "nope"), http.StatusUnauthorized},
		{"wrong user", "Bearer " + Token("root", "s3cret:with:colons"), http.StatusUnauthorized},
		{"basic scheme", "Basic " + Token("admin", "s3cret:with:colons"), http.StatusUnauthorized},
		{"not base64", "Bearer !!!", http.StatusUnauthorized},
		{"no colon", "Bearer YWRtaW4=", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && !gjson.Get(rec.Body.String(), "error").Exists() {
				t.Errorf("401 body lacks error field: %s", rec.Body.String())
			}
		})
	}
}

func TestCheckCredentials(t *testing.T) {
	if !CheckCredentials("a", "b", "a", "b") {
		t.Error("matching credentials rejected")
	}
	if CheckCredentials("a", "", "a", "b") {
		t.Error("empty password accepted")
	}
}

func TestTokenFormat(t *testing.T) {
	if got := Token("admin", "changeme"); got != "YWRtaW46Y2hhbmdlbWU=" {
		t.Errorf("Token = %q", got)
	}
}
