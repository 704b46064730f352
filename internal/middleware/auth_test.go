package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		headers    map[string]string
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "valid header",
			key:        "secret",
			headers:    map[string]string{APIKeyHeader: "secret"},
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "valid bearer token",
			key:        "secret",
			headers:    map[string]string{"Authorization": "Bearer secret"},
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "wrong key",
			key:        "secret",
			headers:    map[string]string{APIKeyHeader: "guess"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing key",
			key:        "secret",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "disabled",
			key:        "",
			headers:    map[string]string{APIKeyHeader: ""},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAPIKeyMiddleware(tt.key)

			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})

			r := httptest.NewRequest(http.MethodPost, "/api/snapshot/reload", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			w := httptest.NewRecorder()

			m.Middleware(next).ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if nextCalled != tt.wantNext {
				t.Fatalf("next called = %v, want %v", nextCalled, tt.wantNext)
			}
		})
	}
}

func TestAPIKeyMiddleware_Enabled(t *testing.T) {
	if NewAPIKeyMiddleware("").Enabled() {
		t.Fatalf("empty key must disable middleware")
	}
	if !NewAPIKeyMiddleware("k").Enabled() {
		t.Fatalf("non-empty key must enable middleware")
	}

	var m *APIKeyMiddleware
	if m.Enabled() {
		t.Fatalf("nil middleware must be disabled")
	}
}
