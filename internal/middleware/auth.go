// Package middleware содержит HTTP middleware сервиса аналитики продаж.
package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"net/http"
	"strings"
)

type contextKey string

// APIKeyHeader содержит ключ доступа к административным маршрутам.
const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware пропускает запросы только с корректным ключом доступа.
type APIKeyMiddleware struct {
	macKey   []byte
	expected []byte
}

// NewAPIKeyMiddleware создаёт middleware для указанного ключа.
// Пустой ключ отключает административные маршруты.
func NewAPIKeyMiddleware(apiKey string) *APIKeyMiddleware {
	if apiKey == "" {
		return &APIKeyMiddleware{}
	}

	macKey := make([]byte, 32)
	if _, err := rand.Read(macKey); err != nil {
		macKey = []byte("sales-analyst-api-key")
	}

	a := &APIKeyMiddleware{macKey: macKey}
	a.expected = a.sign(apiKey)
	return a
}

// Enabled сообщает, задан ли ключ доступа.
func (a *APIKeyMiddleware) Enabled() bool {
	return a != nil && a.expected != nil
}

// Middleware проверяет ключ из заголовка X-API-Key или Authorization: Bearer.
func (a *APIKeyMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		key := extractAPIKey(r)
		if key == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if !hmac.Equal(a.sign(key), a.expected) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *APIKeyMiddleware) sign(key string) []byte {
	mac := hmac.New(sha256.New, a.macKey)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}

func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}

	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
