package middleware

import (
	"crypto/subtle"
	"net/http"

	shared "github.com/ahmedafzal2677/exact-sol-task/shared/middleware"
)

// CSRFMiddleware проверяет double-submit CSRF-токен для state-changing методов.
// Запросы с Authorization: Bearer не зависят от cookie и пропускаются.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isStateChanging(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		cred, ok := shared.ExtractCredential(r)
		if !ok || !cred.FromCookie {
			next.ServeHTTP(w, r)
			return
		}

		csrfCookie, err := r.Cookie(shared.CSRFCookie)
		if err != nil {
			http.Error(w, `{"error":"CSRF token missing in cookies"}`, http.StatusForbidden)
			return
		}

		csrfHeader := r.Header.Get(shared.CSRFHeader)
		if csrfHeader == "" {
			http.Error(w, `{"error":"X-CSRF-Token header missing"}`, http.StatusForbidden)
			return
		}

		if subtle.ConstantTimeCompare([]byte(csrfCookie.Value), []byte(csrfHeader)) != 1 {
			http.Error(w, `{"error":"CSRF token mismatch"}`, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
