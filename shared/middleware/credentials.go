package middleware

import (
	"net/http"
	"strings"
)

const (
	SessionCookie = "session_token"
	CSRFCookie    = "csrf_token"
	CSRFHeader    = "X-CSRF-Token"
)

// Credential - откуда пришёл токен сессии
type Credential struct {
	Token      string
	FromCookie bool
}

// ExtractCredential ищет токен в Authorization: Bearer, затем в cookie сессии
func ExtractCredential(r *http.Request) (Credential, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(tok) != "" {
			return Credential{Token: strings.TrimSpace(tok)}, true
		}
		return Credential{}, false
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return Credential{Token: c.Value, FromCookie: true}, true
	}
	return Credential{}, false
}
