package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractCredential(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		cookie     string
		wantToken  string
		wantCookie bool
		wantOK     bool
	}{
		{name: "bearer", header: "Bearer abc", wantToken: "abc", wantOK: true},
		{name: "bearer lowercase", header: "bearer abc", wantToken: "abc", wantOK: true},
		{name: "basic rejected", header: "Basic abc"},
		{name: "cookie", cookie: "xyz", wantToken: "xyz", wantCookie: true, wantOK: true},
		{name: "header wins", header: "Bearer h", cookie: "c", wantToken: "h", wantOK: true},
		{name: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}

			got, ok := ExtractCredential(r)
			if ok != tt.wantOK || got.Token != tt.wantToken || got.FromCookie != tt.wantCookie {
				t.Fatalf("got=%+v ok=%v", got, ok)
			}
		})
	}
}
