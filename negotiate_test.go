package fedicore

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAcceptsJSONLD(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   bool
	}{
		{"no header", "", true},
		{"plain activity json", "application/activity+json", true},
		{"ld json", "application/ld+json", true},
		{"bare json", "application/json", true},
		{"html only", "text/html", false},
		{"xhtml only", "application/xhtml+xml", false},
		{"html preferred over json", "text/html;q=1.0, application/activity+json;q=0.5", false},
		{"json preferred over html", "application/activity+json;q=1.0, text/html;q=0.5", true},
		{"unrelated type only", "image/png", false},
		{"unparseable header", ";;;garbage", true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "https://example.com/users/alice", nil)
			if test.accept != "" {
				r.Header.Set("Accept", test.accept)
			}
			if got := AcceptsJSONLD(r); got != test.want {
				t.Errorf("AcceptsJSONLD(%q) = %v, want %v", test.accept, got, test.want)
			}
		})
	}
}
