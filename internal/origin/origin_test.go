package origin

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "HTTPS://Example.COM:443", want: "https://example.com", ok: true},
		{in: "http://example.com:80", want: "http://example.com", ok: true},
		{in: "http://localhost:5173/", want: "http://localhost:5173", ok: true},
		{in: "https://example.com:8443", want: "https://example.com:8443", ok: true},
		{in: "http://[::1]:8080", want: "http://[::1]:8080", ok: true},
		{in: "http://[::1]", want: "http://[::1]", ok: true},
		{in: "null", want: "null", ok: true},
		{in: "", ok: false},
		{in: "ftp://example.com", ok: false},
		{in: "https://example.com/path", ok: false},
		{in: "https://example.com/?q=1", ok: false},
		{in: "https://user@example.com", ok: false},
		{in: "https://example.com/#frag", ok: false},
		{in: "https://example.com:", ok: false},
		{in: "https://example.com:0", ok: false},
		{in: "https://example.com:65536", ok: false},
		{in: "example.com", ok: false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("Normalize(%q)=(%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPolicy_EmptyAdmitsEverything(t *testing.T) {
	for _, p := range []*Policy{nil, mustPolicy(t, nil), mustPolicy(t, []string{"*", "https://a.example"})} {
		if p.Restricted() {
			t.Fatalf("policy %+v reports restricted", p)
		}
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Origin", "https://evil.example")
		if !p.Allow(r) {
			t.Fatalf("policy %+v rejected origin", p)
		}
	}
}

func TestPolicy_Allowlist(t *testing.T) {
	p := mustPolicy(t, []string{"https://App.Example:443", " http://localhost:5173 "})
	if !p.Restricted() {
		t.Fatalf("Restricted=false, want true")
	}

	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "https://app.example", want: true},
		{origin: "http://localhost:5173", want: true},
		{origin: "http://app.example", want: false},
		{origin: "https://evil.example", want: false},
		{origin: "null", want: false},
		{origin: "not a url", want: false},
		{origin: "", want: true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := p.Allow(r); got != tt.want {
			t.Fatalf("Allow(%q)=%v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestNewPolicy_RejectsInvalidEntry(t *testing.T) {
	_, err := NewPolicy([]string{"https://ok.example", "ftp://bad.example"})
	if !errors.Is(err, ErrInvalidOrigin) {
		t.Fatalf("err=%v, want ErrInvalidOrigin", err)
	}
}

func mustPolicy(t *testing.T, entries []string) *Policy {
	t.Helper()
	p, err := NewPolicy(entries)
	if err != nil {
		t.Fatalf("NewPolicy(%v): %v", entries, err)
	}
	return p
}
