package origin

import (
	"net/http"
	"strings"
	"testing"
)

func FuzzPolicyCheck(f *testing.F) {
	// frontURL, Origin header, request Host.
	f.Add("http://localhost:5173", "http://localhost:5173", "localhost:3000")
	f.Add("http://localhost:5173", "HTTP://LOCALHOST:5173/", "relay.example.com")
	f.Add("https://app.example.com", "https://app.example.com:443", "signal.example.com")
	f.Add("https://app.example.com", "https://evil.example.com", "signal.example.com")
	f.Add("https://app.example.com", "", "signal.example.com")
	f.Add("", "https://signal.example.com", "signal.example.com:443")
	f.Add("", "http://[::1]:8080", "[::1]:8080")
	f.Add("", "null", "signal.example.com")
	f.Add("null", "null", "signal.example.com")
	f.Add("https://app.example.com/path", "https://app.example.com", "x")
	f.Add("http://localhost:5173", "http://localhost:5173,http://evil", "x")

	f.Fuzz(func(t *testing.T, frontURL, originHeader, requestHost string) {
		var allowed []string
		if front, _, ok := NormalizeHeader(frontURL); ok {
			allowed = []string{front}
		}
		p := Policy{AllowedOrigins: allowed}

		got, ok := p.Check(originHeader, requestHost)
		if got2, ok2 := p.Check(originHeader, requestHost); got2 != got || ok2 != ok {
			t.Fatalf("Check not deterministic: %q,%v then %q,%v", got, ok, got2, ok2)
		}

		r := &http.Request{Header: http.Header{}, Host: requestHost}
		r.Header.Set("Origin", originHeader)
		if p.CheckOrigin(r) != ok {
			t.Fatalf("CheckOrigin=%v disagrees with Check=%v (origin=%q host=%q)", !ok, ok, originHeader, requestHost)
		}

		if strings.TrimSpace(originHeader) == "" {
			if !ok || got != "" {
				t.Fatalf("missing Origin must pass with no normalized origin, got %q,%v", got, ok)
			}
			return
		}

		normalized, originHost, valid := NormalizeHeader(originHeader)
		if !valid {
			if ok {
				t.Fatalf("malformed origin %q was allowed", originHeader)
			}
			return
		}
		if ok && got != normalized {
			t.Fatalf("Check returned %q, want normalized %q", got, normalized)
		}

		if len(allowed) == 1 {
			if want := normalized == allowed[0]; ok != want {
				t.Fatalf("allow-list %v: origin %q allowed=%v, want %v", allowed, normalized, ok, want)
			}
		}

		// Once accepted, the normalized form is accepted again.
		if ok {
			if again, ok := p.Check(got, requestHost); !ok || again != got {
				t.Fatalf("normalized origin %q not stable: %q,%v", got, again, ok)
			}
		}

		if _, ok := (Policy{AllowedOrigins: []string{"*"}}).Check(originHeader, requestHost); !ok {
			t.Fatalf("wildcard policy rejected valid origin %q", normalized)
		}

		// Same-host default: an origin is always allowed on its own host and
		// "null" never is.
		sameHost, _ := Policy{}.Check(originHeader, originHost)
		if normalized == "null" {
			if _, ok := (Policy{}).Check(originHeader, requestHost); ok {
				t.Fatalf("null origin allowed under same-host policy")
			}
		} else if sameHost != normalized {
			t.Fatalf("origin %q rejected on its own host %q", normalized, originHost)
		}
	})
}
