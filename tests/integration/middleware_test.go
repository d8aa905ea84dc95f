//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestRequestID_Generated(t *testing.T) {
	resp := doGet(t, "/livez")
	defer resp.Body.Close()

	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID header not present")
	}
}

func TestRequestID_Echoed(t *testing.T) {
	const id = "storefront-trace-12345"

	resp := doRequest(t, http.MethodGet, "/livez", nil, map[string]string{
		"X-Request-ID": id,
	})
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != id {
		t.Errorf("X-Request-ID: got %q, want %q", got, id)
	}
}

func TestCORS_Preflight(t *testing.T) {
	resp := doRequest(t, http.MethodOptions, "/api/books", nil, map[string]string{
		"Origin":                         "http://storefront.example.com",
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "Content-Type, X-Session-ID",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if acao := resp.Header.Get("Access-Control-Allow-Origin"); acao == "" {
		t.Error("Access-Control-Allow-Origin header not present")
	}

	methods := resp.Header.Get("Access-Control-Allow-Methods")
	if methods == "" {
		t.Fatal("Access-Control-Allow-Methods header not present")
	}
	// The back office updates order status and user roles via PATCH.
	if !strings.Contains(methods, http.MethodPatch) {
		t.Errorf("allow-methods %q missing PATCH", methods)
	}

	headers := resp.Header.Get("Access-Control-Allow-Headers")
	for _, h := range []string{"X-Session-ID", "X-API-Key"} {
		if !strings.Contains(headers, h) {
			t.Errorf("allow-headers %q missing %s", headers, h)
		}
	}
}

func TestCORS_SimpleRequest(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/books", nil, map[string]string{
		"Origin": "http://storefront.example.com",
	})
	defer resp.Body.Close()

	if acao := resp.Header.Get("Access-Control-Allow-Origin"); acao == "" {
		t.Error("Access-Control-Allow-Origin header not present")
	}
}

func TestRateLimit_Headers(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/books", nil, sessionHeaders())
	defer resp.Body.Close()

	if resp.Header.Get("X-RateLimit-Limit") == "" {
		t.Error("X-RateLimit-Limit header not present")
	}
	if resp.Header.Get("X-RateLimit-Remaining") == "" {
		t.Error("X-RateLimit-Remaining header not present")
	}
}
