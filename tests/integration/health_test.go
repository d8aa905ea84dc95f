//go:build integration

package integration

import (
	"net/http"
	"testing"
)

// The compose setup already gates the suite on /readyz; these assert the
// body shape the orchestrator's probes consume.

func TestHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		resp := doGet(t, path)

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}

		body := decodeJSON[healthResponse](t, resp)
		resp.Body.Close()

		if body.Status != "ok" {
			t.Errorf("%s: status %q, want ok", path, body.Status)
		}
		if len(body.Checks) != 0 {
			t.Errorf("%s: unexpected failing checks %v", path, body.Checks)
		}
	}
}
