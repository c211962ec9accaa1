package testutil

import (
	"os"
	"testing"
)

// SkipIfNoNetwork skips the test if MATCHCHAT_TEST_SKIP_NETWORK is set.
// Use this for tests that open loopback listeners, which may not be
// available in sandboxed environments.
//
// Note: transport cannot import this helper (testutil depends on it), so it
// defines a local skipIfNoNetwork instead.
func SkipIfNoNetwork(t *testing.T) {
	t.Helper()
	if os.Getenv("MATCHCHAT_TEST_SKIP_NETWORK") != "" {
		t.Skip("skipping network test: MATCHCHAT_TEST_SKIP_NETWORK is set")
	}
}
