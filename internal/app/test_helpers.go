package app

import (
	"bytes"
	"os"
	"testing"

	"github.com/vk/gradplan/internal/testutil"
)

// SetupAppTest creates an App for system tests. It returns the App with
// buffers holding its output and its debug logs.
func SetupAppTest(t *testing.T, cfg Config) (*App, *bytes.Buffer, *testutil.SafeBuffer) {
	t.Helper()

	cfg.LogLevel = "debug"
	validated, err := NewConfig(cfg)
	if err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	testApp, err := NewApp(out, logs, validated)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	t.Cleanup(func() {
		testApp.Close()
		if os.Getenv("GRADPLAN_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	return testApp, out, logs
}
