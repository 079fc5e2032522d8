package app

import (
	"os"
	"testing"

	"github.com/vk/livespan/internal/config"
	"github.com/vk/livespan/internal/registry"
	"github.com/vk/livespan/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing.
func SetupAppTest(t *testing.T, appConfig *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	appConfig.LogLevel = "debug"
	testApp := NewApp(logBuffer, appConfig, config.NewCueLoader(), modules...)

	t.Cleanup(func() {
		if os.Getenv("LIVESPAN_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
